package domain

import "github.com/google/uuid"

type (
	FlowerID      string
	FlowerImageID string
	CategoryID    string
	CustomerID    string
	OrderID       string
	OrderItemID   string
)

func NewFlowerID() FlowerID           { return FlowerID(uuid.New().String()) }
func NewFlowerImageID() FlowerImageID { return FlowerImageID(uuid.New().String()) }
func NewCategoryID() CategoryID       { return CategoryID(uuid.New().String()) }
func NewCustomerID() CustomerID       { return CustomerID(uuid.New().String()) }
func NewOrderID() OrderID             { return OrderID(uuid.New().String()) }
func NewOrderItemID() OrderItemID     { return OrderItemID(uuid.New().String()) }
