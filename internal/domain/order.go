package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ParseOrderStatus validates a free-form status string. Transitions between
// statuses are deliberately unconstrained.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusDelivered, OrderStatusCancelled:
		return OrderStatus(s), true
	}
	return "", false
}

type OrderItem struct {
	ID       OrderItemID     `json:"id"`
	OrderID  OrderID         `json:"order_id"`
	FlowerID FlowerID        `json:"flower_id"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type Order struct {
	ID          OrderID         `json:"id"`
	CustomerID  CustomerID      `json:"customer_id"`
	Items       []OrderItem     `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      OrderStatus     `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// OrderLine is a requested (flower, quantity) pair before prices are known.
type OrderLine struct {
	FlowerID FlowerID
	Quantity int
}

// NewOrder builds a pending order. Item prices are snapshots taken by the
// caller at placement time; the total is derived once, here.
func NewOrder(customerID CustomerID, items []OrderItem) *Order {
	id := NewOrderID()
	total := decimal.Zero
	for i := range items {
		items[i].ID = NewOrderItemID()
		items[i].OrderID = id
		total = total.Add(items[i].Price.Mul(decimal.NewFromInt(int64(items[i].Quantity))))
	}
	return &Order{
		ID:          id,
		CustomerID:  customerID,
		Items:       items,
		TotalAmount: total,
		Status:      OrderStatusPending,
		CreatedAt:   time.Now().UTC(),
	}
}
