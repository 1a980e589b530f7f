package domain

import (
	"errors"
	"fmt"
)

// Expected failures are plain values so every call site handles them
// explicitly. Handlers map them to HTTP status codes with errors.Is/As.
var (
	ErrFlowerNotFound   = errors.New("flower not found")
	ErrImageNotFound    = errors.New("flower image not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryInUse    = errors.New("category is still referenced by flowers")
	ErrCustomerNotFound = errors.New("customer not found")
)

// InsufficientStockError reports the first order line that asked for more
// units than the flower has on hand.
type InsufficientStockError struct {
	FlowerID   FlowerID
	FlowerName string
	Requested  int
	Available  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for flower %q (%s): requested %d, available %d",
		e.FlowerName, e.FlowerID, e.Requested, e.Available)
}
