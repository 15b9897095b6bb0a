package sales

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRequest signals the request violated an input invariant.
	ErrInvalidRequest = errors.New("invalid sales request")
	// ErrInsufficientStock is matched by every *InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = errors.New("product not found")
	ErrOrderNotFound     = errors.New("sales order not found")
	// ErrDuplicateOrderNumber means the seller already has an order with this number.
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
)

// InsufficientStockError names the first line item whose reservation failed.
type InsufficientStockError struct {
	ProductID int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d", e.ProductID)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}
