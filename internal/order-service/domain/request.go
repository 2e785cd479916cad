package domain

import "fmt"

// CreateOrderRequest is the validated input of the order workflow.
type CreateOrderRequest struct {
	UserID int64
	Items  []ItemRequest
}

type ItemRequest struct {
	ProductID int64
	Quantity  int
}

// Validate rejects malformed requests before any collaborator is contacted.
func (r CreateOrderRequest) Validate() error {
	if r.UserID <= 0 {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if len(r.Items) == 0 {
		return fmt.Errorf("%w: order items cannot be empty", ErrValidation)
	}
	for i, it := range r.Items {
		if it.ProductID <= 0 {
			return fmt.Errorf("%w: item %d: product id is required", ErrValidation, i)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: item %d: quantity must be positive", ErrValidation, i)
		}
	}
	return nil
}
