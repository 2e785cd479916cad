package app

import (
	"context"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

// UserDirectory answers whether a user exists.
// (false, nil) means the user is definitively absent; a non-nil error means
// the directory could not be asked.
type UserDirectory interface {
	VerifyUser(ctx context.Context, userID int64) (bool, error)
}

// ProductCatalog is the product collaborator. GetProduct returns (nil, nil)
// for an unknown product. ReserveStock returns false when the catalog refused
// the decrement.
type ProductCatalog interface {
	GetProduct(ctx context.Context, productID int64) (*domain.ProductSnapshot, error)
	ReserveStock(ctx context.Context, productID int64, quantity int) (bool, error)
	ReleaseStock(ctx context.Context, productID int64, quantity int) error
}

// OrderStore persists orders. FindByID returns (nil, nil) when absent.
type OrderStore interface {
	Save(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	FindAll(ctx context.Context) ([]*domain.Order, error)
	FindByUserID(ctx context.Context, userID int64) ([]*domain.Order, error)
}

// EventPublisher announces committed order changes.
type EventPublisher interface {
	OrderCreated(ctx context.Context, order *domain.Order) error
	OrderStatusChanged(ctx context.Context, order *domain.Order, previous domain.OrderStatus) error
}
