package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jcmexdev/ecommerce-orders/internal/coordinator"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

var (
	_ coordinator.Step = (*verifyUserStep)(nil)
	_ coordinator.Step = (*reserveItemStep)(nil)
	_ coordinator.Step = (*persistOrderStep)(nil)
)

type verifyUserStep struct {
	users  UserDirectory
	userID int64
}

func (s *verifyUserStep) Name() string { return "verify-user" }

func (s *verifyUserStep) Execute(ctx context.Context) error {
	ok, err := s.users.VerifyUser(ctx, s.userID)
	if err != nil {
		return fmt.Errorf("%w: user %d: %w", domain.ErrUserNotFound, s.userID, err)
	}
	if !ok {
		return fmt.Errorf("%w: user %d", domain.ErrUserNotFound, s.userID)
	}
	return nil
}

func (s *verifyUserStep) Compensate(context.Context) error { return nil }

// reserveItemStep fetches one product, reserves its stock and appends the
// priced line to the order.
type reserveItemStep struct {
	products ProductCatalog
	order    *domain.Order
	item     domain.ItemRequest
	index    int
	log      *slog.Logger

	// reserved is set only on a confirmed reservation. A reserve call lost in
	// transport leaves it false and is not released.
	reserved bool
}

func (s *reserveItemStep) Name() string {
	return fmt.Sprintf("reserve-item-%d", s.index)
}

func (s *reserveItemStep) Execute(ctx context.Context) error {
	product, err := s.products.GetProduct(ctx, s.item.ProductID)
	if err != nil {
		return fmt.Errorf("%w: product %d: %w", domain.ErrProductNotFound, s.item.ProductID, err)
	}
	if product == nil {
		return fmt.Errorf("%w: product %d", domain.ErrProductNotFound, s.item.ProductID)
	}

	ok, err := s.products.ReserveStock(ctx, s.item.ProductID, s.item.Quantity)
	if err != nil {
		return fmt.Errorf("%w: product %d: %w", domain.ErrInsufficientStock, s.item.ProductID, err)
	}
	if !ok {
		return fmt.Errorf("%w: product %d, requested %d", domain.ErrInsufficientStock, s.item.ProductID, s.item.Quantity)
	}
	s.reserved = true

	s.order.AddItem(domain.NewLineItem(s.item.ProductID, product.Name, s.item.Quantity, product.Price))
	s.log.DebugContext(ctx, "stock reserved",
		"product_id", s.item.ProductID,
		"quantity", s.item.Quantity,
	)
	return nil
}

// Compensate gives the reserved units back. Only called when the service runs
// with stock release enabled.
func (s *reserveItemStep) Compensate(ctx context.Context) error {
	if !s.reserved {
		return nil
	}
	if err := s.products.ReleaseStock(ctx, s.item.ProductID, s.item.Quantity); err != nil {
		return fmt.Errorf("release %d units of product %d: %w", s.item.Quantity, s.item.ProductID, err)
	}
	s.reserved = false
	return nil
}

type persistOrderStep struct {
	store OrderStore
	order *domain.Order
	now   func() time.Time
}

func (s *persistOrderStep) Name() string { return "persist-order" }

func (s *persistOrderStep) Execute(ctx context.Context) error {
	if err := s.order.Confirm(); err != nil {
		return err
	}
	now := s.now().UTC()
	s.order.CreatedAt, s.order.UpdatedAt = now, now

	if err := s.store.Save(ctx, s.order); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (s *persistOrderStep) Compensate(context.Context) error { return nil }
