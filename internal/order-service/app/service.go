// Package app hosts the order use cases. CreateOrder runs as a coordinator
// workflow: verify the user, then reserve and price each item in request
// order, then persist. The first failure stops the run.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/ecommerce-orders/internal/coordinator"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

type Options struct {
	// ReleaseStockOnAbort hands reserved stock back to the catalog when a
	// later step fails. Off by default: a failed run keeps its reservations.
	ReleaseStockOnAbort bool

	Recorder coordinator.Recorder
	// Events is optional.
	Events EventPublisher
	Logger *slog.Logger
	Now    func() time.Time
}

type Service struct {
	users    UserDirectory
	products ProductCatalog
	store    OrderStore
	opts     Options
	log      *slog.Logger
}

func NewService(users UserDirectory, products ProductCatalog, store OrderStore, opts Options) *Service {
	if opts.Recorder == nil {
		opts.Recorder = coordinator.NopRecorder{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		users:    users,
		products: products,
		store:    store,
		opts:     opts,
		log:      opts.Logger,
	}
}

// CreateOrder validates req, runs the order workflow and returns the
// persisted CONFIRMED order.
func (s *Service) CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	order := domain.NewOrder(req.UserID)

	steps := make([]coordinator.Step, 0, len(req.Items)+2)
	steps = append(steps, &verifyUserStep{users: s.users, userID: req.UserID})
	for i, item := range req.Items {
		steps = append(steps, &reserveItemStep{
			products: s.products,
			order:    order,
			item:     item,
			index:    i,
			log:      s.log.With("run_id", runID),
		})
	}
	steps = append(steps, &persistOrderStep{store: s.store, order: order, now: s.opts.Now})

	workflow := coordinator.NewOrchestrator(runID, steps,
		coordinator.WithRecorder(s.opts.Recorder),
		coordinator.WithCompensation(s.opts.ReleaseStockOnAbort),
		coordinator.WithPayload(payloadOf(req)),
		coordinator.WithLogger(s.log),
	)

	s.log.InfoContext(ctx, "creating order", "run_id", runID, "user_id", req.UserID, "items", len(req.Items))
	if err := workflow.Start(ctx); err != nil {
		s.log.WarnContext(ctx, "order creation failed", "run_id", runID, "user_id", req.UserID, "error", err)
		return nil, err
	}

	s.log.InfoContext(ctx, "order created",
		"run_id", runID,
		"order_id", order.ID,
		"total", order.TotalAmount.StringFixed(domain.MoneyScale),
	)
	if s.opts.Events != nil {
		if err := s.opts.Events.OrderCreated(ctx, order); err != nil {
			s.log.ErrorContext(ctx, "failed to publish order created event", "order_id", order.ID, "error", err)
		}
	}
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	order, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: find order %d: %w", domain.ErrPersistence, id, err)
	}
	if order == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrOrderNotFound, id)
	}
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	orders, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders: %w", domain.ErrPersistence, err)
	}
	return orders, nil
}

func (s *Service) ListOrdersByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	orders, err := s.store.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list orders of user %d: %w", domain.ErrPersistence, userID, err)
	}
	return orders, nil
}

// UpdateStatus overwrites the status of an existing order. Any known status is
// accepted from any other.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	// PENDING belongs to orders still being built; a persisted order never returns to it.
	if status == domain.StatusPending {
		return nil, fmt.Errorf("%w: order %d cannot be moved back to %s", domain.ErrValidation, id, status)
	}

	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	previous := order.Status
	order.Status = status
	order.UpdatedAt = s.opts.Now().UTC()
	if err := s.store.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("%w: update order %d: %w", domain.ErrPersistence, id, err)
	}

	s.log.InfoContext(ctx, "order status updated", "order_id", id, "from", previous, "to", status)
	if s.opts.Events != nil && previous != status {
		if err := s.opts.Events.OrderStatusChanged(ctx, order, previous); err != nil {
			s.log.ErrorContext(ctx, "failed to publish status change event", "order_id", id, "error", err)
		}
	}
	return order, nil
}

func payloadOf(req domain.CreateOrderRequest) string {
	type item struct {
		ProductID int64 `json:"productId"`
		Quantity  int   `json:"quantity"`
	}
	body := struct {
		UserID int64  `json:"userId"`
		Items  []item `json:"items"`
	}{UserID: req.UserID}
	for _, it := range req.Items {
		body.Items = append(body.Items, item{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	b, _ := json.Marshal(body)
	return string(b)
}
