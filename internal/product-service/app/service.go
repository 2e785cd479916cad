package app

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/ecommerce-orders/internal/product-service/domain"
)

// Repository is the catalog storage. FindByID returns (nil, nil) when absent.
// DecrementStock must be atomic per product.
type Repository interface {
	Create(ctx context.Context, p *domain.Product) error
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.Product, error)
	FindAll(ctx context.Context) ([]*domain.Product, error)
	FindByCategory(ctx context.Context, category string) ([]*domain.Product, error)
	DecrementStock(ctx context.Context, id int64, quantity int) (bool, error)
	IncrementStock(ctx context.Context, id int64, quantity int) error
}

type Service struct {
	repo   Repository
	log    *slog.Logger
	tracer trace.Tracer
}

func NewService(repo Repository, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		repo:   repo,
		log:    log,
		tracer: otel.Tracer("github.com/jcmexdev/ecommerce-orders/internal/product-service"),
	}
}

func (s *Service) CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "CreateProduct")
	defer span.End()

	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Int64("product.id", p.ID), attribute.String("product.name", p.Name))
	s.log.InfoContext(ctx, "product created", "product_id", p.ID, "name", p.Name)
	return p, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "GetProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrProductNotFound, id)
	}
	return p, nil
}

// ListProducts returns the whole catalog, or one category when category is set.
func (s *Service) ListProducts(ctx context.Context, category string) ([]*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "ListProducts", trace.WithAttributes(attribute.String("product.category", category)))
	defer span.End()

	var (
		products []*domain.Product
		err      error
	)
	if category != "" {
		products, err = s.repo.FindByCategory(ctx, category)
	} else {
		products, err = s.repo.FindAll(ctx)
	}
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Int("products.count", len(products)))
	return products, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id int64, p *domain.Product) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "UpdateProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.ID = id
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, fail(span, err)
	}
	s.log.InfoContext(ctx, "product updated", "product_id", id)
	return p, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "DeleteProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		return fail(span, err)
	}
	s.log.InfoContext(ctx, "product deleted", "product_id", id)
	return nil
}

// ReserveStock decrements stock by quantity. It returns false, not an error,
// when there is not enough.
func (s *Service) ReserveStock(ctx context.Context, id int64, quantity int) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "ReserveStock", trace.WithAttributes(
		attribute.Int64("product.id", id),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	if quantity <= 0 {
		return false, fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}
	ok, err := s.repo.DecrementStock(ctx, id, quantity)
	if err != nil {
		return false, fail(span, err)
	}
	span.SetAttributes(attribute.Bool("stock.sufficient", ok))
	if !ok {
		s.log.WarnContext(ctx, "insufficient stock", "product_id", id, "quantity", quantity)
		return false, nil
	}
	s.log.InfoContext(ctx, "stock reserved", "product_id", id, "quantity", quantity)
	return true, nil
}

func (s *Service) ReleaseStock(ctx context.Context, id int64, quantity int) error {
	ctx, span := s.tracer.Start(ctx, "ReleaseStock", trace.WithAttributes(
		attribute.Int64("product.id", id),
		attribute.Int("quantity", quantity),
	))
	defer span.End()

	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", domain.ErrValidation)
	}
	if err := s.repo.IncrementStock(ctx, id, quantity); err != nil {
		return fail(span, err)
	}
	s.log.InfoContext(ctx, "stock released", "product_id", id, "quantity", quantity)
	return nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
