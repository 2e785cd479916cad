package app

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/ecommerce-orders/internal/user-service/domain"
)

// Repository stores users. FindByID returns (nil, nil) when absent; writes
// that collide on email return domain.ErrEmailTaken.
type Repository interface {
	Create(ctx context.Context, u *domain.User) error
	Update(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindAll(ctx context.Context) ([]*domain.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
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
		tracer: otel.Tracer("github.com/jcmexdev/ecommerce-orders/internal/user-service"),
	}
}

func (s *Service) CreateUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "CreateUser")
	defer span.End()

	if err := u.Validate(); err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByEmail(ctx, u.Email)
	if err != nil {
		return nil, fail(span, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmailTaken, u.Email)
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Int64("user.id", u.ID))
	s.log.InfoContext(ctx, "user created", "user_id", u.ID)
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "GetUser", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}
	if u == nil {
		return nil, fmt.Errorf("%w: %d", domain.ErrUserNotFound, id)
	}
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "ListUsers")
	defer span.End()

	users, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fail(span, err)
	}
	span.SetAttributes(attribute.Int("users.count", len(users)))
	return users, nil
}

func (s *Service) UpdateUser(ctx context.Context, id int64, u *domain.User) (*domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "UpdateUser", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	if err := u.Validate(); err != nil {
		return nil, err
	}
	u.ID = id
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, fail(span, err)
	}
	s.log.InfoContext(ctx, "user updated", "user_id", id)
	return u, nil
}

func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	ctx, span := s.tracer.Start(ctx, "DeleteUser", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		return fail(span, err)
	}
	s.log.InfoContext(ctx, "user deleted", "user_id", id)
	return nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
