package httpx

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/cache"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/web"
)

// pendingMarker occupies an idempotency key while its request is in flight.
// Cached values are "<fingerprint>|<marker or order id>".
const pendingMarker = "pending"

type OrderService interface {
	CreateOrder(ctx context.Context, req domain.CreateOrderRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
}

// Handler serves the order HTTP API.
type Handler struct {
	orders OrderService
	// idempotency is nil when no Redis is configured.
	idempotency cache.Cache
	ttl         time.Duration
	log         *slog.Logger
}

func NewHandler(orders OrderService, idempotency cache.Cache, ttl time.Duration, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{orders: orders, idempotency: idempotency, ttl: ttl, log: log}
}

// CreateOrder runs the order workflow. With an X-Idempotency-Key header a
// repeated request returns the order created by the first one. Reusing a key
// with a different body is rejected with 422.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	ctx := r.Context()
	idemKey := web.IdempotencyKeyFromContext(ctx)
	if h.idempotency != nil && idemKey != "" {
		key := h.idempotency.GenerateKey("create-order", idemKey)
		fp := fingerprint(req)
		if h.replay(w, r, key, fp) {
			return
		}
		h.createAndRemember(w, r, req, key, fp)
		return
	}

	order, err := h.orders.CreateOrder(ctx, req.toDomain())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, mapOrderToResponse(order))
}

// replay answers from the idempotency cache and reports whether it did.
func (h *Handler) replay(w http.ResponseWriter, r *http.Request, key, fp string) bool {
	ctx := r.Context()
	claimed, err := h.idempotency.SetNX(ctx, key, fp+"|"+pendingMarker, h.ttl)
	if err != nil {
		// cache down: serve the request without idempotency
		h.log.WarnContext(ctx, "idempotency cache unavailable", "error", err)
		return false
	}
	if claimed {
		return false
	}

	val, err := h.idempotency.Get(ctx, key)
	if err != nil || val == "" {
		web.WriteError(w, http.StatusConflict, "request_in_progress", "a request with this idempotency key is still being processed")
		return true
	}
	stored, val, _ := strings.Cut(val, "|")
	if stored != fp {
		web.WriteError(w, http.StatusUnprocessableEntity, "idempotency_key_reused", "idempotency key was already used with a different request body")
		return true
	}
	if val == pendingMarker {
		web.WriteError(w, http.StatusConflict, "request_in_progress", "a request with this idempotency key is still being processed")
		return true
	}

	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		web.WriteError(w, http.StatusConflict, "request_in_progress", "a request with this idempotency key is still being processed")
		return true
	}
	order, err := h.orders.GetOrder(ctx, id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return true
	}
	h.log.InfoContext(ctx, "idempotent replay", "order_id", id)
	web.WriteJSON(w, http.StatusOK, mapOrderToResponse(order))
	return true
}

func (h *Handler) createAndRemember(w http.ResponseWriter, r *http.Request, req CreateOrderRequest, key, fp string) {
	ctx := r.Context()
	order, err := h.orders.CreateOrder(ctx, req.toDomain())
	if err != nil {
		h.forget(ctx, key)
		h.writeDomainError(w, r, err)
		return
	}
	if err := h.idempotency.Set(context.WithoutCancel(ctx), key, fp+"|"+strconv.FormatInt(order.ID, 10), h.ttl); err != nil {
		h.log.WarnContext(ctx, "failed to remember idempotency key", "order_id", order.ID, "error", err)
	}
	web.WriteJSON(w, http.StatusCreated, mapOrderToResponse(order))
}

// fingerprint hashes the decoded request, so formatting differences in the
// raw body do not count as a different request.
func fingerprint(req CreateOrderRequest) string {
	b, _ := json.Marshal(req)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:16])
}

func (h *Handler) forget(ctx context.Context, key string) {
	if err := h.idempotency.Delete(context.WithoutCancel(ctx), key); err != nil {
		h.log.WarnContext(ctx, "failed to release idempotency key", "error", err)
	}
}

func (h *Handler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	order, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, mapOrderToResponse(order))
}

// ListOrders returns every order, or those of ?userId= when given.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var (
		orders []*domain.Order
		err    error
	)
	if raw := r.URL.Query().Get("userId"); raw != "" {
		userID, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil {
			web.WriteError(w, http.StatusBadRequest, "invalid_user_id", "userId must be an integer")
			return
		}
		orders, err = h.orders.ListOrdersByUser(r.Context(), userID)
	} else {
		orders, err = h.orders.ListOrders(r.Context())
	}
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, mapOrdersToResponse(orders))
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	status, err := domain.ParseStatus(req.Status)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), id, status)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, mapOrderToResponse(order))
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		web.WriteError(w, http.StatusBadRequest, "invalid_id", "order id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	web.WriteError(w, status, code, err.Error())
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user_not_found"
	case errors.Is(err, domain.ErrProductNotFound):
		return http.StatusNotFound, "product_not_found"
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict, "insufficient_stock"
	case errors.Is(err, domain.ErrOrderNotFound):
		return http.StatusNotFound, "order_not_found"
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusInternalServerError, "persistence_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request_cancelled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
