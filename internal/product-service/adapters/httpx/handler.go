package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/ecommerce-orders/internal/pkg/web"
	"github.com/jcmexdev/ecommerce-orders/internal/product-service/domain"
)

type ProductService interface {
	CreateProduct(ctx context.Context, p *domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, category string) ([]*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, p *domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	ReserveStock(ctx context.Context, id int64, quantity int) (bool, error)
	ReleaseStock(ctx context.Context, id int64, quantity int) error
}

type Handler struct {
	products ProductService
	log      *slog.Logger
}

func NewHandler(products ProductService, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{products: products, log: log}
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	p, err := h.products.CreateProduct(r.Context(), req.toDomain())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusCreated, mapProductToResponse(p))
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	p, err := h.products.GetProduct(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, mapProductToResponse(p))
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListProducts(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, mapProductsToResponse(products))
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req ProductRequest
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	p, err := h.products.UpdateProduct(r.Context(), id, req.toDomain())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, mapProductToResponse(p))
}

func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.products.DeleteProduct(r.Context(), id); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReserveStock answers 200 with success=false when stock is short; only an
// unknown product is a 404.
func (h *Handler) ReserveStock(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.stockRequest(w, r)
	if !ok {
		return
	}

	success, err := h.products.ReserveStock(r.Context(), id, req.Quantity)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, StockResponse{Success: success, ProductID: id, Quantity: req.Quantity})
}

func (h *Handler) ReleaseStock(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.stockRequest(w, r)
	if !ok {
		return
	}

	if err := h.products.ReleaseStock(r.Context(), id, req.Quantity); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	web.WriteJSON(w, http.StatusOK, StockResponse{Success: true, ProductID: id, Quantity: req.Quantity})
}

func (h *Handler) stockRequest(w http.ResponseWriter, r *http.Request) (int64, StockRequest, bool) {
	var req StockRequest
	id, ok := pathID(w, r)
	if !ok {
		return 0, req, false
	}
	if err := web.DecodeJSON(r, &req); err != nil {
		web.WriteError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return 0, req, false
	}
	return id, req, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		web.WriteError(w, http.StatusBadRequest, "invalid_id", "product id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		web.WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, domain.ErrProductNotFound):
		web.WriteError(w, http.StatusNotFound, "product_not_found", err.Error())
	default:
		h.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		web.WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
