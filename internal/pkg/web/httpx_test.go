package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/ecommerce-orders/internal/pkg/interceptors/constants"
)

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusConflict, "insufficient_stock", "product 3")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"insufficient_stock","message":"product 3"}`, rec.Body.String())
}

func TestDecodeJSON(t *testing.T) {
	var v struct{ A int }

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"A":3}`))
	require.NoError(t, DecodeJSON(req, &v))
	assert.Equal(t, 3, v.A)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"A":`))
	assert.Error(t, DecodeJSON(req, &v))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.Error(t, DecodeJSON(req, &v))
}

func TestAttachRequestMetadata(t *testing.T) {
	var gotID, gotKey string
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(AttachRequestMetadata)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		gotID = RequestIDFromContext(r.Context())
		gotKey = IdempotencyKeyFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "abc")
	req.Header.Set(constants.HeaderXIdempotencyKey, "k-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "abc", gotID)
	assert.Equal(t, "k-1", gotKey)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-Id"))
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestRequestIDTransport(t *testing.T) {
	var header string
	tr := RequestIDTransport{Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		header = r.Header.Get("X-Request-Id")
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
	})}

	ctx := context.WithValue(context.Background(), constants.ContextKeyRequestID, "req-5")
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, "http://example.invalid", nil)
	_, err := tr.RoundTrip(req)

	require.NoError(t, err)
	assert.Equal(t, "req-5", header)
}
