package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newServer(t *testing.T, register func(r chi.Router)) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func writeBody(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestUserClient_VerifyUser(t *testing.T) {
	srv := newServer(t, func(r chi.Router) {
		r.Get("/api/users/1", func(w http.ResponseWriter, _ *http.Request) {
			writeBody(w, http.StatusOK, `{"id":1,"name":"Ada","email":"ada@example.com"}`)
		})
		r.Get("/api/users/2", func(w http.ResponseWriter, _ *http.Request) {
			writeBody(w, http.StatusNotFound, `{"error":"user_not_found"}`)
		})
		r.Get("/api/users/3", func(w http.ResponseWriter, _ *http.Request) {
			writeBody(w, http.StatusOK, `{"name":"no id"}`)
		})
		r.Get("/api/users/4", func(w http.ResponseWriter, _ *http.Request) {
			writeBody(w, http.StatusInternalServerError, `{}`)
		})
		r.Get("/api/users/5", func(w http.ResponseWriter, _ *http.Request) {
			writeBody(w, http.StatusOK, `not json`)
		})
	})
	c := NewUserClient(Config{BaseURL: srv.URL + "/", Timeout: time.Second, Logger: quiet()})
	ctx := context.Background()

	ok, err := c.VerifyUser(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.VerifyUser(ctx, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.VerifyUser(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.VerifyUser(ctx, 4)
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = c.VerifyUser(ctx, 5)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestUserClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewUserClient(Config{BaseURL: url, Timeout: time.Second, Logger: quiet()})
	_, err := c.VerifyUser(context.Background(), 1)

	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestUserClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := newServer(t, func(r chi.Router) {
		r.Get("/api/users/1", func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		})
	})
	defer close(release)

	c := NewUserClient(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Logger: quiet()})
	start := time.Now()
	_, err := c.VerifyUser(context.Background(), 1)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestProductClient_GetProduct(t *testing.T) {
	srv := newServer(t, func(r chi.Router) {
		r.Get("/api/products/10", func(w http.ResponseWriter, _ *http.Request) {
			writeBody(w, http.StatusOK, `{"id":10,"name":"Widget","price":9.99,"stockQuantity":5}`)
		})
		r.Get("/api/products/11", func(w http.ResponseWriter, _ *http.Request) {
			writeBody(w, http.StatusOK, `{"id":11,"name":"Gadget","price":"1234.56"}`)
		})
		r.Get("/api/products/12", func(w http.ResponseWriter, _ *http.Request) {
			writeBody(w, http.StatusOK, `{"id":12,"name":"Broken","price":"abc"}`)
		})
		r.Get("/api/products/13", func(w http.ResponseWriter, _ *http.Request) {
			writeBody(w, http.StatusNotFound, ``)
		})
		r.Get("/api/products/14", func(w http.ResponseWriter, _ *http.Request) {
			writeBody(w, http.StatusBadGateway, ``)
		})
	})
	c := NewProductClient(Config{BaseURL: srv.URL, Timeout: time.Second, Logger: quiet()})
	ctx := context.Background()

	p, err := c.GetProduct(ctx, 10)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(10), p.ID)
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, "9.99", p.Price.StringFixed(2))

	p, err = c.GetProduct(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, "1234.56", p.Price.StringFixed(2))

	_, err = c.GetProduct(ctx, 12)
	assert.ErrorIs(t, err, ErrUnavailable)

	p, err = c.GetProduct(ctx, 13)
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = c.GetProduct(ctx, 14)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestProductClient_ReserveStock(t *testing.T) {
	var gotQty int
	srv := newServer(t, func(r chi.Router) {
		r.Post("/api/products/{id}/stock", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Quantity int `json:"quantity"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			gotQty = body.Quantity
			switch chi.URLParam(r, "id") {
			case "1":
				writeBody(w, http.StatusOK, `{"success":true,"productId":1,"quantity":2}`)
			case "2":
				writeBody(w, http.StatusOK, `{"success":false,"productId":2,"quantity":2}`)
			case "3":
				writeBody(w, http.StatusNotFound, `{}`)
			default:
				writeBody(w, http.StatusInternalServerError, `{}`)
			}
		})
	})
	c := NewProductClient(Config{BaseURL: srv.URL, Timeout: time.Second, Logger: quiet()})
	ctx := context.Background()

	ok, err := c.ReserveStock(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, gotQty)

	ok, err = c.ReserveStock(ctx, 2, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = c.ReserveStock(ctx, 3, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = c.ReserveStock(ctx, 4, 2)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestProductClient_ReleaseStock(t *testing.T) {
	var released int
	srv := newServer(t, func(r chi.Router) {
		r.Post("/api/products/1/stock/release", func(w http.ResponseWriter, r *http.Request) {
			var body struct {
				Quantity int `json:"quantity"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			released += body.Quantity
			writeBody(w, http.StatusOK, `{"success":true}`)
		})
	})
	c := NewProductClient(Config{BaseURL: srv.URL, Timeout: time.Second, Logger: quiet()})

	require.NoError(t, c.ReleaseStock(context.Background(), 1, 3))
	assert.Equal(t, 3, released)

	assert.ErrorIs(t, c.ReleaseStock(context.Background(), 2, 1), ErrUnavailable)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw     string
		want    string
		wantErr bool
	}{
		{raw: `9.99`, want: "9.99"},
		{raw: `"9.99"`, want: "9.99"},
		{raw: `10`, want: "10.00"},
		{raw: `0.005`, want: "0.01"},
		{raw: `1e2`, want: "100.00"},
		{raw: `null`, wantErr: true},
		{raw: ``, wantErr: true},
		{raw: `"nine"`, wantErr: true},
		{raw: `-1`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParsePrice(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}
