package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

// ProductClient reads products and moves stock through the product service.
type ProductClient struct {
	base
}

func NewProductClient(cfg Config) *ProductClient {
	return &ProductClient{base: newBase("product-service", cfg)}
}

type productBody struct {
	ID    *int64          `json:"id"`
	Name  string          `json:"name"`
	Price json.RawMessage `json:"price"`
}

type stockRequest struct {
	Quantity int `json:"quantity"`
}

type stockResponse struct {
	Success bool `json:"success"`
}

// GetProduct returns (nil, nil) when the product service answers 404.
func (c *ProductClient) GetProduct(ctx context.Context, productID int64) (*domain.ProductSnapshot, error) {
	path := fmt.Sprintf("/api/products/%d", productID)
	status, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusNotFound:
		return nil, nil
	case !isSuccess(status):
		return nil, c.unexpected(http.MethodGet, path, status)
	}

	var p productBody
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: product-service: decode product: %w", ErrUnavailable, err)
	}
	if p.ID == nil {
		return nil, nil
	}
	price, err := ParsePrice(p.Price)
	if err != nil {
		return nil, fmt.Errorf("%w: product-service: product %d: %w", ErrUnavailable, productID, err)
	}

	return &domain.ProductSnapshot{ID: *p.ID, Name: p.Name, Price: price}, nil
}

// ReserveStock asks the catalog to decrement stock. false means the catalog
// refused (not enough stock or unknown product).
func (c *ProductClient) ReserveStock(ctx context.Context, productID int64, quantity int) (bool, error) {
	path := fmt.Sprintf("/api/products/%d/stock", productID)
	status, body, err := c.do(ctx, http.MethodPost, path, stockRequest{Quantity: quantity})
	if err != nil {
		return false, err
	}

	switch {
	case status == http.StatusNotFound, status == http.StatusConflict:
		return false, nil
	case !isSuccess(status):
		return false, c.unexpected(http.MethodPost, path, status)
	}

	var res stockResponse
	if err := json.Unmarshal(body, &res); err != nil {
		return false, fmt.Errorf("%w: product-service: decode stock response: %w", ErrUnavailable, err)
	}
	return res.Success, nil
}

// ReleaseStock returns quantity units to the product's stock.
func (c *ProductClient) ReleaseStock(ctx context.Context, productID int64, quantity int) error {
	path := fmt.Sprintf("/api/products/%d/stock/release", productID)
	status, _, err := c.do(ctx, http.MethodPost, path, stockRequest{Quantity: quantity})
	if err != nil {
		return err
	}
	if !isSuccess(status) {
		return c.unexpected(http.MethodPost, path, status)
	}
	return nil
}

// ParsePrice accepts a JSON number or a JSON string holding a decimal, and
// never goes through float64.
func ParsePrice(raw json.RawMessage) (decimal.Decimal, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Decimal{}, fmt.Errorf("missing price")
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return decimal.Decimal{}, fmt.Errorf("invalid price %s: %w", raw, err)
		}
	}

	price, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("invalid price %s: %w", raw, err)
	}
	if price.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("negative price %s", raw)
	}
	return domain.Money(price), nil
}
