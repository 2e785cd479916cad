package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrProductNotFound = errors.New("product not found")
)

type Product struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	Category      string          `json:"category"`
}

// Validate checks the writable fields and rounds the price to cents.
func (p *Product) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrValidation)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	case p.StockQuantity < 0:
		return fmt.Errorf("%w: stock quantity must not be negative", ErrValidation)
	}
	p.Price = p.Price.Round(2)
	return nil
}
