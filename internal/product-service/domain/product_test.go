package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProduct_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       Product
		wantErr bool
	}{
		{name: "valid", p: Product{Name: "Widget", Price: decimal.RequireFromString("9.99"), StockQuantity: 3}},
		{name: "blank name", p: Product{Name: "  ", Price: decimal.RequireFromString("1")}, wantErr: true},
		{name: "negative price", p: Product{Name: "A", Price: decimal.RequireFromString("-1")}, wantErr: true},
		{name: "negative stock", p: Product{Name: "A", StockQuantity: -1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.p.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProduct_ValidateRoundsPrice(t *testing.T) {
	p := Product{Name: " Widget ", Price: decimal.RequireFromString("9.987"), Category: " tools "}

	assert.NoError(t, p.Validate())
	assert.Equal(t, "9.99", p.Price.StringFixed(2))
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, "tools", p.Category)
}
