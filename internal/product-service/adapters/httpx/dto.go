package httpx

import (
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/ecommerce-orders/internal/product-service/domain"
)

type ProductRequest struct {
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	Category      string          `json:"category"`
}

// ProductResponse carries the price as a decimal string, e.g. "9.99".
type ProductResponse struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	Category      string          `json:"category"`
}

type StockRequest struct {
	Quantity int `json:"quantity"`
}

type StockResponse struct {
	Success   bool  `json:"success"`
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

func (r ProductRequest) toDomain() *domain.Product {
	return &domain.Product{
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		StockQuantity: r.StockQuantity,
		Category:      r.Category,
	}
}

func mapProductToResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Category:      p.Category,
	}
}

func mapProductsToResponse(products []*domain.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = mapProductToResponse(p)
	}
	return out
}
