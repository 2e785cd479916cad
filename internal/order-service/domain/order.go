package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits kept for prices, subtotals and totals.
const MoneyScale = 2

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusShipped   OrderStatus = "SHIPPED"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
)

var knownStatuses = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

// ParseStatus matches s case-insensitively against the known statuses.
func ParseStatus(s string) (OrderStatus, error) {
	candidate := strings.ToUpper(strings.TrimSpace(s))
	for _, st := range knownStatuses {
		if string(st) == candidate {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown order status %q", ErrValidation, s)
}

// Order is the aggregate root. Its total is always derived from its items.
type Order struct {
	ID          int64
	UserID      int64
	Status      OrderStatus
	Items       []LineItem
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOrder returns an empty PENDING order for userID.
func NewOrder(userID int64) *Order {
	return &Order{
		UserID:      userID,
		Status:      StatusPending,
		TotalAmount: Money(decimal.Zero),
	}
}

// AddItem appends item and folds its subtotal into the total.
func (o *Order) AddItem(item LineItem) {
	o.Items = append(o.Items, item)
	o.TotalAmount = Money(o.TotalAmount.Add(item.Subtotal))
}

// Recalculate recomputes every subtotal and the total from price and quantity.
// Called after loading an order so stored derived values are never trusted.
func (o *Order) Recalculate() {
	total := decimal.Zero
	for i := range o.Items {
		o.Items[i].recompute()
		total = total.Add(o.Items[i].Subtotal)
	}
	o.TotalAmount = Money(total)
}

// Confirm moves a PENDING order to CONFIRMED.
func (o *Order) Confirm() error {
	if o.Status != StatusPending {
		return fmt.Errorf("%w: cannot confirm order in status %s", ErrValidation, o.Status)
	}
	o.Status = StatusConfirmed
	return nil
}

// LineItem is a product line owned by an Order.
type LineItem struct {
	ProductID   int64
	ProductName string
	Quantity    int
	Price       decimal.Decimal
	Subtotal    decimal.Decimal
}

// NewLineItem builds a line item and computes its subtotal.
func NewLineItem(productID int64, name string, quantity int, price decimal.Decimal) LineItem {
	item := LineItem{
		ProductID:   productID,
		ProductName: name,
		Quantity:    quantity,
		Price:       Money(price),
	}
	item.recompute()
	return item
}

func (i *LineItem) SetQuantity(quantity int) {
	i.Quantity = quantity
	i.recompute()
}

func (i *LineItem) SetPrice(price decimal.Decimal) {
	i.Price = Money(price)
	i.recompute()
}

func (i *LineItem) recompute() {
	i.Price = Money(i.Price)
	i.Subtotal = Money(i.Price.Mul(decimal.NewFromInt(int64(i.Quantity))))
}

// Money rounds d to MoneyScale using half-up rounding.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// ProductSnapshot is what the catalog tells us about a product at order time.
type ProductSnapshot struct {
	ID    int64
	Name  string
	Price decimal.Decimal
}
