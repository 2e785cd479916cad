package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

var errDown = errors.New("connection refused")

type fakeUsers struct {
	mu    sync.Mutex
	known map[int64]bool
	err   error
	calls int
}

func (f *fakeUsers) VerifyUser(_ context.Context, userID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.known[userID], nil
}

type fakeCatalog struct {
	mu       sync.Mutex
	products map[int64]domain.ProductSnapshot
	stock    map[int64]int
	getErr   error
	calls    []string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[int64]domain.ProductSnapshot{},
		stock:    map[int64]int{},
	}
}

func (f *fakeCatalog) add(id int64, name, price string, stock int) {
	f.products[id] = domain.ProductSnapshot{ID: id, Name: name, Price: decimal.RequireFromString(price)}
	f.stock[id] = stock
}

func (f *fakeCatalog) GetProduct(_ context.Context, id int64) (*domain.ProductSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("get %d", id))
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeCatalog) ReserveStock(_ context.Context, id int64, qty int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("reserve %d x%d", id, qty))
	if f.stock[id] < qty {
		return false, nil
	}
	f.stock[id] -= qty
	return true, nil
}

func (f *fakeCatalog) ReleaseStock(_ context.Context, id int64, qty int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf("release %d x%d", id, qty))
	f.stock[id] += qty
	return nil
}

func (f *fakeCatalog) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeCatalog) stockOf(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stock[id]
}

// memStore keeps deep copies so callers cannot mutate stored orders.
type memStore struct {
	mu      sync.Mutex
	nextID  int64
	orders  map[int64]domain.Order
	saveErr error
	findErr error
}

func newMemStore() *memStore {
	return &memStore{orders: map[int64]domain.Order{}}
}

func (m *memStore) Save(_ context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if o.ID == 0 {
		m.nextID++
		o.ID = m.nextID
	}
	m.orders[o.ID] = clone(o)
	return nil
}

func (m *memStore) FindByID(_ context.Context, id int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	c := clone(&o)
	return &c, nil
}

func (m *memStore) FindAll(_ context.Context) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	var out []*domain.Order
	for id := int64(1); id <= m.nextID; id++ {
		if o, ok := m.orders[id]; ok {
			c := clone(&o)
			out = append(out, &c)
		}
	}
	return out, nil
}

func (m *memStore) FindByUserID(ctx context.Context, userID int64) ([]*domain.Order, error) {
	all, err := m.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []*domain.Order
	for _, o := range all {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func clone(o *domain.Order) domain.Order {
	c := *o
	c.Items = append([]domain.LineItem(nil), o.Items...)
	return c
}

type fakeEvents struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (f *fakeEvents) OrderCreated(_ context.Context, o *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, fmt.Sprintf("created %d", o.ID))
	return f.err
}

func (f *fakeEvents) OrderStatusChanged(_ context.Context, o *domain.Order, prev domain.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, fmt.Sprintf("status %d %s->%s", o.ID, prev, o.Status))
	return f.err
}
