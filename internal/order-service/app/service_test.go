package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/ecommerce-orders/internal/coordinator"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	users   *fakeUsers
	catalog *fakeCatalog
	store   *memStore
	events  *fakeEvents
	svc     *Service
}

func newFixture(t *testing.T, mutate ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		users:   &fakeUsers{known: map[int64]bool{1: true}},
		catalog: newFakeCatalog(),
		store:   newMemStore(),
		events:  &fakeEvents{},
	}
	opts := Options{
		Events: f.events,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    func() time.Time { return fixedNow },
	}
	for _, m := range mutate {
		m(&opts)
	}
	f.svc = NewService(f.users, f.catalog, f.store, opts)
	return f
}

func items(pairs ...int) []domain.ItemRequest {
	var out []domain.ItemRequest
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.ItemRequest{ProductID: int64(pairs[i]), Quantity: pairs[i+1]})
	}
	return out
}

func TestCreateOrder_Example(t *testing.T) {
	f := newFixture(t)
	f.catalog.add(10, "Widget", "9.99", 5)

	order, err := f.svc.CreateOrder(context.Background(), domain.CreateOrderRequest{UserID: 1, Items: items(10, 2)})

	require.NoError(t, err)
	assert.NotZero(t, order.ID)
	assert.Equal(t, int64(1), order.UserID)
	assert.Equal(t, domain.StatusConfirmed, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(10), order.Items[0].ProductID)
	assert.Equal(t, "Widget", order.Items[0].ProductName)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, "9.99", order.Items[0].Price.StringFixed(2))
	assert.Equal(t, "19.98", order.Items[0].Subtotal.StringFixed(2))
	assert.Equal(t, "19.98", order.TotalAmount.StringFixed(2))
	assert.Equal(t, fixedNow, order.CreatedAt)
	assert.Equal(t, 3, f.catalog.stockOf(10))

	stored, err := f.svc.GetOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.TotalAmount.String(), stored.TotalAmount.String())
	assert.Equal(t, []string{"created 1"}, f.events.events)
}

func TestCreateOrder_ExampleInsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.catalog.add(10, "Widget", "9.99", 1)

	order, err := f.svc.CreateOrder(context.Background(), domain.CreateOrderRequest{UserID: 1, Items: items(10, 2)})

	assert.Nil(t, order)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Zero(t, f.store.count())
	assert.Equal(t, 1, f.catalog.stockOf(10))
	assert.Empty(t, f.events.events)
}

func TestCreateOrder_ItemsInInputOrderAndExactTotal(t *testing.T) {
	f := newFixture(t)
	f.catalog.add(3, "C", "1234.56", 10)
	f.catalog.add(1, "A", "0.10", 10)
	f.catalog.add(2, "B", "0.20", 10)

	order, err := f.svc.CreateOrder(context.Background(), domain.CreateOrderRequest{
		UserID: 1,
		Items:  items(3, 7, 1, 3, 2, 1),
	})

	require.NoError(t, err)
	require.Len(t, order.Items, 3)
	assert.Equal(t, []int64{3, 1, 2}, []int64{order.Items[0].ProductID, order.Items[1].ProductID, order.Items[2].ProductID})
	assert.Equal(t, "8641.92", order.Items[0].Subtotal.StringFixed(2))
	assert.Equal(t, "0.30", order.Items[1].Subtotal.StringFixed(2))
	assert.Equal(t, "8642.42", order.TotalAmount.StringFixed(2))
	assert.Equal(t, []string{
		"get 3", "reserve 3 x7",
		"get 1", "reserve 1 x3",
		"get 2", "reserve 2 x1",
	}, f.catalog.callLog())
}

func TestCreateOrder_ValidationMakesNoRemoteCalls(t *testing.T) {
	tests := []struct {
		name string
		req  domain.CreateOrderRequest
	}{
		{name: "zero quantity", req: domain.CreateOrderRequest{UserID: 1, Items: items(10, 0)}},
		{name: "negative quantity second item", req: domain.CreateOrderRequest{UserID: 1, Items: items(10, 1, 11, -1)}},
		{name: "empty items", req: domain.CreateOrderRequest{UserID: 1}},
		{name: "missing product", req: domain.CreateOrderRequest{UserID: 1, Items: items(0, 1)}},
		{name: "missing user", req: domain.CreateOrderRequest{Items: items(10, 1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.catalog.add(10, "Widget", "1.00", 10)

			_, err := f.svc.CreateOrder(context.Background(), tt.req)

			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Zero(t, f.users.calls)
			assert.Empty(t, f.catalog.callLog())
			assert.Zero(t, f.store.count())
		})
	}
}

func TestCreateOrder_UnknownUserSkipsCatalog(t *testing.T) {
	f := newFixture(t)
	f.catalog.add(10, "Widget", "1.00", 10)

	_, err := f.svc.CreateOrder(context.Background(), domain.CreateOrderRequest{UserID: 99, Items: items(10, 1)})

	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Equal(t, 1, f.users.calls)
	assert.Empty(t, f.catalog.callLog())
}

func TestCreateOrder_UserDirectoryDownCollapsesToUserNotFound(t *testing.T) {
	f := newFixture(t)
	f.users.err = errDown

	_, err := f.svc.CreateOrder(context.Background(), domain.CreateOrderRequest{UserID: 1, Items: items(10, 1)})

	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.ErrorIs(t, err, errDown)
	assert.Empty(t, f.catalog.callLog())
}

func TestCreateOrder_UnknownProductKeepsEarlierReservations(t *testing.T) {
	f := newFixture(t)
	f.catalog.add(1, "A", "1.00", 10)

	_, err := f.svc.CreateOrder(context.Background(), domain.CreateOrderRequest{UserID: 1, Items: items(1, 4, 2, 1)})

	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Equal(t, 6, f.catalog.stockOf(1))
	assert.Zero(t, f.store.count())
	assert.NotContains(t, f.catalog.callLog(), "release 1 x4")
}

func TestCreateOrder_CatalogDownCollapsesToProductNotFound(t *testing.T) {
	f := newFixture(t)
	f.catalog.getErr = errDown

	_, err := f.svc.CreateOrder(context.Background(), domain.CreateOrderRequest{UserID: 1, Items: items(1, 1)})

	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.ErrorIs(t, err, errDown)
}

func TestCreateOrder_InsufficientStockAtItemK(t *testing.T) {
	f := newFixture(t)
	f.catalog.add(1, "A", "1.00", 10)
	f.catalog.add(2, "B", "1.00", 10)
	f.catalog.add(3, "C", "1.00", 1)
	f.catalog.add(4, "D", "1.00", 10)

	_, err := f.svc.CreateOrder(context.Background(), domain.CreateOrderRequest{
		UserID: 1,
		Items:  items(1, 2, 2, 2, 3, 2, 4, 2),
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 8, f.catalog.stockOf(1))
	assert.Equal(t, 8, f.catalog.stockOf(2))
	assert.Equal(t, 1, f.catalog.stockOf(3))
	assert.Equal(t, 10, f.catalog.stockOf(4))
	assert.NotContains(t, f.catalog.callLog(), "get 4")
	assert.Zero(t, f.store.count())
}

func TestCreateOrder_ReleaseStockOnAbort(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.ReleaseStockOnAbort = true })
	f.catalog.add(1, "A", "1.00", 10)
	f.catalog.add(2, "B", "1.00", 10)
	f.catalog.add(3, "C", "1.00", 1)

	_, err := f.svc.CreateOrder(context.Background(), domain.CreateOrderRequest{
		UserID: 1,
		Items:  items(1, 2, 2, 3, 3, 2),
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 10, f.catalog.stockOf(1))
	assert.Equal(t, 10, f.catalog.stockOf(2))
	assert.Equal(t, 1, f.catalog.stockOf(3))
	calls := f.catalog.callLog()
	assert.Equal(t, []string{"release 2 x3", "release 1 x2"}, calls[len(calls)-2:])
}

func TestCreateOrder_PersistenceFailure(t *testing.T) {
	dbDown := errors.New("disk full")
	f := newFixture(t, func(o *Options) { o.ReleaseStockOnAbort = true })
	f.catalog.add(1, "A", "1.00", 10)
	f.store.saveErr = dbDown

	_, err := f.svc.CreateOrder(context.Background(), domain.CreateOrderRequest{UserID: 1, Items: items(1, 4)})

	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.ErrorIs(t, err, dbDown)
	assert.Equal(t, 10, f.catalog.stockOf(1))
}

func TestCreateOrder_CancelledContextStopsBeforeNextCall(t *testing.T) {
	f := newFixture(t)
	f.catalog.add(1, "A", "1.00", 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.CreateOrder(ctx, domain.CreateOrderRequest{UserID: 1, Items: items(1, 1)})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, f.users.calls)
	assert.Empty(t, f.catalog.callLog())
}

func TestCreateOrder_EventFailureDoesNotFailOrder(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	f.catalog.add(1, "A", "1.00", 10)

	order, err := f.svc.CreateOrder(context.Background(), domain.CreateOrderRequest{UserID: 1, Items: items(1, 1)})

	require.NoError(t, err)
	assert.NotZero(t, order.ID)
}

type stepRecorder struct {
	coordinator.NopRecorder
	steps []string
}

func (r *stepRecorder) StepFinished(_ context.Context, _, step string, err error) {
	r.steps = append(r.steps, step)
}

func TestCreateOrder_RecorderSeesEveryStep(t *testing.T) {
	rec := &stepRecorder{}
	f := newFixture(t, func(o *Options) { o.Recorder = rec })
	f.catalog.add(1, "A", "1.00", 10)
	f.catalog.add(2, "B", "1.00", 10)

	_, err := f.svc.CreateOrder(context.Background(), domain.CreateOrderRequest{UserID: 1, Items: items(1, 1, 2, 1)})

	require.NoError(t, err)
	assert.Equal(t, []string{"verify-user", "reserve-item-0", "reserve-item-1", "persist-order"}, rec.steps)
}

func TestGetOrder_IsStableAcrossReads(t *testing.T) {
	f := newFixture(t)
	f.catalog.add(1, "A", "2.50", 10)
	created, err := f.svc.CreateOrder(context.Background(), domain.CreateOrderRequest{UserID: 1, Items: items(1, 3)})
	require.NoError(t, err)

	first, err := f.svc.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)
	second, err := f.svc.GetOrder(context.Background(), created.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGetOrder_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.GetOrder(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	f.store.findErr = errDown
	_, err = f.svc.GetOrder(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestListOrders(t *testing.T) {
	f := newFixture(t)
	f.users.known[2] = true
	f.catalog.add(1, "A", "1.00", 10)
	ctx := context.Background()
	for _, uid := range []int64{1, 2, 1} {
		_, err := f.svc.CreateOrder(ctx, domain.CreateOrderRequest{UserID: uid, Items: items(1, 1)})
		require.NoError(t, err)
	}

	all, err := f.svc.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := f.svc.ListOrdersByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, int64(1), mine[0].ID)
	assert.Equal(t, int64(3), mine[1].ID)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t)
	f.catalog.add(1, "A", "1.00", 10)
	ctx := context.Background()
	created, err := f.svc.CreateOrder(ctx, domain.CreateOrderRequest{UserID: 1, Items: items(1, 1)})
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(ctx, created.ID, domain.StatusShipped)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, updated.Status)

	stored, err := f.svc.GetOrder(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, stored.Status)
	assert.Equal(t, []string{"created 1", "status 1 CONFIRMED->SHIPPED"}, f.events.events)

	_, err = f.svc.UpdateStatus(ctx, 77, domain.StatusShipped)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestUpdateStatus_RejectsPending(t *testing.T) {
	f := newFixture(t)
	f.catalog.add(1, "A", "1.00", 10)
	ctx := context.Background()
	created, err := f.svc.CreateOrder(ctx, domain.CreateOrderRequest{UserID: 1, Items: items(1, 1)})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, created.ID, domain.StatusPending)
	assert.ErrorIs(t, err, domain.ErrValidation)

	stored, err := f.svc.GetOrder(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, stored.Status)
	assert.Equal(t, []string{"created 1"}, f.events.events)
}
