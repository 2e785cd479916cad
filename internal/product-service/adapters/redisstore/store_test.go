package redisstore

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/ecommerce-orders/internal/product-service/domain"
)

// getRedisClient uses DB 15 and flushes it, so it never touches a dev catalog in DB 0.
func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 15})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	require.NoError(t, client.FlushDB(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func widget(stock int, category string) *domain.Product {
	return &domain.Product{
		Name:          "Widget",
		Description:   "A widget",
		Price:         decimal.RequireFromString("9.99"),
		StockQuantity: stock,
		Category:      category,
	}
}

func TestStore_CreateAndFind(t *testing.T) {
	s := NewStore(getRedisClient(t))
	ctx := context.Background()

	p := widget(5, "tools")
	require.NoError(t, s.Create(ctx, p))
	assert.Equal(t, int64(1), p.ID)

	got, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Widget", got.Name)
	assert.Equal(t, "9.99", got.Price.StringFixed(2))
	assert.Equal(t, 5, got.StockQuantity)

	missing, err := s.FindByID(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_ListByCategoryFollowsUpdates(t *testing.T) {
	s := NewStore(getRedisClient(t))
	ctx := context.Background()

	a := widget(1, "tools")
	b := widget(1, "toys")
	require.NoError(t, s.Create(ctx, a))
	require.NoError(t, s.Create(ctx, b))

	all, err := s.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	b.Category = "tools"
	require.NoError(t, s.Update(ctx, b))

	tools, err := s.FindByCategory(ctx, "tools")
	require.NoError(t, err)
	assert.Len(t, tools, 2)
	toys, err := s.FindByCategory(ctx, "toys")
	require.NoError(t, err)
	assert.Empty(t, toys)

	require.NoError(t, s.Delete(ctx, a.ID))
	all, err = s.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, b.ID, all[0].ID)
}

func TestStore_UpdateAndDeleteUnknown(t *testing.T) {
	s := NewStore(getRedisClient(t))
	ctx := context.Background()

	p := widget(1, "")
	p.ID = 42
	assert.ErrorIs(t, s.Update(ctx, p), domain.ErrProductNotFound)
	assert.ErrorIs(t, s.Delete(ctx, 42), domain.ErrProductNotFound)
}

func TestStore_DecrementStock(t *testing.T) {
	s := NewStore(getRedisClient(t))
	ctx := context.Background()
	p := widget(2, "")
	require.NoError(t, s.Create(ctx, p))

	ok, err := s.DecrementStock(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.DecrementStock(ctx, p.ID, 2)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.IncrementStock(ctx, p.ID, 1))
	got, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StockQuantity)

	_, err = s.DecrementStock(ctx, 99, 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.ErrorIs(t, s.IncrementStock(ctx, 99, 1), domain.ErrProductNotFound)
}

func TestStore_DecrementStockNeverOversells(t *testing.T) {
	s := NewStore(getRedisClient(t))
	ctx := context.Background()
	p := widget(10, "")
	require.NoError(t, s.Create(ctx, p))

	var sold atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.DecrementStock(ctx, p.ID, 1)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if ok {
				sold.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), sold.Load())
	got, err := s.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)
}
