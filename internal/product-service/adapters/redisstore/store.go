// Package redisstore keeps the catalog in Redis. Product records live at
// product:{id} as JSON without their stock; the stock counter lives at
// stock:{id} so it can be decremented atomically.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/ecommerce-orders/internal/product-service/domain"
)

const (
	productKeyPrefix  = "product:"
	stockKeyPrefix    = "stock:"
	categoryKeyPrefix = "category:"
	allProductsKey    = "products:all"
	sequenceKey       = "product:seq"
)

// decrementStockScript returns -1 for an unknown product, 0 when stock is
// short and 1 after a successful decrement.
var decrementStockScript = redis.NewScript(`
local key = KEYS[1]
local quantity = tonumber(ARGV[1])

local current = redis.call('GET', key)
if not current then
	return -1
end

current = tonumber(current)
if current >= quantity then
	redis.call('DECRBY', key, quantity)
	return 1
end

return 0
`)

var releaseStockScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
return redis.call('INCRBY', KEYS[1], ARGV[1])
`)

type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func productKey(id int64) string  { return productKeyPrefix + strconv.FormatInt(id, 10) }
func stockKey(id int64) string    { return stockKeyPrefix + strconv.FormatInt(id, 10) }
func categoryKey(c string) string { return categoryKeyPrefix + c }

// record is the stored shape; stock is kept under its own key.
type record struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Category    string `json:"category"`
}

func toRecord(p *domain.Product) record {
	return record{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Category:    p.Category,
	}
}

func (s *Store) Create(ctx context.Context, p *domain.Product) error {
	id, err := s.client.Incr(ctx, sequenceKey).Result()
	if err != nil {
		return fmt.Errorf("redisstore: next product id: %w", err)
	}
	p.ID = id
	return s.write(ctx, p, "")
}

// Update overwrites name, description, price, stock and category.
func (s *Store) Update(ctx context.Context, p *domain.Product) error {
	existing, err := s.FindByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: %d", domain.ErrProductNotFound, p.ID)
	}
	return s.write(ctx, p, existing.Category)
}

func (s *Store) write(ctx context.Context, p *domain.Product, previousCategory string) error {
	data, err := json.Marshal(toRecord(p))
	if err != nil {
		return fmt.Errorf("redisstore: encode product %d: %w", p.ID, err)
	}
	member := strconv.FormatInt(p.ID, 10)

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, productKey(p.ID), data, 0)
		pipe.Set(ctx, stockKey(p.ID), p.StockQuantity, 0)
		pipe.SAdd(ctx, allProductsKey, member)
		if previousCategory != "" && previousCategory != p.Category {
			pipe.SRem(ctx, categoryKey(previousCategory), member)
		}
		if p.Category != "" {
			pipe.SAdd(ctx, categoryKey(p.Category), member)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: write product %d: %w", p.ID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	existing, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("%w: %d", domain.ErrProductNotFound, id)
	}

	member := strconv.FormatInt(id, 10)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, productKey(id), stockKey(id))
		pipe.SRem(ctx, allProductsKey, member)
		if existing.Category != "" {
			pipe.SRem(ctx, categoryKey(existing.Category), member)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: delete product %d: %w", id, err)
	}
	return nil
}

// FindByID returns (nil, nil) when the product does not exist.
func (s *Store) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	products, err := s.load(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, nil
	}
	return products[0], nil
}

func (s *Store) FindAll(ctx context.Context) ([]*domain.Product, error) {
	return s.members(ctx, allProductsKey)
}

func (s *Store) FindByCategory(ctx context.Context, category string) ([]*domain.Product, error) {
	return s.members(ctx, categoryKey(category))
}

func (s *Store) members(ctx context.Context, setKey string) ([]*domain.Product, error) {
	raw, err := s.client.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: read %s: %w", setKey, err)
	}
	ids := make([]int64, 0, len(raw))
	for _, m := range raw {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return s.load(ctx, ids)
}

// load fetches records and stock counters in one round trip and skips ids
// whose record is gone.
func (s *Store) load(ctx context.Context, ids []int64) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return []*domain.Product{}, nil
	}

	pipe := s.client.Pipeline()
	records := make([]*redis.StringCmd, len(ids))
	stocks := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		records[i] = pipe.Get(ctx, productKey(id))
		stocks[i] = pipe.Get(ctx, stockKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redisstore: load products: %w", err)
	}

	out := make([]*domain.Product, 0, len(ids))
	for i := range ids {
		data, err := records[i].Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redisstore: load product %d: %w", ids[i], err)
		}
		p, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("redisstore: decode product %d: %w", ids[i], err)
		}
		stock, err := stocks[i].Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("redisstore: load stock %d: %w", ids[i], err)
		}
		p.StockQuantity = stock
		out = append(out, p)
	}
	return out, nil
}

func decode(data []byte) (*domain.Product, error) {
	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	p := &domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Category:    r.Category,
	}
	if r.Price != "" {
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return nil, err
		}
		p.Price = price
	}
	return p, nil
}

// DecrementStock atomically takes quantity units and reports whether there
// were enough.
func (s *Store) DecrementStock(ctx context.Context, id int64, quantity int) (bool, error) {
	result, err := decrementStockScript.Run(ctx, s.client, []string{stockKey(id)}, quantity).Int()
	if err != nil {
		return false, fmt.Errorf("redisstore: decrement stock %d: %w", id, err)
	}
	if result < 0 {
		return false, fmt.Errorf("%w: %d", domain.ErrProductNotFound, id)
	}
	return result == 1, nil
}

func (s *Store) IncrementStock(ctx context.Context, id int64, quantity int) error {
	result, err := releaseStockScript.Run(ctx, s.client, []string{stockKey(id)}, quantity).Int()
	if err != nil {
		return fmt.Errorf("redisstore: increment stock %d: %w", id, err)
	}
	if result < 0 {
		return fmt.Errorf("%w: %d", domain.ErrProductNotFound, id)
	}
	return nil
}
