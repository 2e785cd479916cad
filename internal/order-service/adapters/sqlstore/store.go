// Package sqlstore persists orders and their line items in SQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/database"
)

var schema = map[database.Dialect][]string{
	database.SQLite: {
		`CREATE TABLE IF NOT EXISTS orders (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id      INTEGER NOT NULL,
			status       TEXT    NOT NULL,
			total_amount TEXT    NOT NULL,
			created_at   TEXT    NOT NULL,
			updated_at   TEXT    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders(user_id)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id     INTEGER NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
			position     INTEGER NOT NULL,
			product_id   INTEGER NOT NULL,
			product_name TEXT    NOT NULL,
			quantity     INTEGER NOT NULL,
			price        TEXT    NOT NULL,
			subtotal     TEXT    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_order_id ON order_items(order_id, position)`,
	},
	database.MySQL: {
		`CREATE TABLE IF NOT EXISTS orders (
			id           BIGINT AUTO_INCREMENT PRIMARY KEY,
			user_id      BIGINT         NOT NULL,
			status       VARCHAR(20)    NOT NULL,
			total_amount DECIMAL(12,2)  NOT NULL,
			created_at   DATETIME(6)    NOT NULL,
			updated_at   DATETIME(6)    NOT NULL,
			INDEX idx_orders_user_id (user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id           BIGINT AUTO_INCREMENT PRIMARY KEY,
			order_id     BIGINT         NOT NULL,
			position     INT            NOT NULL,
			product_id   BIGINT         NOT NULL,
			product_name VARCHAR(255)   NOT NULL,
			quantity     INT            NOT NULL,
			price        DECIMAL(12,2)  NOT NULL,
			subtotal     DECIMAL(12,2)  NOT NULL,
			INDEX idx_order_items_order_id (order_id, position),
			CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
		)`,
	},
}

type Store struct {
	db *database.DB
}

// New migrates the schema and returns a ready store.
func New(ctx context.Context, db *database.DB) (*Store, error) {
	if err := db.Migrate(ctx, schema); err != nil {
		return nil, fmt.Errorf("sqlstore: %w", err)
	}
	return &Store{db: db}, nil
}

// Save inserts a new order (ID == 0) or updates an existing one, replacing its
// items, in a single transaction. On insert the generated id is written back.
func (s *Store) Save(ctx context.Context, o *domain.Order) error {
	id := o.ID
	err := s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if id == 0 {
			res, err := tx.ExecContext(ctx, `
				INSERT INTO orders (user_id, status, total_amount, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?)`,
				o.UserID, string(o.Status), money(o.TotalAmount),
				s.db.TimeValue(o.CreatedAt), s.db.TimeValue(o.UpdatedAt),
			)
			if err != nil {
				return fmt.Errorf("insert order: %w", err)
			}
			if id, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("order id: %w", err)
			}
		} else {
			res, err := tx.ExecContext(ctx, `
				UPDATE orders SET user_id = ?, status = ?, total_amount = ?, updated_at = ?
				WHERE id = ?`,
				o.UserID, string(o.Status), money(o.TotalAmount), s.db.TimeValue(o.UpdatedAt), id,
			)
			if err != nil {
				return fmt.Errorf("update order %d: %w", id, err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return fmt.Errorf("update order %d: %w", id, domain.ErrOrderNotFound)
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, id); err != nil {
				return fmt.Errorf("clear items of order %d: %w", id, err)
			}
		}

		for i, it := range o.Items {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, position, product_id, product_name, quantity, price, subtotal)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				id, i, it.ProductID, it.ProductName, it.Quantity, money(it.Price), money(it.Subtotal),
			)
			if err != nil {
				return fmt.Errorf("insert item %d of order %d: %w", i, id, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("sqlstore: %w", err)
	}
	o.ID = id
	return nil
}

// FindByID returns (nil, nil) when no order has that id.
func (s *Store) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	orders, err := s.query(ctx, `WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return orders[0], nil
}

func (s *Store) FindAll(ctx context.Context) ([]*domain.Order, error) {
	return s.query(ctx, "")
}

func (s *Store) FindByUserID(ctx context.Context, userID int64) ([]*domain.Order, error) {
	return s.query(ctx, `WHERE user_id = ?`, userID)
}

// query loads orders matching where (ordered by id) and then their items.
func (s *Store) query(ctx context.Context, where string, args ...any) ([]*domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, status, created_at, updated_at
		FROM orders `+where+`
		ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query orders: %w", err)
	}
	defer rows.Close()

	var (
		orders []*domain.Order
		byID   = map[int64]*domain.Order{}
	)
	for rows.Next() {
		var (
			o                    domain.Order
			status               string
			createdAt, updatedAt database.Time
		)
		if err := rows.Scan(&o.ID, &o.UserID, &status, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("sqlstore: scan order: %w", err)
		}
		o.Status = domain.OrderStatus(status)
		o.CreatedAt, o.UpdatedAt = createdAt.Time, updatedAt.Time
		orders = append(orders, &o)
		byID[o.ID] = &o
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: query orders: %w", err)
	}
	// release the connection before the items query; SQLite runs with one
	_ = rows.Close()
	if len(orders) == 0 {
		return orders, nil
	}

	if err := s.loadItems(ctx, byID); err != nil {
		return nil, err
	}
	for _, o := range orders {
		o.Recalculate()
	}
	return orders, nil
}

func (s *Store) loadItems(ctx context.Context, byID map[int64]*domain.Order) error {
	ids := make([]any, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, product_id, product_name, quantity, price
		FROM order_items
		WHERE order_id IN (`+placeholders+`)
		ORDER BY order_id, position`, ids...)
	if err != nil {
		return fmt.Errorf("sqlstore: query items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID int64
			it      domain.LineItem
			price   string
		)
		if err := rows.Scan(&orderID, &it.ProductID, &it.ProductName, &it.Quantity, &price); err != nil {
			return fmt.Errorf("sqlstore: scan item: %w", err)
		}
		if it.Price, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("sqlstore: item price of order %d: %w", orderID, err)
		}
		o, ok := byID[orderID]
		if !ok {
			return errors.New("sqlstore: item for unknown order")
		}
		o.Items = append(o.Items, it)
	}
	return rows.Err()
}

func money(d decimal.Decimal) string {
	return d.StringFixed(domain.MoneyScale)
}
