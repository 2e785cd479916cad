// Package sqlstore persists users in SQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jcmexdev/ecommerce-orders/internal/pkg/database"
	"github.com/jcmexdev/ecommerce-orders/internal/user-service/domain"
)

var schema = map[database.Dialect][]string{
	database.SQLite: {
		`CREATE TABLE IF NOT EXISTS users (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			name         TEXT NOT NULL,
			email        TEXT NOT NULL UNIQUE,
			phone_number TEXT NOT NULL DEFAULT ''
		)`,
	},
	database.MySQL: {
		`CREATE TABLE IF NOT EXISTS users (
			id           BIGINT AUTO_INCREMENT PRIMARY KEY,
			name         VARCHAR(255) NOT NULL,
			email        VARCHAR(255) NOT NULL,
			phone_number VARCHAR(50)  NOT NULL DEFAULT '',
			UNIQUE KEY uq_users_email (email)
		)`,
	},
}

type Store struct {
	db *database.DB
}

func New(ctx context.Context, db *database.DB) (*Store, error) {
	if err := db.Migrate(ctx, schema); err != nil {
		return nil, fmt.Errorf("sqlstore: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Create(ctx context.Context, u *domain.User) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (name, email, phone_number) VALUES (?, ?, ?)`,
		u.Name, u.Email, u.PhoneNumber,
	)
	if err != nil {
		return mapWriteError(err, u.Email)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlstore: user id: %w", err)
	}
	u.ID = id
	return nil
}

func (s *Store) Update(ctx context.Context, u *domain.User) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, phone_number = ? WHERE id = ?`,
		u.Name, u.Email, u.PhoneNumber, u.ID,
	)
	if err != nil {
		return mapWriteError(err, u.Email)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 for an unchanged row, so check existence.
		existing, err := s.FindByID(ctx, u.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("%w: %d", domain.ErrUserNotFound, u.ID)
		}
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlstore: delete user %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", domain.ErrUserNotFound, id)
	}
	return nil
}

// FindByID returns (nil, nil) when the user does not exist.
func (s *Store) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, email, phone_number FROM users WHERE id = ?`, id)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PhoneNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlstore: find user %d: %w", id, err)
	}
	return &u, nil
}

func (s *Store) FindAll(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, phone_number FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list users: %w", err)
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PhoneNumber); err != nil {
			return nil, fmt.Errorf("sqlstore: scan user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (s *Store) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlstore: check email: %w", err)
	}
	return n > 0, nil
}

func mapWriteError(err error, email string) error {
	if database.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrEmailTaken, email)
	}
	return fmt.Errorf("sqlstore: write user: %w", err)
}
