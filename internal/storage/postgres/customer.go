package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/lunch-orders/internal/domain/customer"
)

const (
	findCustomerSQL = `SELECT username, full_name, client_id FROM customers WHERE username = $1`

	upsertCustomerSQL = `INSERT INTO customers (username, full_name, client_id) VALUES ($1, $2, $3)
		ON CONFLICT (username) DO UPDATE SET full_name = EXCLUDED.full_name, client_id = EXCLUDED.client_id`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// FindByUsername returns customer.ErrNotFound for unknown usernames.
func (r *CustomerRepository) FindByUsername(ctx context.Context, username string) (*customer.Customer, error) {
	var c customer.Customer
	err := r.pool.QueryRow(ctx, findCustomerSQL, username).Scan(&c.Username, &c.FullName, &c.ClientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("finding customer %q: %w", username, err)
	}
	return &c, nil
}

// Upsert inserts the customer or refreshes its profile fields.
func (r *CustomerRepository) Upsert(ctx context.Context, c customer.Customer) error {
	if _, err := r.pool.Exec(ctx, upsertCustomerSQL, c.Username, c.FullName, c.ClientID); err != nil {
		return fmt.Errorf("upserting customer %q: %w", c.Username, err)
	}
	return nil
}
