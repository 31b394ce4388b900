package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/lunch-orders/internal/domain/daterange"
	"github.com/xenking/lunch-orders/internal/domain/price"
)

const (
	findPricesByDateSQL = `SELECT product_id, price_date, amount FROM prices
		WHERE price_date = $1 ORDER BY product_id`

	findPricesByRangeSQL = `SELECT product_id, price_date, amount FROM prices
		WHERE price_date BETWEEN $1 AND $2 ORDER BY price_date, product_id`

	upsertPriceSQL = `INSERT INTO prices (product_id, price_date, amount) VALUES ($1, $2, $3)
		ON CONFLICT (product_id, price_date) DO UPDATE SET amount = EXCLUDED.amount`
)

var _ price.Repository = (*PriceRepository)(nil)

// PriceRepository implements price.Repository backed by PostgreSQL.
type PriceRepository struct {
	pool *pgxpool.Pool
}

// NewPriceRepository returns a PriceRepository that uses the given pool.
func NewPriceRepository(pool *pgxpool.Pool) *PriceRepository {
	return &PriceRepository{pool: pool}
}

// FindByDate returns the prices of every product on date.
func (r *PriceRepository) FindByDate(ctx context.Context, date time.Time) ([]price.Price, error) {
	rows, err := r.pool.Query(ctx, findPricesByDateSQL, date)
	if err != nil {
		return nil, fmt.Errorf("finding prices on %s: %w", date.Format(time.DateOnly), err)
	}
	return pgx.CollectRows(rows, scanPrice)
}

// FindByRange returns the prices dated between start and end inclusive.
func (r *PriceRepository) FindByRange(ctx context.Context, start, end time.Time) ([]price.Price, error) {
	rows, err := r.pool.Query(ctx, findPricesByRangeSQL, start, end)
	if err != nil {
		return nil, fmt.Errorf("finding prices between %s and %s: %w",
			start.Format(time.DateOnly), end.Format(time.DateOnly), err)
	}
	return pgx.CollectRows(rows, scanPrice)
}

// UpsertAll writes the set in a single transaction, replacing the amount of
// existing (product, date) rows.
func (r *PriceRepository) UpsertAll(ctx context.Context, set *price.Set) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, p := range set.Prices() {
			batch.Queue(upsertPriceSQL, p.ProductID, p.Date, p.Amount)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("upserting %d prices: %w", set.Len(), err)
		}
		return nil
	})
}

func scanPrice(row pgx.CollectableRow) (price.Price, error) {
	var p price.Price
	if err := row.Scan(&p.ProductID, &p.Date, &p.Amount); err != nil {
		return price.Price{}, err
	}
	p.Date = daterange.Day(p.Date)
	return p, nil
}
