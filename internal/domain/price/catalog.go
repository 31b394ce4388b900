package price

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/lunch-orders/internal/domain/daterange"
)

// Catalog answers "what did product P cost on date D" on top of a Repository.
type Catalog struct {
	repo Repository
}

// NewCatalog returns a Catalog reading from repo.
func NewCatalog(repo Repository) *Catalog {
	return &Catalog{repo: repo}
}

// FindByDate returns every price effective on date. An empty set is a valid
// answer for a day without prices.
func (c *Catalog) FindByDate(ctx context.Context, date time.Time) (*Set, error) {
	prices, err := c.repo.FindByDate(ctx, daterange.Day(date))
	if err != nil {
		return nil, errors.Wrap(err, "find prices by date")
	}
	return NewSet(prices)
}

// FindByRange returns every price dated within r, ordered by date ascending.
func (c *Catalog) FindByRange(ctx context.Context, r daterange.Range) (*Set, error) {
	prices, err := c.repo.FindByRange(ctx, r.Start(), r.End())
	if err != nil {
		return nil, errors.Wrap(err, "find prices by range")
	}
	set, err := NewSet(prices)
	if err != nil {
		return nil, err
	}
	return set.Within(r), nil
}

// PriceOf returns the price of a single product on date, or a NotFoundError.
func (c *Catalog) PriceOf(ctx context.Context, productID string, date time.Time) (Price, error) {
	set, err := c.FindByDate(ctx, date)
	if err != nil {
		return Price{}, err
	}
	return set.PriceOf(productID, date)
}
