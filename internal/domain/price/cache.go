package price

import (
	"context"
	"slices"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xenking/lunch-orders/internal/domain/daterange"
)

var _ Repository = (*CachedRepository)(nil)

// CachedRepository memoizes per-day price lookups of another Repository.
// Price rows are maintained outside this service, so entries expire after a
// fixed TTL instead of being invalidated.
type CachedRepository struct {
	next  Repository
	byDay *expirable.LRU[string, []Price]
}

// NewCachedRepository wraps next with an LRU of at most size days, each kept
// for ttl.
func NewCachedRepository(next Repository, size int, ttl time.Duration) *CachedRepository {
	return &CachedRepository{
		next:  next,
		byDay: expirable.NewLRU[string, []Price](size, nil, ttl),
	}
}

// FindByDate returns the cached prices for date, loading them on a miss.
func (r *CachedRepository) FindByDate(ctx context.Context, date time.Time) ([]Price, error) {
	k := daterange.Day(date).Format(daterange.Layout)
	if prices, ok := r.byDay.Get(k); ok {
		return slices.Clone(prices), nil
	}

	prices, err := r.next.FindByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	r.byDay.Add(k, slices.Clone(prices))
	return prices, nil
}

// FindByRange is not cached.
func (r *CachedRepository) FindByRange(ctx context.Context, start, end time.Time) ([]Price, error) {
	return r.next.FindByRange(ctx, start, end)
}
