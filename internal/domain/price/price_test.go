package price

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/lunch-orders/internal/domain/daterange"
	"github.com/xenking/lunch-orders/internal/domain/errs"
)

// --- Mock implementations ---

type mockPriceRepo struct {
	prices     []Price
	err        error
	dateCalls  int
	rangeCalls int
}

func (m *mockPriceRepo) FindByDate(_ context.Context, date time.Time) ([]Price, error) {
	m.dateCalls++
	if m.err != nil {
		return nil, m.err
	}
	var out []Price
	for _, p := range m.prices {
		if p.Date.Equal(date) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockPriceRepo) FindByRange(_ context.Context, start, end time.Time) ([]Price, error) {
	m.rangeCalls++
	if m.err != nil {
		return nil, m.err
	}
	// Deliberately returns everything: the catalog must clip to the range.
	return m.prices, nil
}

// --- Helpers ---

func day(d int) time.Time {
	return time.Date(2025, 6, d, 0, 0, 0, 0, time.UTC)
}

func newPrice(productID string, d int, amount string) Price {
	return Price{ProductID: productID, Date: day(d), Amount: decimal.RequireFromString(amount)}
}

// --- Tests ---

func TestNewSet_OrdersByDateThenProduct(t *testing.T) {
	set, err := NewSet([]Price{
		newPrice("soup", 3, "6.00"),
		newPrice("bread", 3, "3.50"),
		newPrice("soup", 1, "5.50"),
	})
	require.NoError(t, err)

	got := set.Prices()
	require.Len(t, got, 3)
	assert.Equal(t, day(1), got[0].Date)
	assert.Equal(t, "bread", got[1].ProductID)
	assert.Equal(t, "soup", got[2].ProductID)
}

func TestNewSet_RejectsDuplicates(t *testing.T) {
	_, err := NewSet([]Price{
		newPrice("soup", 3, "6.00"),
		newPrice("soup", 3, "6.50"),
	})

	var vErr *errs.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "duplicate price for product soup on 2025-06-03")
}

func TestNewSet_RejectsNegativeAmount(t *testing.T) {
	_, err := NewSet([]Price{newPrice("soup", 3, "-1")})

	var vErr *errs.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "amount", vErr.Field)
}

func TestSet_PriceOf(t *testing.T) {
	set, err := NewSet([]Price{newPrice("bread", 3, "3.50")})
	require.NoError(t, err)

	p, err := set.PriceOf("bread", time.Date(2025, 6, 3, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("3.50").Equal(p.Amount))

	_, err = set.PriceOf("bread", day(4))
	var nfErr *errs.NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "price", nfErr.Entity)

	var empty *Set
	_, err = empty.PriceOf("bread", day(3))
	require.ErrorAs(t, err, &nfErr)
}

func TestCatalog_FindByDate(t *testing.T) {
	repo := &mockPriceRepo{prices: []Price{
		newPrice("bread", 3, "3.50"),
		newPrice("soup", 3, "6.00"),
		newPrice("soup", 4, "6.50"),
	}}
	c := NewCatalog(repo)

	set, err := c.FindByDate(context.Background(), day(3))
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())

	empty, err := c.FindByDate(context.Background(), day(10))
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestCatalog_FindByRange(t *testing.T) {
	repo := &mockPriceRepo{prices: []Price{
		newPrice("soup", 9, "7.00"),
		newPrice("soup", 4, "6.50"),
		newPrice("bread", 3, "3.50"),
		newPrice("soup", 1, "5.00"),
	}}
	c := NewCatalog(repo)

	r, err := daterange.New(day(2), day(5))
	require.NoError(t, err)

	set, err := c.FindByRange(context.Background(), r)
	require.NoError(t, err)

	got := set.Prices()
	require.Len(t, got, 2)
	assert.Equal(t, day(3), got[0].Date)
	assert.Equal(t, day(4), got[1].Date)
	for _, p := range got {
		assert.True(t, r.Contains(p.Date))
	}

	// Clipped subset still answers exact lookups.
	_, err = set.PriceOf("soup", day(4))
	require.NoError(t, err)
	_, err = set.PriceOf("soup", day(9))
	require.Error(t, err)
}

func TestCatalog_FindByRange_NoMatches(t *testing.T) {
	c := NewCatalog(&mockPriceRepo{prices: []Price{newPrice("soup", 20, "7.00")}})

	r, err := daterange.New(day(2), day(5))
	require.NoError(t, err)

	set, err := c.FindByRange(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestCatalog_PriceOf(t *testing.T) {
	c := NewCatalog(&mockPriceRepo{prices: []Price{newPrice("soup", 3, "6.00")}})

	p, err := c.PriceOf(context.Background(), "soup", day(3))
	require.NoError(t, err)
	assert.Equal(t, "soup", p.ProductID)

	_, err = c.PriceOf(context.Background(), "bread", day(3))
	var nfErr *errs.NotFoundError
	require.ErrorAs(t, err, &nfErr)
}

func TestCatalog_RepositoryError(t *testing.T) {
	c := NewCatalog(&mockPriceRepo{err: errors.New("db down")})

	_, err := c.FindByDate(context.Background(), day(3))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "find prices by date")
}

func TestCachedRepository(t *testing.T) {
	repo := &mockPriceRepo{prices: []Price{newPrice("soup", 3, "6.00")}}
	cached := NewCachedRepository(repo, 8, time.Minute)

	for range 3 {
		got, err := cached.FindByDate(context.Background(), day(3))
		require.NoError(t, err)
		require.Len(t, got, 1)
	}
	assert.Equal(t, 1, repo.dateCalls)

	_, err := cached.FindByRange(context.Background(), day(1), day(5))
	require.NoError(t, err)
	_, err = cached.FindByRange(context.Background(), day(1), day(5))
	require.NoError(t, err)
	assert.Equal(t, 2, repo.rangeCalls)
}

func TestCachedRepository_ErrorsAreNotCached(t *testing.T) {
	repo := &mockPriceRepo{err: errors.New("db down")}
	cached := NewCachedRepository(repo, 8, time.Minute)

	_, err := cached.FindByDate(context.Background(), day(3))
	require.Error(t, err)

	repo.err = nil
	repo.prices = []Price{newPrice("soup", 3, "6.00")}
	got, err := cached.FindByDate(context.Background(), day(3))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
