// Package price holds the date-indexed price list of the lunch catalog.
//
// A product may cost a different amount on each day. For a given product and
// day at most one price is authoritative; duplicates are rejected when the
// price list is loaded.
package price

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xenking/lunch-orders/internal/domain/daterange"
	"github.com/xenking/lunch-orders/internal/domain/errs"
)

// Price is the amount a product costs on one calendar date.
type Price struct {
	ProductID string
	Date      time.Time
	Amount    decimal.Decimal
}

// Repository reads raw price rows. Implementations return prices for the
// requested dates only; ordering is not required.
type Repository interface {
	FindByDate(ctx context.Context, date time.Time) ([]Price, error)
	FindByRange(ctx context.Context, start, end time.Time) ([]Price, error)
}

type key struct {
	productID string
	date      time.Time
}

// Set is an immutable collection of prices ordered by date ascending, then
// by product ID.
type Set struct {
	prices []Price
	index  map[key]int
}

// NewSet validates and indexes prices. It fails when a price is negative or
// when two prices exist for the same product and date.
func NewSet(prices []Price) (*Set, error) {
	sorted := make([]Price, len(prices))
	for i, p := range prices {
		if p.Amount.IsNegative() {
			return nil, errs.Validation("amount", fmt.Sprintf("negative price for product %s", p.ProductID))
		}
		p.Date = daterange.Day(p.Date)
		sorted[i] = p
	}
	slices.SortStableFunc(sorted, func(a, b Price) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductID, b.ProductID)
	})

	index := make(map[key]int, len(sorted))
	for i, p := range sorted {
		k := key{productID: p.ProductID, date: p.Date}
		if _, dup := index[k]; dup {
			return nil, errs.Validation("price", fmt.Sprintf(
				"duplicate price for product %s on %s", p.ProductID, p.Date.Format(daterange.Layout),
			))
		}
		index[k] = i
	}

	return &Set{prices: sorted, index: index}, nil
}

// PriceOf returns the price of the product on the given date. It fails with
// a NotFoundError when the set has no such price.
func (s *Set) PriceOf(productID string, date time.Time) (Price, error) {
	if s != nil {
		if i, ok := s.index[key{productID: productID, date: daterange.Day(date)}]; ok {
			return s.prices[i], nil
		}
	}
	return Price{}, errs.NotFound("price", productID+"@"+daterange.Day(date).Format(daterange.Layout))
}

// Prices returns a copy of the ordered prices.
func (s *Set) Prices() []Price {
	if s == nil {
		return nil
	}
	return slices.Clone(s.prices)
}

// Len returns the number of prices in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.prices)
}

// Within returns the subset of prices whose date falls in r.
func (s *Set) Within(r daterange.Range) *Set {
	out := &Set{index: make(map[key]int)}
	for _, p := range s.Prices() {
		if r.Contains(p.Date) {
			out.index[key{productID: p.ProductID, date: p.Date}] = len(out.prices)
			out.prices = append(out.prices, p)
		}
	}
	return out
}
