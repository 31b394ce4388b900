package order

import (
	"strings"
	"time"

	"github.com/xenking/lunch-orders/internal/domain/daterange"
	"github.com/xenking/lunch-orders/internal/domain/errs"
)

// Filter selects orders for listing. At least one of ShipmentDate, Range or
// Customer must be set: unbounded listings are refused.
type Filter struct {
	ShipmentDate *time.Time
	Range        *daterange.Range
	Customer     string
	// Paid, when set, keeps only paid (true) or only unpaid (false) orders.
	Paid *bool
	// ExcludeClosed drops canceled and rejected orders.
	ExcludeClosed bool
}

// Validate enforces the at-least-one-filter policy.
func (f Filter) Validate() error {
	if f.ShipmentDate == nil && f.Range == nil && strings.TrimSpace(f.Customer) == "" {
		return errs.Validation("filter", "no filter provided")
	}
	return nil
}

// Match reports whether o satisfies every set criterion. Storage
// implementations use it to post-filter or to verify their queries.
func (f Filter) Match(o *Order) bool {
	if f.ShipmentDate != nil && !o.shipmentDate.Equal(daterange.Day(*f.ShipmentDate)) {
		return false
	}
	if f.Range != nil && !f.Range.Contains(o.shipmentDate) {
		return false
	}
	if f.Customer != "" && o.customer != f.Customer {
		return false
	}
	if f.Paid != nil && (o.status == StatusPaid) != *f.Paid {
		return false
	}
	if f.ExcludeClosed && o.status.Terminal() {
		return false
	}
	return true
}
