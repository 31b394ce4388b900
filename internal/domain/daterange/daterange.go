// Package daterange provides a validated inclusive interval of calendar dates.
package daterange

import (
	"strconv"
	"strings"
	"time"

	"github.com/xenking/lunch-orders/internal/domain/errs"
)

// Layout is the wire format of a calendar date.
const Layout = time.DateOnly

// Range is an inclusive [Start, End] interval of calendar dates.
// The zero value is not valid; construct with New or Parse.
type Range struct {
	start time.Time
	end   time.Time
}

// New returns the range [start, end]. Both values are truncated to their
// calendar date. It fails with a ValidationError when start is after end.
func New(start, end time.Time) (Range, error) {
	s, e := Day(start), Day(end)
	if s.After(e) {
		return Range{}, errs.Validation("dateRange", "start date is after end date")
	}
	return Range{start: s, end: e}, nil
}

// Parse builds a range from two optional date strings, as used by list
// filters. When both are empty it returns nil, meaning "no range". A range
// with only one bound is rejected: defaults are resolved by the caller.
func Parse(start, end string) (*Range, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" && end == "" {
		return nil, nil
	}
	if start == "" {
		return nil, errs.Validation("startDate", "start date is required when end date is set")
	}
	if end == "" {
		return nil, errs.Validation("endDate", "end date is required when start date is set")
	}

	s, err := ParseDate(start)
	if err != nil {
		return nil, errs.Validation("startDate", err.Error())
	}
	e, err := ParseDate(end)
	if err != nil {
		return nil, errs.Validation("endDate", err.Error())
	}

	r, err := New(s, e)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Start returns the first day of the range.
func (r Range) Start() time.Time { return r.start }

// End returns the last day of the range.
func (r Range) End() time.Time { return r.end }

// Contains reports whether d falls on a day within the range.
func (r Range) Contains(d time.Time) bool {
	d = Day(d)
	return !d.Before(r.start) && !d.After(r.end)
}

// Days returns the number of calendar days covered by the range.
func (r Range) Days() int {
	return int(r.end.Sub(r.start).Hours()/24) + 1
}

func (r Range) String() string {
	return r.start.Format(Layout) + ".." + r.end.Format(Layout)
}

// Day truncates t to its calendar date, keeping the year, month and day as
// seen in t's location and returning midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date of now in loc.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Day(now.In(loc))
}

// ParseDate accepts either a plain date or an RFC 3339 timestamp and returns
// its calendar date.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(Layout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errs.Validation("", "invalid date "+strconv.Quote(s))
	}
	return Day(t), nil
}
