package handler

import (
	"time"

	"github.com/xenking/lunch-orders/internal/domain/daterange"
	"github.com/xenking/lunch-orders/internal/domain/errs"
)

// defaultWindow spans Monday of the previous week through Friday of the
// next week, relative to the business day of now.
func defaultWindow(now time.Time, loc *time.Location) (start, end time.Time) {
	today := daterange.Today(now, loc)
	sinceMonday := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -sinceMonday)
	return monday.AddDate(0, 0, -7), monday.AddDate(0, 0, 11)
}

// customerWindow fills the missing bounds from defaultWindow.
func customerWindow(startRaw, endRaw string, now time.Time, loc *time.Location) (daterange.Range, error) {
	start, end := defaultWindow(now, loc)
	if startRaw != "" {
		d, err := daterange.ParseDate(startRaw)
		if err != nil {
			return daterange.Range{}, errs.Validation("startDate", err.Error())
		}
		start = d
	}
	if endRaw != "" {
		d, err := daterange.ParseDate(endRaw)
		if err != nil {
			return daterange.Range{}, errs.Validation("endDate", err.Error())
		}
		end = d
	}
	return daterange.New(start, end)
}
