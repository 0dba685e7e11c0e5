package service

import (
	"time"

	"github.com/readypixelgo/venue-booking/internal/apperr"
	"github.com/readypixelgo/venue-booking/internal/model"
)

// Calendar resolves "today" and the public booking window in the venue's
// time zone.
type Calendar struct {
	Loc           *time.Location
	HorizonMonths int
	Now           func() time.Time
}

// Today returns the venue-local calendar date.
func (c Calendar) Today() string {
	return c.Now().In(c.Loc).Format(model.DateLayout)
}

// ParseDate checks that s is a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(model.DateLayout, s)
	if err != nil || t.Format(model.DateLayout) != s {
		return time.Time{}, apperr.Validation("date must be formatted YYYY-MM-DD")
	}
	return t, nil
}

// CheckPublic validates that date lies within today..today+HorizonMonths.
func (c Calendar) CheckPublic(date string) error {
	d, err := ParseDate(date)
	if err != nil {
		return err
	}
	today, _ := time.Parse(model.DateLayout, c.Today())
	if d.Before(today) {
		return apperr.Validation("date is in the past")
	}
	if d.After(today.AddDate(0, c.HorizonMonths, 0)) {
		return apperr.Validation("date is beyond the booking horizon")
	}
	return nil
}
