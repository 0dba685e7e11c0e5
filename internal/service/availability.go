package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/readypixelgo/venue-booking/internal/apperr"
	"github.com/readypixelgo/venue-booking/internal/model"
	"github.com/readypixelgo/venue-booking/internal/slot"
)

// PublicAvailability is the customer view of one date.  Degraded is set
// when bookings could not be read and every slot is shown as available.
type PublicAvailability struct {
	Date     string           `json:"date"`
	Slots    []model.TimeSlot `json:"slots"`
	Degraded bool             `json:"degraded,omitempty"`
}

// Schedule is the operator view of one date.
type Schedule struct {
	Date      string               `json:"date"`
	Slots     []model.SlotState    `json:"slots"`
	Overrides []model.SlotOverride `json:"overrides"`
}

// AvailabilityService derives slot states for a date.
type AvailabilityService struct {
	bookings  BookingStore
	overrides OverrideStore
	reaper    *Reaper
	cal       Calendar
	log       *zap.Logger
}

// NewAvailabilityService wires an AvailabilityService.
func NewAvailabilityService(bookings BookingStore, overrides OverrideStore, reaper *Reaper, cal Calendar, log *zap.Logger) *AvailabilityService {
	return &AvailabilityService{bookings: bookings, overrides: overrides, reaper: reaper, cal: cal, log: log}
}

// Public returns the customer view.  The date must lie in the public
// window.  Read failures never fail the request: a booking read failure
// yields an all-available degraded view, an override read failure is
// ignored.
func (s *AvailabilityService) Public(ctx context.Context, date string) (*PublicAvailability, error) {
	if err := s.cal.CheckPublic(date); err != nil {
		return nil, err
	}
	s.reaper.reapBestEffort(ctx, date)

	bookings, err := s.bookings.ActiveByDate(ctx, date)
	if err != nil {
		s.log.Error("availability: booking read failed, failing open", zap.String("date", date), zap.Error(err))
		return &PublicAvailability{Date: date, Slots: slot.AllAvailable(), Degraded: true}, nil
	}
	overrides, err := s.overrides.ListByDate(ctx, date)
	if err != nil {
		s.log.Warn("availability: override read failed", zap.String("date", date), zap.Error(err))
		overrides = nil
	}
	return &PublicAvailability{Date: date, Slots: slot.Public(slot.DeriveDay(bookings, overrides))}, nil
}

// Schedule returns the operator view of any date.  Read failures are
// returned.
func (s *AvailabilityService) Schedule(ctx context.Context, date string) (*Schedule, error) {
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	s.reaper.reapBestEffort(ctx, date)

	bookings, err := s.bookings.ActiveByDate(ctx, date)
	if err != nil {
		return nil, apperr.Internal("could not load bookings", err)
	}
	overrides, err := s.overrides.ListByDate(ctx, date)
	if err != nil {
		return nil, apperr.Internal("could not load slot overrides", err)
	}
	return &Schedule{Date: date, Slots: slot.DeriveDay(bookings, overrides), Overrides: overrides}, nil
}

// slotState derives the current state of one slot for the reservation
// pre-check.  Errors are returned.
func (s *AvailabilityService) slotState(ctx context.Context, date, label string) (model.SlotState, error) {
	bookings, err := s.bookings.ActiveByDate(ctx, date)
	if err != nil {
		return model.SlotState{}, err
	}
	overrides, err := s.overrides.ListByDate(ctx, date)
	if err != nil {
		return model.SlotState{}, err
	}
	return slot.DeriveStatus(label, bookings, overrides), nil
}
