// Package slot defines the venue's fixed daily grid of bookable time slots
// and derives the state of each slot from bookings and operator overrides.
package slot

import (
	"github.com/readypixelgo/venue-booking/internal/model"
)

// canonical is the hourly grid 10:00..19:00.  Labels are zero-padded HH:MM
// in venue local time.
var canonical = []string{
	"10:00", "11:00", "12:00", "13:00", "14:00",
	"15:00", "16:00", "17:00", "18:00", "19:00",
}

var canonicalSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(canonical))
	for _, s := range canonical {
		m[s] = struct{}{}
	}
	return m
}()

// All returns a copy of the canonical slot labels in display order.
func All() []string {
	out := make([]string, len(canonical))
	copy(out, canonical)
	return out
}

// IsCanonical reports whether label is one of the daily slots.
func IsCanonical(label string) bool {
	_, ok := canonicalSet[label]
	return ok
}

// DeriveStatus computes the state of one slot.  An active booking wins over
// any override; an inactive override disables an otherwise free slot.
func DeriveStatus(label string, bookings []model.Booking, overrides []model.SlotOverride) model.SlotState {
	for i := range bookings {
		b := &bookings[i]
		if b.TimeSlot == label && b.PaymentStatus.Active() {
			return model.SlotState{
				TimeSlot: label,
				Status:   model.SlotBooked,
				Booking: &model.BookingDetails{
					BookingID:     b.ID,
					Adults:        b.Adults,
					Children:      b.Children,
					Email:         b.Email,
					Phone:         b.Phone,
					TotalPrice:    b.TotalPrice,
					PaymentMethod: b.PaymentMethod,
					PaymentStatus: b.PaymentStatus,
					CreatedAt:     b.CreatedAt,
				},
			}
		}
	}
	for _, o := range overrides {
		if o.TimeSlot == label && !o.IsActive {
			return model.SlotState{TimeSlot: label, Status: model.SlotDisabled}
		}
	}
	return model.SlotState{TimeSlot: label, Status: model.SlotAvailable}
}

// DeriveDay derives every canonical slot in display order.
func DeriveDay(bookings []model.Booking, overrides []model.SlotOverride) []model.SlotState {
	out := make([]model.SlotState, 0, len(canonical))
	for _, label := range canonical {
		out = append(out, DeriveStatus(label, bookings, overrides))
	}
	return out
}

// Public strips booking details and collapses the status to a boolean.
func Public(states []model.SlotState) []model.TimeSlot {
	out := make([]model.TimeSlot, 0, len(states))
	for _, s := range states {
		out = append(out, model.TimeSlot{Time: s.TimeSlot, Available: s.Status == model.SlotAvailable})
	}
	return out
}

// AllAvailable is the fail-open public view used when bookings cannot be read.
func AllAvailable() []model.TimeSlot {
	out := make([]model.TimeSlot, 0, len(canonical))
	for _, label := range canonical {
		out = append(out, model.TimeSlot{Time: label, Available: true})
	}
	return out
}
