package model

import "time"

// DateLayout is the calendar date format used for booking_date and
// slot_date values everywhere outside the database driver.
const DateLayout = "2006-01-02"

// PaymentStatus is the lifecycle state of a booking.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
)

// ActiveStatuses lists the statuses that occupy a slot.
var ActiveStatuses = []PaymentStatus{PaymentPaid, PaymentPending}

// Active reports whether a booking in this status occupies its slot.
func (s PaymentStatus) Active() bool {
	return s == PaymentPaid || s == PaymentPending
}

// Valid reports whether s is one of the known statuses.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentCancelled:
		return true
	}
	return false
}

// Booking is one reservation attempt for a (date, time slot) pair.
// A pending booking is a hold: it occupies the slot until the
// checkout completes or the hold window passes and it is reaped.
//
// Fields:
//
//	ID                – uuid primary key.
//	BookingDate       – calendar date, DateLayout.
//	TimeSlot          – one of the canonical slot labels ("10:00").
//	Adults, Children  – guest counts.
//	TotalPrice        – price charged in SEK (major units).
//	Email, Phone      – contact details.
//	PaymentMethod     – free-form label chosen in the booking form.
//	PaymentStatus     – pending, paid, failed or cancelled.
//	DiscountCode      – optional promo code applied to the price.
//	DiscountPercent   – 0..100.
//	ProviderSessionID – checkout session handle at the payment provider.
//	CreatedAt         – insertion time, the start of the hold window.
//	Expired           – set when the reaper cancelled the hold; cleared by
//	                    any later status change.
type Booking struct {
	ID                string        `json:"id"`
	BookingDate       string        `json:"booking_date"`
	TimeSlot          string        `json:"time_slot"`
	Adults            int           `json:"adults"`
	Children          int           `json:"children"`
	TotalPrice        int           `json:"total_price"`
	Email             string        `json:"email"`
	Phone             string        `json:"phone"`
	PaymentMethod     string        `json:"payment_method"`
	PaymentStatus     PaymentStatus `json:"payment_status"`
	DiscountCode      *string       `json:"discount_code,omitempty"`
	DiscountPercent   int           `json:"discount_percent"`
	ProviderSessionID string        `json:"provider_session_id"`
	CreatedAt         time.Time     `json:"created_at"`
	Expired           bool          `json:"expired"`
}

// Guests returns the total party size.
func (b Booking) Guests() int { return b.Adults + b.Children }

// BookingUpdate carries the optional field changes an operator may apply
// to an existing booking.  Nil fields are left untouched.
type BookingUpdate struct {
	BookingDate *string
	TimeSlot    *string
	Email       *string
	Phone       *string
	Adults      *int
	Children    *int
	TotalPrice  *int
}

// Empty reports whether no field is set.
func (u BookingUpdate) Empty() bool {
	return u.BookingDate == nil && u.TimeSlot == nil && u.Email == nil &&
		u.Phone == nil && u.Adults == nil && u.Children == nil && u.TotalPrice == nil
}
