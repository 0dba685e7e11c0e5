package model

import "time"

// SlotOverride is an operator-forced availability state for one
// (date, time slot) pair.  Only inactive overrides are stored; an
// absent row means the slot is open.
//
// Fields:
//
//	SlotDate  – calendar date, DateLayout.
//	TimeSlot  – canonical slot label.
//	IsActive  – false closes the slot.
//	UpdatedBy – free-form operator label.
//	UpdatedAt – last write time.
type SlotOverride struct {
	SlotDate  string    `json:"slot_date"`
	TimeSlot  string    `json:"time_slot"`
	IsActive  bool      `json:"is_active"`
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SlotStatus is the derived state of a slot.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotDisabled  SlotStatus = "disabled"
	SlotBooked    SlotStatus = "booked"
)

// BookingDetails is the part of a booking echoed on a booked slot.
type BookingDetails struct {
	BookingID     string        `json:"booking_id"`
	Adults        int           `json:"adults"`
	Children      int           `json:"children"`
	Email         string        `json:"email"`
	Phone         string        `json:"phone"`
	TotalPrice    int           `json:"total_price"`
	PaymentMethod string        `json:"payment_method"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	CreatedAt     time.Time     `json:"created_at"`
}

// SlotState is computed per request from bookings and overrides and is
// never stored.
type SlotState struct {
	TimeSlot string          `json:"time_slot"`
	Status   SlotStatus      `json:"status"`
	Booking  *BookingDetails `json:"booking,omitempty"`
}

// TimeSlot is the public projection of a SlotState.
type TimeSlot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}
