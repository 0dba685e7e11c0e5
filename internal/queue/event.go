// Package queue carries booking confirmation work over RabbitMQ so the
// payment verification request does not wait on SMTP.
package queue

// BookingConfirmedQueue is the durable queue confirmation events go to.
const BookingConfirmedQueue = "booking.confirmed"

// BookingConfirmedEvent is published when a booking transitions to paid.
// Consumers reload the booking by id before acting on it.
type BookingConfirmedEvent struct {
	BookingID   string `json:"booking_id"`
	BookingDate string `json:"booking_date,omitempty"`
	TimeSlot    string `json:"time_slot,omitempty"`
	ConfirmedAt string `json:"confirmed_at"`
}
