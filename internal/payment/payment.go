// Package payment talks to the hosted checkout provider.  The service layer
// only sees the request and result types declared here; Stripe is the one
// implementation.
package payment

import "errors"

// ErrNotConfigured is returned when no provider key is set.
var ErrNotConfigured = errors.New("payment provider is not configured")

// Status is the provider-side payment state of a checkout session.
type Status string

const (
	StatusPaid   Status = "paid"
	StatusUnpaid Status = "unpaid"
	// StatusNoPaymentRequired is reported for fully discounted sessions.
	StatusNoPaymentRequired Status = "no_payment_required"
)

// Settled reports whether the provider considers the session paid.
func (s Status) Settled() bool { return s == StatusPaid || s == StatusNoPaymentRequired }

// CheckoutRequest describes one booking's checkout.
type CheckoutRequest struct {
	BookingID   string
	BookingDate string
	TimeSlot    string
	Adults      int
	Children    int
	// Amount is the total in major currency units.
	Amount          int
	Currency        string
	Email           string
	Phone           string
	PaymentMethod   string
	DiscountCode    string
	DiscountPercent int
	SuccessURL      string
	CancelURL       string
}

// Session is a created checkout session.
type Session struct {
	ID          string
	RedirectURL string
}
