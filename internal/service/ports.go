// Package service implements the booking domain: availability, holds and
// their expiry, checkout-backed reservations, payment verification, the
// admin console and the launch waitlist.  Storage, payment, mail and
// change notification are reached through the interfaces below.
package service

import (
	"context"
	"time"

	"github.com/readypixelgo/venue-booking/internal/model"
	"github.com/readypixelgo/venue-booking/internal/payment"
)

// BookingStore persists bookings.  Implementations must make Create,
// SetStatus, ReinstatePaid and Update fail with repository.ErrSlotTaken
// instead of leaving two active bookings on one (date, slot).  Update
// fails with repository.ErrNoGuests when the result has no guests.
// ExpirePending marks what it cancels as expired, and ReinstatePaid only
// revives failed or expired bookings.
type BookingStore interface {
	Create(ctx context.Context, b *model.Booking) error
	ActiveByDate(ctx context.Context, date string) ([]model.Booking, error)
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetBySession(ctx context.Context, sessionID string) (*model.Booking, error)
	ExpirePending(ctx context.Context, cutoff time.Time, date string) (int64, []string, error)
	SetStatus(ctx context.Context, id string, from []model.PaymentStatus, to model.PaymentStatus) (bool, error)
	ReinstatePaid(ctx context.Context, id string) (bool, error)
	Update(ctx context.Context, id string, upd model.BookingUpdate) (*model.Booking, error)
	UpcomingPaid(ctx context.Context, fromDate string, limit, offset int) ([]model.Booking, int, error)
}

// OverrideStore persists slot overrides.
type OverrideStore interface {
	ListByDate(ctx context.Context, date string) ([]model.SlotOverride, error)
	Set(ctx context.Context, date, slot string, isActive bool, updatedBy string) error
}

// WaitlistStore persists waitlist entries.
type WaitlistStore interface {
	GetByEmail(ctx context.Context, email string) (*model.WaitlistEntry, error)
	Upsert(ctx context.Context, e model.WaitlistEntry) error
	ClaimCode(ctx context.Context, email string, limit int, at time.Time) (bool, error)
	ReleaseCode(ctx context.Context, email string) error
	Delete(ctx context.Context, email string) (bool, error)
	Stats(ctx context.Context, latest int) (total, sent int, rows []model.WaitlistEntry, err error)
}

// CheckoutProvider is the hosted payment page.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.Session, error)
	RetrieveSession(ctx context.Context, sessionID string) (payment.Status, error)
	ExpireSession(ctx context.Context, sessionID string) error
}

// Notifier delivers booking confirmations.
type Notifier interface {
	SendBookingConfirmation(ctx context.Context, bookingID string) error
}

// ChangePublisher signals that the bookings or overrides of a date changed.
type ChangePublisher interface {
	Publish(ctx context.Context, date string) error
}

// AccessChecker validates the shared admin secret.
type AccessChecker interface {
	Check(code string) bool
}

// TokenIssuer signs and verifies waitlist unsubscribe tokens.
type TokenIssuer interface {
	Issue(email string) (string, error)
	Parse(token string) (string, error)
}
