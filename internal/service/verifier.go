package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/readypixelgo/venue-booking/internal/apperr"
	"github.com/readypixelgo/venue-booking/internal/model"
	"github.com/readypixelgo/venue-booking/internal/repository"
)

// VerifyResult is the outcome of a payment verification.
type VerifyResult struct {
	Booking *model.Booking `json:"booking"`
	// Confirmed is true when this call moved the booking to paid.
	Confirmed bool `json:"confirmed"`
}

// PaymentVerifier reconciles a booking with its checkout session.
type PaymentVerifier struct {
	bookings BookingStore
	checkout CheckoutProvider
	notifier Notifier
	changes  ChangePublisher
	log      *zap.Logger
}

// NewPaymentVerifier wires a PaymentVerifier.
func NewPaymentVerifier(bookings BookingStore, checkout CheckoutProvider, notifier Notifier, changes ChangePublisher, log *zap.Logger) *PaymentVerifier {
	return &PaymentVerifier{bookings: bookings, checkout: checkout, notifier: notifier, changes: changes, log: log}
}

// Verify asks the provider for the session's status and applies it to the
// booking.  Every status change is a conditional update, so concurrent or
// repeated calls move the booking at most once and the confirmation is
// sent at most once.
//
//   - provider paid, booking pending: pending -> paid, confirmation sent.
//   - provider paid, booking paid: returned unchanged.
//   - provider paid, booking failed or its hold reaped: reinstated to paid
//     if the slot is still free, otherwise Conflict and a reconciliation log.
//   - provider paid, booking released by an operator: returned unchanged
//     with a reconciliation log.
//   - provider unpaid, booking pending: pending -> failed.
//   - provider unpaid otherwise: returned unchanged.
func (v *PaymentVerifier) Verify(ctx context.Context, sessionID string) (*VerifyResult, error) {
	if sessionID == "" {
		return nil, apperr.Validation("session id is required")
	}
	status, err := v.checkout.RetrieveSession(ctx, sessionID)
	if err != nil {
		v.log.Error("checkout session lookup failed", zap.String("session_id", sessionID), zap.Error(err))
		return nil, apperr.Upstream("could not verify payment, please try again", err)
	}
	b, err := v.bookings.GetBySession(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("no booking for this checkout session")
	}
	if err != nil {
		return nil, apperr.Internal("could not load booking", err)
	}

	if !status.Settled() {
		if b.PaymentStatus != model.PaymentPending {
			return &VerifyResult{Booking: b}, nil
		}
		changed, err := v.bookings.SetStatus(ctx, b.ID, []model.PaymentStatus{model.PaymentPending}, model.PaymentFailed)
		if err != nil {
			return nil, apperr.Internal("could not update booking", err)
		}
		if changed {
			publishChange(ctx, v.changes, v.log, b.BookingDate)
		}
		return v.reload(ctx, b.ID, false)
	}

	if b.PaymentStatus == model.PaymentPaid {
		return &VerifyResult{Booking: b}, nil
	}

	var changed bool
	if b.PaymentStatus == model.PaymentPending {
		changed, err = v.bookings.SetStatus(ctx, b.ID, []model.PaymentStatus{model.PaymentPending}, model.PaymentPaid)
		if err == nil && !changed {
			// the reaper got there between the read and the write
			changed, err = v.bookings.ReinstatePaid(ctx, b.ID)
		}
	} else {
		changed, err = v.bookings.ReinstatePaid(ctx, b.ID)
	}
	if errors.Is(err, repository.ErrSlotTaken) {
		v.log.Error("paid booking lost its slot, refund required",
			zap.Bool("reconcile", true), zap.String("booking_id", b.ID),
			zap.String("session_id", sessionID), zap.String("date", b.BookingDate), zap.String("slot", b.TimeSlot))
		return nil, apperr.Conflict("your payment was received but the time slot is no longer available; we will contact you")
	}
	if err != nil {
		return nil, apperr.Internal("could not update booking", err)
	}
	if !changed {
		res, err := v.reload(ctx, b.ID, false)
		if err != nil {
			return nil, err
		}
		if res.Booking.PaymentStatus == model.PaymentCancelled {
			v.log.Warn("payment received for a booking released by an operator",
				zap.Bool("reconcile", true), zap.String("booking_id", b.ID), zap.String("session_id", sessionID))
		}
		return res, nil
	}

	v.log.Info("booking confirmed", zap.String("booking_id", b.ID), zap.String("previous", string(b.PaymentStatus)))
	if err := v.notifier.SendBookingConfirmation(ctx, b.ID); err != nil {
		v.log.Error("confirmation notification failed", zap.String("booking_id", b.ID), zap.Error(err))
	}
	publishChange(ctx, v.changes, v.log, b.BookingDate)
	return v.reload(ctx, b.ID, true)
}

func (v *PaymentVerifier) reload(ctx context.Context, id string, confirmed bool) (*VerifyResult, error) {
	b, err := v.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("could not load booking", err)
	}
	return &VerifyResult{Booking: b, Confirmed: confirmed}, nil
}
