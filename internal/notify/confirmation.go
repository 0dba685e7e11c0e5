package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/readypixelgo/venue-booking/internal/model"
)

// BookingLookup loads a booking by id.
type BookingLookup interface {
	GetByID(ctx context.Context, id string) (*model.Booking, error)
}

// Confirmer sends booking confirmations directly through a Mailer.
type Confirmer struct {
	bookings  BookingLookup
	mailer    Mailer
	log       *zap.Logger
	loc       *time.Location
	siteURL   string
	hostEmail string
	now       func() time.Time
}

// NewConfirmer wires a Confirmer.  hostEmail may be empty to skip the host
// copy.
func NewConfirmer(bookings BookingLookup, mailer Mailer, log *zap.Logger, loc *time.Location, siteURL, hostEmail string) *Confirmer {
	return &Confirmer{
		bookings:  bookings,
		mailer:    mailer,
		log:       log,
		loc:       loc,
		siteURL:   siteURL,
		hostEmail: hostEmail,
		now:       time.Now,
	}
}

// SendBookingConfirmation mails the customer a confirmation with a calendar
// invite.  A failure to deliver the host copy is logged and not returned.
func (c *Confirmer) SendBookingConfirmation(ctx context.Context, bookingID string) error {
	b, err := c.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("load booking %s: %w", bookingID, err)
	}
	msg, err := c.compose(*b)
	if err != nil {
		return err
	}
	if err := c.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	c.log.Info("confirmation sent", zap.String("booking_id", b.ID))

	if c.hostEmail != "" {
		host := msg
		host.To = []string{c.hostEmail}
		if err := c.mailer.Send(ctx, host); err != nil {
			c.log.Warn("host copy failed", zap.String("booking_id", b.ID), zap.Error(err))
		}
	}
	return nil
}

func (c *Confirmer) compose(b model.Booking) (Message, error) {
	html, err := RenderConfirmation(b, c.siteURL)
	if err != nil {
		return Message{}, fmt.Errorf("render confirmation: %w", err)
	}
	msg := Message{
		To:      []string{b.Email},
		Subject: ConfirmationSubject(b),
		HTML:    html,
	}
	ics, err := BuildICS(b, c.loc, c.now())
	if err != nil {
		// the mail is still useful without the invite
		c.log.Warn("ics attachment skipped", zap.String("booking_id", b.ID), zap.Error(err))
		return msg, nil
	}
	msg.Attachments = []Attachment{{
		Filename:    "booking.ics",
		ContentType: "text/calendar; charset=UTF-8; method=REQUEST",
		Data:        ics,
	}}
	return msg, nil
}

// SendDiscountCode mails a waitlist subscriber their launch code.
func SendDiscountCode(ctx context.Context, mailer Mailer, to string, d DiscountMail) error {
	html, err := RenderDiscount(d)
	if err != nil {
		return fmt.Errorf("render discount: %w", err)
	}
	return mailer.Send(ctx, Message{
		To:      []string{to},
		Subject: DiscountSubject(d.Percent),
		HTML:    html,
	})
}
