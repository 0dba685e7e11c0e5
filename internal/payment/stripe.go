package payment

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// sessionLifetime is Stripe's minimum checkout session lifetime.
const sessionLifetime = 30 * time.Minute

// StripeProvider creates and inspects Stripe Checkout sessions.
type StripeProvider struct {
	api *client.API
	now func() time.Time
}

// NewStripeProvider returns a provider bound to secretKey.  An empty key
// yields a provider whose calls fail with ErrNotConfigured.
func NewStripeProvider(secretKey string) *StripeProvider {
	if secretKey == "" {
		return &StripeProvider{now: time.Now}
	}
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &StripeProvider{api: sc, now: time.Now}
}

// CreateCheckoutSession creates a one-off payment session with a single
// line item.  Amounts are converted to minor units.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*Session, error) {
	if p.api == nil {
		return nil, ErrNotConfigured
	}
	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail: stripe.String(req.Email),
		SuccessURL:    stripe.String(req.SuccessURL),
		CancelURL:     stripe.String(req.CancelURL),
		ExpiresAt:     stripe.Int64(p.now().Add(sessionLifetime).Unix()),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency: stripe.String(req.Currency),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:        stripe.String("Event Booking - " + req.BookingDate),
					Description: stripe.String(Description(req)),
				},
				UnitAmount: stripe.Int64(int64(req.Amount) * 100),
			},
			Quantity: stripe.Int64(1),
		}},
	}
	params.Context = ctx
	for k, v := range Metadata(req) {
		params.AddMetadata(k, v)
	}

	s, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, err
	}
	return &Session{ID: s.ID, RedirectURL: s.URL}, nil
}

// RetrieveSession returns the session's payment status.
func (p *StripeProvider) RetrieveSession(ctx context.Context, sessionID string) (Status, error) {
	if p.api == nil {
		return "", ErrNotConfigured
	}
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	s, err := p.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return "", err
	}
	return Status(s.PaymentStatus), nil
}

// ExpireSession closes an open session so it can no longer be paid.
func (p *StripeProvider) ExpireSession(ctx context.Context, sessionID string) error {
	if p.api == nil {
		return ErrNotConfigured
	}
	params := &stripe.CheckoutSessionExpireParams{}
	params.Context = ctx
	_, err := p.api.CheckoutSessions.Expire(sessionID, params)
	return err
}

// Description is the line item text shown on the checkout page.
func Description(req CheckoutRequest) string {
	return fmt.Sprintf("Time: %s, People: %d adults + %d children", req.TimeSlot, req.Adults, req.Children)
}

// Metadata is attached to the session so a paid session can be matched to
// its booking from the provider dashboard alone.
func Metadata(req CheckoutRequest) map[string]string {
	return map[string]string{
		"booking_id":       req.BookingID,
		"booking_date":     req.BookingDate,
		"time_slot":        req.TimeSlot,
		"adults":           strconv.Itoa(req.Adults),
		"children":         strconv.Itoa(req.Children),
		"email":            req.Email,
		"phone":            req.Phone,
		"payment_method":   req.PaymentMethod,
		"discount_code":    req.DiscountCode,
		"discount_percent": strconv.Itoa(req.DiscountPercent),
	}
}
