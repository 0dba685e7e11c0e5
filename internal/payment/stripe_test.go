package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnconfiguredProvider(t *testing.T) {
	p := NewStripeProvider("")
	_, err := p.CreateCheckoutSession(context.Background(), CheckoutRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = p.RetrieveSession(context.Background(), "cs_1")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, p.ExpireSession(context.Background(), "cs_1"), ErrNotConfigured)
}

func TestDescriptionAndMetadata(t *testing.T) {
	req := CheckoutRequest{BookingID: "b1", BookingDate: "2025-06-02", TimeSlot: "14:00",
		Adults: 2, Children: 1, DiscountPercent: 10, DiscountCode: "LAUNCH"}
	assert.Equal(t, "Time: 14:00, People: 2 adults + 1 children", Description(req))

	md := Metadata(req)
	assert.Equal(t, "b1", md["booking_id"])
	assert.Equal(t, "1", md["children"])
	assert.Equal(t, "10", md["discount_percent"])
}

func TestStatusSettled(t *testing.T) {
	assert.True(t, StatusPaid.Settled())
	assert.True(t, StatusNoPaymentRequired.Settled())
	assert.False(t, StatusUnpaid.Settled())
}
