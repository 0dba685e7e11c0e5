package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/readypixelgo/venue-booking/internal/apperr"
	"github.com/readypixelgo/venue-booking/internal/model"
	"github.com/readypixelgo/venue-booking/internal/payment"
)

func validRequest(date, label string) ReservationRequest {
	return ReservationRequest{
		Date:     date,
		TimeSlot: label,
		Adults:   2,
		Children: 1,
		Email:    " guest@example.se ",
		Phone:    "070-123 45 67",
	}
}

func TestReservation_CreateHoldsSlot(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.checkout.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(r payment.CheckoutRequest) bool {
		return r.BookingDate == "2025-06-01" && r.TimeSlot == "14:00" && r.Amount == 940 &&
			r.Currency == "sek" && r.Email == "guest@example.se" &&
			r.SuccessURL == "https://readypixelgo.se/booking-success?session_id={CHECKOUT_SESSION_ID}" &&
			r.CancelURL == "https://readypixelgo.se/"
	})).Return(&payment.Session{ID: "cs_1", RedirectURL: "https://checkout.stripe.com/c/1"}, nil).Once()

	res, err := e.reservations.Create(ctx, validRequest("2025-06-01", "14:00"))
	require.NoError(t, err)
	assert.Equal(t, "cs_1", res.SessionID)
	assert.Equal(t, "https://checkout.stripe.com/c/1", res.RedirectURL)
	assert.Equal(t, 940, res.TotalPrice)

	b := e.bookings.get(res.BookingID)
	assert.Equal(t, model.PaymentPending, b.PaymentStatus)
	assert.Equal(t, "cs_1", b.ProviderSessionID)
	assert.Equal(t, "card", b.PaymentMethod)
	assert.Equal(t, 940, b.TotalPrice)
	assert.Nil(t, b.DiscountCode)
	assert.Equal(t, []string{"2025-06-01"}, e.changes.published())

	av, err := e.availability.Public(ctx, "2025-06-01")
	require.NoError(t, err)
	assert.False(t, publicSlot(t, av, "14:00"))
	e.checkout.AssertExpectations(t)
}

func TestReservation_AppliesLaunchCode(t *testing.T) {
	e := newEnv()
	e.checkout.On("CreateCheckoutSession", mock.Anything, mock.MatchedBy(func(r payment.CheckoutRequest) bool {
		return r.Amount == 846 && r.DiscountCode == "READYPIXELLAUNCH25" && r.DiscountPercent == 10
	})).Return(nextSession, nil).Once()

	req := validRequest("2025-06-01", "15:00")
	req.DiscountCode = "readypixellaunch25"
	req.TotalPrice = 846
	res, err := e.reservations.Create(context.Background(), req)
	require.NoError(t, err)
	b := e.bookings.get(res.BookingID)
	require.NotNil(t, b.DiscountCode)
	assert.Equal(t, "READYPIXELLAUNCH25", *b.DiscountCode)
	assert.Equal(t, 10, b.DiscountPercent)
	assert.Equal(t, 846, b.TotalPrice)
}

func TestReservation_ValidationFailuresTouchNothing(t *testing.T) {
	cases := map[string]func(r *ReservationRequest){
		"unknown slot":     func(r *ReservationRequest) { r.TimeSlot = "09:00" },
		"unpadded slot":    func(r *ReservationRequest) { r.TimeSlot = "9:00" },
		"past date":        func(r *ReservationRequest) { r.Date = "2025-05-01" },
		"beyond horizon":   func(r *ReservationRequest) { r.Date = "2025-12-24" },
		"bad email":        func(r *ReservationRequest) { r.Email = "guest@example" },
		"short phone":      func(r *ReservationRequest) { r.Phone = "12-34" },
		"no guests":        func(r *ReservationRequest) { r.Adults, r.Children = 0, 0 },
		"too many guests":  func(r *ReservationRequest) { r.Adults, r.Children = 4, 3 },
		"unknown code":     func(r *ReservationRequest) { r.DiscountCode = "FREE" },
		"stale price":      func(r *ReservationRequest) { r.TotalPrice = 999 },
		"negative persons": func(r *ReservationRequest) { r.Children = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			e := newEnv()
			req := validRequest("2025-06-01", "14:00")
			mutate(&req)
			_, err := e.reservations.Create(context.Background(), req)
			requireKind(t, err, apperr.KindValidation)
			assert.Zero(t, e.bookings.calls.Load())
			assert.Zero(t, e.overrides.calls.Load())
			e.checkout.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
		})
	}
}

func TestReservation_ExpiredLaunchCode(t *testing.T) {
	e := newEnv()
	e.clock.t = e.clock.t.AddDate(0, 8, 10)
	req := validRequest(e.clock.t.Format(model.DateLayout), "14:00")
	req.DiscountCode = "READYPIXELLAUNCH25"
	_, err := e.reservations.Create(context.Background(), req)
	requireKind(t, err, apperr.KindValidation)
}

func TestReservation_BookedOrDisabledSlotRejected(t *testing.T) {
	e := newEnv()
	ctx := context.Background()
	e.seed("taken", "2025-06-01", "10:00", model.PaymentPaid)
	require.NoError(t, e.overrides.Set(ctx, "2025-06-01", "11:00", false, "ops"))

	_, err := e.reservations.Create(ctx, validRequest("2025-06-01", "10:00"))
	requireKind(t, err, apperr.KindConflict)
	_, err = e.reservations.Create(ctx, validRequest("2025-06-01", "11:00"))
	requireKind(t, err, apperr.KindConflict)
	e.checkout.AssertNotCalled(t, "CreateCheckoutSession", mock.Anything, mock.Anything)
}

func TestReservation_ExpiredHoldDoesNotBlock(t *testing.T) {
	e := newEnv()
	e.seed("stale", "2025-06-01", "12:00", model.PaymentPending)
	e.clock.Advance(testHold + 1)
	e.checkout.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(nextSession, nil).Once()

	res, err := e.reservations.Create(context.Background(), validRequest("2025-06-01", "12:00"))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCancelled, e.bookings.get("stale").PaymentStatus)
	assert.Equal(t, model.PaymentPending, e.bookings.get(res.BookingID).PaymentStatus)
}

func TestReservation_CheckoutFailureLeavesNoRow(t *testing.T) {
	e := newEnv()
	e.checkout.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(nil, errors.New("stripe down")).Once()

	_, err := e.reservations.Create(context.Background(), validRequest("2025-06-01", "14:00"))
	requireKind(t, err, apperr.KindUpstream)
	active, err := e.bookings.ActiveByDate(context.Background(), "2025-06-01")
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Empty(t, e.changes.published())
}

// lateInsert lets the pre-check pass and loses the insert race.
type lateInsert struct {
	*memBookings
	winner model.Booking
}

func (l *lateInsert) Create(ctx context.Context, b *model.Booking) error {
	l.memBookings.put(l.winner)
	return l.memBookings.Create(ctx, b)
}

func TestReservation_LostRaceExpiresSession(t *testing.T) {
	e := newEnv()
	store := &lateInsert{memBookings: e.bookings, winner: model.Booking{
		ID: "winner", BookingDate: "2025-06-01", TimeSlot: "14:00", PaymentStatus: model.PaymentPending, CreatedAt: e.clock.Now(),
	}}
	e.reservations.bookings = store
	e.checkout.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(&payment.Session{ID: "cs_loser", RedirectURL: "u"}, nil).Once()
	e.checkout.On("ExpireSession", mock.Anything, "cs_loser").Return(nil).Once()

	_, err := e.reservations.Create(context.Background(), validRequest("2025-06-01", "14:00"))
	requireKind(t, err, apperr.KindConflict)
	e.checkout.AssertExpectations(t)
	active, _ := e.bookings.ActiveByDate(context.Background(), "2025-06-01")
	require.Len(t, active, 1)
	assert.Equal(t, "winner", active[0].ID)
}

func TestReservation_ConcurrentCreatesYieldOneHold(t *testing.T) {
	e := newEnv()
	e.checkout.On("CreateCheckoutSession", mock.Anything, mock.Anything).Return(nextSession, nil)
	e.checkout.On("ExpireSession", mock.Anything, mock.Anything).Return(nil)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.reservations.Create(context.Background(), validRequest("2025-06-01", "17:00"))
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	}
	assert.Equal(t, 1, ok)
	active, err := e.bookings.ActiveByDate(context.Background(), "2025-06-01")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestReservation_QuoteIsPure(t *testing.T) {
	e := newEnv()
	q, err := e.reservations.Quote(3, 2, "READYPIXELLAUNCH25")
	require.NoError(t, err)
	assert.Equal(t, 3*300+2*250, q.BaseTotal)
	assert.Equal(t, 1260, q.Total)
	assert.Zero(t, e.bookings.calls.Load())

	_, err = e.reservations.Quote(0, 0, "")
	requireKind(t, err, apperr.KindValidation)
}
