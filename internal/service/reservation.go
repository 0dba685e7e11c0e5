package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/readypixelgo/venue-booking/internal/apperr"
	"github.com/readypixelgo/venue-booking/internal/model"
	"github.com/readypixelgo/venue-booking/internal/payment"
	"github.com/readypixelgo/venue-booking/internal/pricing"
	"github.com/readypixelgo/venue-booking/internal/repository"
)

// ReservationRequest is a customer's booking attempt.
type ReservationRequest struct {
	Date          string
	TimeSlot      string
	Adults        int
	Children      int
	Email         string
	Phone         string
	PaymentMethod string
	// TotalPrice is the price the customer was shown.  Zero means "not
	// supplied"; otherwise it must equal the server's quote.
	TotalPrice   int
	DiscountCode string
}

// ReservationResult tells the caller where to send the customer.
type ReservationResult struct {
	BookingID   string `json:"booking_id"`
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"url"`
	TotalPrice  int    `json:"total_price"`
}

// ReservationService creates pending bookings backed by a checkout session.
type ReservationService struct {
	bookings     BookingStore
	availability *AvailabilityService
	reaper       *Reaper
	checkout     CheckoutProvider
	changes      ChangePublisher
	launch       pricing.LaunchCode
	cal          Calendar
	currency     string
	siteURL      string
	log          *zap.Logger
}

// ReservationDeps groups ReservationService collaborators.
type ReservationDeps struct {
	Bookings     BookingStore
	Availability *AvailabilityService
	Reaper       *Reaper
	Checkout     CheckoutProvider
	Changes      ChangePublisher
	Launch       pricing.LaunchCode
	Calendar     Calendar
	Currency     string
	SiteURL      string
	Log          *zap.Logger
}

// NewReservationService wires a ReservationService.
func NewReservationService(d ReservationDeps) *ReservationService {
	return &ReservationService{
		bookings:     d.Bookings,
		availability: d.Availability,
		reaper:       d.Reaper,
		checkout:     d.Checkout,
		changes:      d.Changes,
		launch:       d.Launch,
		cal:          d.Calendar,
		currency:     d.Currency,
		siteURL:      strings.TrimRight(d.SiteURL, "/"),
		log:          d.Log,
	}
}

// Quote prices a party without touching any state.
func (s *ReservationService) Quote(adults, children int, code string) (*pricing.Quote, error) {
	q, err := s.launch.Quote(adults, children, code, s.cal.Now())
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	return &q, nil
}

// Validate checks a request without reading or writing any state and
// returns the server-side quote.
func (s *ReservationService) Validate(req ReservationRequest) (*pricing.Quote, error) {
	if err := checkSlot(req.TimeSlot); err != nil {
		return nil, err
	}
	if err := s.cal.CheckPublic(req.Date); err != nil {
		return nil, err
	}
	if err := checkContact(req.Email, req.Phone); err != nil {
		return nil, err
	}
	q, err := s.Quote(req.Adults, req.Children, req.DiscountCode)
	if err != nil {
		return nil, err
	}
	if req.TotalPrice != 0 && req.TotalPrice != q.Total {
		return nil, apperr.Validation("price has changed, please review your booking")
	}
	return q, nil
}

// Create validates req, opens a checkout session and records a pending
// booking that holds the slot until the session is paid or the hold runs
// out.  When another booking wins the slot first the session is expired
// and a Conflict is returned.
func (s *ReservationService) Create(ctx context.Context, req ReservationRequest) (*ReservationResult, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.PaymentMethod == "" {
		req.PaymentMethod = "card"
	}
	q, err := s.Validate(req)
	if err != nil {
		return nil, err
	}

	s.reaper.reapBestEffort(ctx, req.Date)
	st, err := s.availability.slotState(ctx, req.Date, req.TimeSlot)
	if err != nil {
		return nil, apperr.Internal("could not check availability", err)
	}
	switch st.Status {
	case model.SlotBooked:
		return nil, apperr.Conflict("this time slot is already booked")
	case model.SlotDisabled:
		return nil, apperr.Conflict("this time slot is not available")
	}

	id := uuid.NewString()
	session, err := s.checkout.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		BookingID:       id,
		BookingDate:     req.Date,
		TimeSlot:        req.TimeSlot,
		Adults:          req.Adults,
		Children:        req.Children,
		Amount:          q.Total,
		Currency:        s.currency,
		Email:           req.Email,
		Phone:           req.Phone,
		PaymentMethod:   req.PaymentMethod,
		DiscountCode:    q.DiscountCode,
		DiscountPercent: q.DiscountPercent,
		SuccessURL:      s.siteURL + "/booking-success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:       s.siteURL + "/",
	})
	if err != nil {
		s.log.Error("checkout session create failed", zap.String("date", req.Date), zap.String("slot", req.TimeSlot), zap.Error(err))
		return nil, apperr.Upstream("payment provider is unavailable, please try again", err)
	}

	b := &model.Booking{
		ID:                id,
		BookingDate:       req.Date,
		TimeSlot:          req.TimeSlot,
		Adults:            req.Adults,
		Children:          req.Children,
		TotalPrice:        q.Total,
		Email:             req.Email,
		Phone:             req.Phone,
		PaymentMethod:     req.PaymentMethod,
		PaymentStatus:     model.PaymentPending,
		DiscountPercent:   q.DiscountPercent,
		ProviderSessionID: session.ID,
		CreatedAt:         s.cal.Now().UTC().Truncate(time.Millisecond),
	}
	if q.DiscountCode != "" {
		code := q.DiscountCode
		b.DiscountCode = &code
	}

	if err := s.bookings.Create(ctx, b); err != nil {
		s.expireSession(ctx, session.ID)
		if errors.Is(err, repository.ErrSlotTaken) {
			return nil, apperr.Conflict("this time slot was just booked by someone else")
		}
		s.log.Error("booking insert failed after checkout session was created",
			zap.Bool("reconcile", true), zap.String("session_id", session.ID),
			zap.String("booking_id", id), zap.Error(err))
		return nil, apperr.Internal("could not save booking", err)
	}

	s.publish(ctx, req.Date)
	s.log.Info("booking hold created", zap.String("booking_id", id), zap.String("date", req.Date),
		zap.String("slot", req.TimeSlot), zap.Int("total", q.Total))
	return &ReservationResult{BookingID: id, SessionID: session.ID, RedirectURL: session.RedirectURL, TotalPrice: q.Total}, nil
}

func (s *ReservationService) expireSession(ctx context.Context, sessionID string) {
	if err := s.checkout.ExpireSession(ctx, sessionID); err != nil {
		s.log.Error("could not expire orphaned checkout session",
			zap.Bool("reconcile", true), zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (s *ReservationService) publish(ctx context.Context, date string) {
	publishChange(ctx, s.changes, s.log, date)
}

// publishChange signals viewers of date; failures only delay a refresh.
func publishChange(ctx context.Context, p ChangePublisher, log *zap.Logger, date string) {
	if p == nil || date == "" {
		return
	}
	if err := p.Publish(ctx, date); err != nil {
		log.Warn("change publish failed", zap.String("date", date), zap.Error(err))
	}
}
