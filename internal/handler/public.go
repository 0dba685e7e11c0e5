package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/readypixelgo/venue-booking/internal/apperr"
	"github.com/readypixelgo/venue-booking/internal/pricing"
	"github.com/readypixelgo/venue-booking/internal/service"
)

// Availability is the public slot view.
type Availability interface {
	Public(ctx context.Context, date string) (*service.PublicAvailability, error)
}

// Reservations prices and creates bookings.
type Reservations interface {
	Quote(adults, children int, code string) (*pricing.Quote, error)
	Create(ctx context.Context, req service.ReservationRequest) (*service.ReservationResult, error)
}

// Verifier confirms payments.
type Verifier interface {
	Verify(ctx context.Context, sessionID string) (*service.VerifyResult, error)
}

// Waitlist manages launch sign-ups.
type Waitlist interface {
	Join(ctx context.Context, req service.JoinRequest) (*service.JoinResult, error)
	Unsubscribe(ctx context.Context, token string) (bool, error)
}

// PublicHandler serves the unauthenticated customer endpoints.
type PublicHandler struct {
	Availability Availability
	Reservations Reservations
	Verifier     Verifier
	Waitlist     Waitlist
	Log          *zap.Logger
}

// NewPublicHandler constructs a PublicHandler.  All dependencies must be
// non-nil.
func NewPublicHandler(av Availability, res Reservations, ver Verifier, wl Waitlist, log *zap.Logger) *PublicHandler {
	if av == nil || res == nil || ver == nil || wl == nil || log == nil {
		panic("nil dependency passed to NewPublicHandler")
	}
	return &PublicHandler{Availability: av, Reservations: res, Verifier: ver, Waitlist: wl, Log: log}
}

// GetAvailability handles GET /v1/availability?date=YYYY-MM-DD.
func (h *PublicHandler) GetAvailability(c echo.Context) error {
	av, err := h.Availability.Public(c.Request().Context(), c.QueryParam("date"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, av)
}

// GetQuote handles GET /v1/pricing/quote?adults=&children=&code=.
func (h *PublicHandler) GetQuote(c echo.Context) error {
	adults, err := intParam(c, "adults", 0)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	children, err := intParam(c, "children", 0)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	q, err := h.Reservations.Quote(adults, children, c.QueryParam("code"))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, q)
}

type bookingRequest struct {
	Date          string `json:"date" validate:"required"`
	TimeSlot      string `json:"time_slot" validate:"required"`
	Adults        int    `json:"adults" validate:"gte=0,lte=6"`
	Children      int    `json:"children" validate:"gte=0,lte=5"`
	Email         string `json:"email" validate:"required,email"`
	Phone         string `json:"phone" validate:"required,phone"`
	PaymentMethod string `json:"payment_method" validate:"omitempty,max=32"`
	TotalPrice    int    `json:"total_price" validate:"gte=0"`
	DiscountCode  string `json:"discount_code" validate:"max=64"`
}

// CreateBooking handles POST /v1/bookings.  On success it returns 201 with
// the checkout URL the customer must be redirected to.
func (h *PublicHandler) CreateBooking(c echo.Context) error {
	var req bookingRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	res, err := h.Reservations.Create(c.Request().Context(), service.ReservationRequest{
		Date:          req.Date,
		TimeSlot:      req.TimeSlot,
		Adults:        req.Adults,
		Children:      req.Children,
		Email:         req.Email,
		Phone:         req.Phone,
		PaymentMethod: req.PaymentMethod,
		TotalPrice:    req.TotalPrice,
		DiscountCode:  req.DiscountCode,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// VerifyPayment handles POST /v1/payments/verify with {"session_id": ...}.
func (h *PublicHandler) VerifyPayment(c echo.Context) error {
	var req struct {
		SessionID string `json:"session_id" validate:"required"`
	}
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	res, err := h.Verifier.Verify(c.Request().Context(), req.SessionID)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

type joinRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	DOB       string `json:"dob"`
	Consent   bool   `json:"consent"`
}

// JoinWaitlist handles POST /v1/waitlist.
func (h *PublicHandler) JoinWaitlist(c echo.Context) error {
	var req joinRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	res, err := h.Waitlist.Join(c.Request().Context(), service.JoinRequest{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		DOB:       req.DOB,
		Consent:   req.Consent,
	})
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// Unsubscribe handles POST /v1/waitlist/unsubscribe with {"token": ...}.
func (h *PublicHandler) Unsubscribe(c echo.Context) error {
	var req struct {
		Token string `json:"token" validate:"required"`
	}
	if err := bind(c, &req); err != nil {
		return respondError(c, h.Log, err)
	}
	removed, err := h.Waitlist.Unsubscribe(c.Request().Context(), req.Token)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"removed": removed})
}

func intParam(c echo.Context, name string, def int) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.Validation(name + " must be a whole number")
	}
	return n, nil
}
