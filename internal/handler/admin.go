package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/readypixelgo/venue-booking/internal/middleware"
	"github.com/readypixelgo/venue-booking/internal/model"
	"github.com/readypixelgo/venue-booking/internal/service"
)

// Admin is the operator console.  Every method takes the access code and
// checks it before doing anything else.
type Admin interface {
	GetSchedule(ctx context.Context, code, date string) (*service.Schedule, error)
	SetOverride(ctx context.Context, code, date, label string, isActive bool, updatedBy string) error
	SetOverrides(ctx context.Context, code string, req service.BulkOverrideRequest) (*service.BulkOverrideResult, error)
	ReleaseBooking(ctx context.Context, code, id string) (*model.Booking, error)
	UpdateBooking(ctx context.Context, code, id string, upd model.BookingUpdate) (*model.Booking, error)
	UpcomingBookings(ctx context.Context, code string, limit, offset int) (*service.UpcomingPage, error)
	Reap(ctx context.Context, code, date string) (*service.ReapResult, error)
	WaitlistStats(ctx context.Context, code string) (*service.WaitlistStats, error)
}

// AdminHandler serves /v1/admin.  Routes are expected behind
// middleware.RequireAdminCode.
type AdminHandler struct {
	svc Admin
	log *zap.Logger
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(svc Admin, log *zap.Logger) *AdminHandler {
	if svc == nil || log == nil {
		panic("nil dependency passed to NewAdminHandler")
	}
	return &AdminHandler{svc: svc, log: log}
}

// GetSchedule handles GET /v1/admin/schedule?date=.
func (h *AdminHandler) GetSchedule(c echo.Context) error {
	sched, err := h.svc.GetSchedule(c.Request().Context(), middleware.AdminCode(c), c.QueryParam("date"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, sched)
}

type overrideRequest struct {
	// single slot form
	Date     string `json:"date"`
	TimeSlot string `json:"time_slot"`
	// bulk form
	Dates     []string `json:"dates"`
	TimeSlots []string `json:"time_slots"`

	IsActive  *bool  `json:"is_active" validate:"required"`
	UpdatedBy string `json:"updated_by" validate:"max=100"`
}

// PutOverrides handles PUT /v1/admin/overrides.  A body with date and
// time_slot sets one override and returns the refreshed schedule; a body
// with dates and time_slots sets every combination and reports per item.
func (h *AdminHandler) PutOverrides(c echo.Context) error {
	var req overrideRequest
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	ctx := c.Request().Context()
	code := middleware.AdminCode(c)

	if len(req.Dates) == 0 && len(req.TimeSlots) == 0 {
		if err := h.svc.SetOverride(ctx, code, req.Date, req.TimeSlot, *req.IsActive, req.UpdatedBy); err != nil {
			return respondError(c, h.log, err)
		}
		sched, err := h.svc.GetSchedule(ctx, code, req.Date)
		if err != nil {
			return respondError(c, h.log, err)
		}
		return c.JSON(http.StatusOK, sched)
	}

	res, err := h.svc.SetOverrides(ctx, code, service.BulkOverrideRequest{
		Dates:     req.Dates,
		TimeSlots: req.TimeSlots,
		IsActive:  *req.IsActive,
		UpdatedBy: req.UpdatedBy,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	status := http.StatusOK
	if res.Failed > 0 {
		status = http.StatusMultiStatus
	}
	return c.JSON(status, res)
}

// ReleaseBooking handles POST /v1/admin/bookings/:id/release.
func (h *AdminHandler) ReleaseBooking(c echo.Context) error {
	b, err := h.svc.ReleaseBooking(c.Request().Context(), middleware.AdminCode(c), c.Param("id"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}

type bookingPatch struct {
	BookingDate *string `json:"booking_date"`
	TimeSlot    *string `json:"time_slot"`
	Email       *string `json:"email" validate:"omitempty,email"`
	Phone       *string `json:"phone" validate:"omitempty,phone"`
	Adults      *int    `json:"adults" validate:"omitempty,gte=0"`
	Children    *int    `json:"children" validate:"omitempty,gte=0"`
	TotalPrice  *int    `json:"total_price" validate:"omitempty,gte=0"`
}

// UpdateBooking handles PATCH /v1/admin/bookings/:id.  Only supplied
// fields change.
func (h *AdminHandler) UpdateBooking(c echo.Context) error {
	var req bookingPatch
	if err := bind(c, &req); err != nil {
		return respondError(c, h.log, err)
	}
	b, err := h.svc.UpdateBooking(c.Request().Context(), middleware.AdminCode(c), c.Param("id"), model.BookingUpdate{
		BookingDate: req.BookingDate,
		TimeSlot:    req.TimeSlot,
		Email:       req.Email,
		Phone:       req.Phone,
		Adults:      req.Adults,
		Children:    req.Children,
		TotalPrice:  req.TotalPrice,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, b)
}

// UpcomingBookings handles GET /v1/admin/bookings/upcoming?limit=&offset=.
func (h *AdminHandler) UpcomingBookings(c echo.Context) error {
	limit, err := intParam(c, "limit", 0)
	if err != nil {
		return respondError(c, h.log, err)
	}
	offset, err := intParam(c, "offset", 0)
	if err != nil {
		return respondError(c, h.log, err)
	}
	page, err := h.svc.UpcomingBookings(c.Request().Context(), middleware.AdminCode(c), limit, offset)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, page)
}

// Reap handles POST /v1/admin/reap?date=.  Without a date every date is
// reaped.
func (h *AdminHandler) Reap(c echo.Context) error {
	res, err := h.svc.Reap(c.Request().Context(), middleware.AdminCode(c), c.QueryParam("date"))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// WaitlistStats handles GET /v1/admin/waitlist/stats.
func (h *AdminHandler) WaitlistStats(c echo.Context) error {
	stats, err := h.svc.WaitlistStats(c.Request().Context(), middleware.AdminCode(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, stats)
}
