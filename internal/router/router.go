package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/readypixelgo/venue-booking/internal/handler"
	"github.com/readypixelgo/venue-booking/internal/middleware"
)

// RegisterRoutes registers the health endpoints.  /healthz/config reports
// which provider secrets are present.
func RegisterRoutes(e *echo.Echo, secrets map[string]bool) {
	e.GET("/healthz", handler.Health)
	e.GET("/healthz/config", handler.ConfigStatus(secrets))
}

// RegisterPublic registers the customer endpoints.  State-changing POST
// routes run behind limit, the redis token bucket.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, live *handler.LiveHandler, limit echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/availability", p.GetAvailability)
	g.GET("/availability/live", live.Stream)
	g.GET("/pricing/quote", p.GetQuote)

	g.POST("/bookings", p.CreateBooking, limit)
	g.POST("/payments/verify", p.VerifyPayment, limit)
	g.POST("/waitlist", p.JoinWaitlist, limit)
	g.POST("/waitlist/unsubscribe", p.Unsubscribe, limit)
}

// RegisterAdmin registers the operator console under /v1/admin.  Every
// route requires an X-Admin-Code header; the admin service validates it.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler) {
	g := e.Group("/v1/admin")
	g.Use(middleware.RequireAdminCode())

	g.GET("/schedule", a.GetSchedule)
	g.PUT("/overrides", a.PutOverrides)
	g.GET("/bookings/upcoming", a.UpcomingBookings)
	g.POST("/bookings/:id/release", a.ReleaseBooking)
	g.PATCH("/bookings/:id", a.UpdateBooking)
	g.POST("/reap", a.Reap)
	g.GET("/waitlist/stats", a.WaitlistStats)
}
