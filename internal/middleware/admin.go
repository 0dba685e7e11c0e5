package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// AdminCodeHeader carries the shared operator secret.
const AdminCodeHeader = "X-Admin-Code"

const adminCodeKey = "admin_code"

// RequireAdminCode rejects requests without an X-Admin-Code header with 401
// and stores the trimmed code in the context.  Whether the code is valid is
// decided once, by the admin service.
func RequireAdminCode() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			code := strings.TrimSpace(c.Request().Header.Get(AdminCodeHeader))
			if code == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid admin access code"})
			}
			c.Set(adminCodeKey, code)
			return next(c)
		}
	}
}

// AdminCode returns the code stored by RequireAdminCode, or the raw
// header when the middleware did not run.
func AdminCode(c echo.Context) string {
	if v, ok := c.Get(adminCodeKey).(string); ok {
		return v
	}
	return strings.TrimSpace(c.Request().Header.Get(AdminCodeHeader))
}
