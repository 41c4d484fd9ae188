package middleware

import (
	"github.com/labstack/echo/v4"
)

// Subject returns the authenticated user's key stored by BearerAuth, or
// "guest" when the request carries no verified token.
func Subject(c echo.Context) string {
	if v, ok := c.Get(ContextUserID).(string); ok && v != "" {
		return v
	}
	return "guest"
}
