package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// OwnerHeader carries the authenticated principal's id. Authentication itself
// happens upstream; this service only needs the resulting identity.
const OwnerHeader = "X-Owner-ID"

const ownerContextKey = "ownerID"

// Owner rejects requests without an owner identity and stashes it on the
// request context for handlers.
func Owner() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			owner := c.Request().Header.Get(OwnerHeader)
			if owner == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing "+OwnerHeader+" header")
			}
			c.Set(ownerContextKey, owner)
			return next(c)
		}
	}
}

// OwnerID returns the owner id set by the Owner middleware.
func OwnerID(c echo.Context) string {
	owner, _ := c.Get(ownerContextKey).(string)
	return owner
}
