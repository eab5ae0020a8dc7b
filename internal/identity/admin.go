package identity

import (
	"crypto/subtle"

	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"github.com/labstack/echo/v4"
)

const AdminTokenHeader = "X-Admin-Token"

// RequireAdminToken guards operator-only routes with a shared secret header.
// With no token configured the routes are disabled.
func RequireAdminToken(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return apperrors.Unavailable("admin operations are disabled")
			}
			got := c.Request().Header.Get(AdminTokenHeader)
			if got == "" {
				return apperrors.Unauthorized("missing admin token")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				return apperrors.Forbidden("invalid admin token")
			}
			return next(c)
		}
	}
}
