package identity

import (
	"context"
	"strings"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"github.com/labstack/echo/v4"
)

const currentUserKey = "currentUser"

// UserLookup is the slice of the user repository identity resolution needs.
type UserLookup interface {
	GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error)
}

// Middleware resolves the bearer token to a local user. An absent or invalid
// token is UNAUTHENTICATED; a valid token with no local profile is NOT_FOUND.
func Middleware(verifier TokenVerifier, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := extractToken(c)
			if token == "" {
				return apperrors.ErrMissingToken
			}

			ctx := c.Request().Context()
			externalID, err := verifier.Verify(ctx, token)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeUnauthenticated, "invalid or expired token", err)
			}

			user, err := users.GetUserByExternalID(ctx, externalID)
			if err != nil {
				return err
			}

			c.Set(currentUserKey, user)
			return next(c)
		}
	}
}

// extractToken reads "Authorization: Bearer <t>", falling back to ?token= for
// clients that cannot set headers on a websocket upgrade.
func extractToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return ""
		}
		return strings.TrimSpace(parts[1])
	}
	return c.QueryParam("token")
}

// CurrentUser returns the user resolved by Middleware, or nil on routes it does not guard.
func CurrentUser(c echo.Context) *models.User {
	u, _ := c.Get(currentUserKey).(*models.User)
	return u
}
