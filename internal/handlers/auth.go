package handlers

import (
	"net/http"
	"time"

	"github.com/anonto42/nano-social/backend/internal/identity"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"github.com/labstack/echo/v4"
)

const devTokenTTL = 72 * time.Hour

// AuthHandler issues development session tokens. It is only wired when the
// JWT verifier is active outside production.
type AuthHandler struct {
	userRepository repositories.UserRepository
	issuer         *identity.JWTVerifier
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(userRepo repositories.UserRepository, issuer *identity.JWTVerifier) *AuthHandler {
	return &AuthHandler{userRepository: userRepo, issuer: issuer}
}

// RegisterAuthRoutes registers authentication-related routes
func (h *AuthHandler) RegisterAuthRoutes(g *echo.Group) {
	g.POST("/token", h.IssueToken)
}

type issueTokenRequest struct {
	ExternalID string `json:"external_id" validate:"required,max=128"`
}

// IssueToken signs a token for an existing local user
func (h *AuthHandler) IssueToken(c echo.Context) error {
	if h.issuer == nil {
		return apperrors.Unavailable("token issuance is disabled")
	}
	var req issueTokenRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	user, err := h.userRepository.GetUserByExternalID(c.Request().Context(), req.ExternalID)
	if err != nil {
		return err
	}

	token, err := h.issuer.IssueToken(user.ExternalID, devTokenTTL)
	if err != nil {
		return apperrors.Internal(err)
	}
	return ok(c, http.StatusOK, echo.Map{
		"token":      token,
		"expires_in": int(devTokenTTL.Seconds()),
		"user":       user.ToCompact(),
	})
}
