package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"github.com/labstack/echo/v4"
	svix "github.com/svix/svix-webhooks/go"
)

const maxWebhookBody = 1 << 20

// identityEvent is the envelope the identity provider posts on user changes.
type identityEvent struct {
	Type string          `json:"type"`
	Data identityPayload `json:"data"`
}

type identityPayload struct {
	ID        string  `json:"id"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Username  *string `json:"username"`
	ImageURL  string  `json:"image_url"`
}

func (p identityPayload) toUser() *models.User {
	u := &models.User{
		ExternalID: p.ID,
		Name:       strings.TrimSpace(p.FirstName + " " + p.LastName),
		AvatarURL:  p.ImageURL,
	}
	if p.Username != nil && *p.Username != "" {
		username := strings.ToLower(*p.Username)
		u.Username = &username
	}
	return u
}

// WebhookHandler keeps local users in sync with the identity provider
type WebhookHandler struct {
	userRepository repositories.UserRepository
	remover        *AccountRemover
	webhook        *svix.Webhook
	log            *slog.Logger
}

// NewWebhookHandler creates a WebhookHandler. An empty secret leaves the
// endpoint disabled.
func NewWebhookHandler(userRepo repositories.UserRepository, remover *AccountRemover, secret string, log *slog.Logger) (*WebhookHandler, error) {
	h := &WebhookHandler{userRepository: userRepo, remover: remover, log: log}
	if secret == "" {
		return h, nil
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, err
	}
	h.webhook = wh
	return h, nil
}

// RegisterWebhookRoutes registers the unauthenticated webhook routes
func (h *WebhookHandler) RegisterWebhookRoutes(g *echo.Group) {
	g.POST("/identity", h.HandleIdentityEvent)
}

// HandleIdentityEvent verifies the signed payload and applies the user change it describes
func (h *WebhookHandler) HandleIdentityEvent(c echo.Context) error {
	if h.webhook == nil {
		return apperrors.Unavailable("identity webhook is not configured")
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return apperrors.InvalidArg("could not read request body")
	}
	if err := h.webhook.Verify(payload, c.Request().Header); err != nil {
		return apperrors.Wrap(apperrors.CodeInvalidArgument, "invalid webhook signature", err)
	}

	var event identityEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return apperrors.InvalidArg("invalid webhook payload")
	}

	switch event.Type {
	case "user.created", "user.updated":
		if event.Data.ID == "" {
			return apperrors.InvalidArg("webhook payload has no user id")
		}
		ctx := c.Request().Context()
		incoming := event.Data.toUser()
		user, err := h.userRepository.UpsertByExternalID(ctx, incoming)
		if errors.Is(err, apperrors.ErrUsernameTaken) && incoming.Username != nil {
			// provision without the username; it can be chosen later via the profile
			h.log.Warn("identity webhook username taken, applying without it",
				"external_id", incoming.ExternalID, "username", *incoming.Username)
			incoming.Username = nil
			user, err = h.userRepository.UpsertByExternalID(ctx, incoming)
		}
		if err != nil {
			return err
		}
		h.log.Info("identity webhook applied", "type", event.Type, "user_id", user.ID)
		return ok(c, http.StatusOK, echo.Map{"user_id": user.ID})
	case "user.deleted":
		ctx := c.Request().Context()
		user, err := h.userRepository.GetUserByExternalID(ctx, event.Data.ID)
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return ok(c, http.StatusOK, echo.Map{"deleted": false})
		}
		if err != nil {
			return err
		}
		if err := h.remover.Remove(ctx, user.ID); err != nil {
			return err
		}
		h.log.Info("identity webhook applied", "type", event.Type, "user_id", user.ID)
		return ok(c, http.StatusOK, echo.Map{"deleted": true})
	default:
		h.log.Debug("identity webhook ignored", "type", event.Type)
		return ok(c, http.StatusOK, echo.Map{"ignored": event.Type})
	}
}
