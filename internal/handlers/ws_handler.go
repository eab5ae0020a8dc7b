package handlers

import (
	"log/slog"

	"github.com/anonto42/nano-social/backend/internal/realtime"
	"github.com/labstack/echo/v4"
)

// WSHandler upgrades authenticated requests onto the realtime hub
type WSHandler struct {
	hub            *realtime.Hub
	allowedOrigins []string
	log            *slog.Logger
}

func NewWSHandler(hub *realtime.Hub, allowedOrigins []string, log *slog.Logger) *WSHandler {
	return &WSHandler{hub: hub, allowedOrigins: allowedOrigins, log: log}
}

// Connect attaches the caller's socket. The upgrader has already answered the
// client when the handshake fails, so that error is only logged.
func (h *WSHandler) Connect(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.hub.ServeWS(c.Response(), c.Request(), user.ID, h.allowedOrigins); err != nil {
		h.log.Warn("websocket upgrade failed", "user_id", user.ID, "error", err)
	}
	return nil
}
