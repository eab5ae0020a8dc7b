package handlers

import (
	"context"
	"math"
	"net/http"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification-related HTTP requests
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
	userRepository         repositories.UserRepository
	notifier               *Notifier
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifRepo repositories.NotificationRepository, userRepo repositories.UserRepository, notifier *Notifier) *NotificationHandler {
	return &NotificationHandler{
		notificationRepository: notifRepo,
		userRepository:         userRepo,
		notifier:               notifier,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.POST("/notifications", h.CreateNotification)
	g.PATCH("/notifications", h.MarkRead)
	g.GET("/notifications/grouped", h.GetGroupedNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
}

// EnrichedNotification includes actor info. Actor is nil when the
// originating user no longer resolves.
type EnrichedNotification struct {
	models.Notification
	Actor *models.UserCompact `json:"actor"`
}

func (h *NotificationHandler) enrichNotifications(ctx context.Context, notifications []models.Notification) ([]EnrichedNotification, error) {
	ids := make([]uint, 0, len(notifications))
	for _, n := range notifications {
		if n.ActorID != 0 {
			ids = append(ids, n.ActorID)
		}
	}
	actors, err := h.userRepository.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	enriched := make([]EnrichedNotification, len(notifications))
	for i, n := range notifications {
		enriched[i] = EnrichedNotification{Notification: n}
		if actor, ok := actors[n.ActorID]; ok {
			compact := actor.ToCompact()
			enriched[i].Actor = &compact
		}
	}
	return enriched, nil
}

// GetNotifications returns paginated notifications, newest first
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	page, limit := pageParams(c, 20, 50)

	notifications, total, err := h.notificationRepository.GetByRecipientID(ctx, user.ID, page, limit)
	if err != nil {
		return err
	}
	unreadCount, err := h.notificationRepository.GetUnreadCount(ctx, user.ID)
	if err != nil {
		return err
	}
	enriched, err := h.enrichNotifications(ctx, notifications)
	if err != nil {
		return err
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	return okWithMeta(c, http.StatusOK, echo.Map{"notifications": enriched}, echo.Map{
		"currentPage":     page,
		"totalPages":      totalPages,
		"totalItems":      total,
		"itemsPerPage":    limit,
		"hasNextPage":     page < totalPages,
		"hasPreviousPage": page > 1,
		"unreadCount":     unreadCount,
	})
}

// GetGroupedNotifications returns notifications grouped by time period
func (h *NotificationHandler) GetGroupedNotifications(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	grouped, err := h.notificationRepository.GetGrouped(ctx, user.ID, h.notifier.clock.Now())
	if err != nil {
		return err
	}
	unreadCount, err := h.notificationRepository.GetUnreadCount(ctx, user.ID)
	if err != nil {
		return err
	}

	buckets := echo.Map{}
	for name, list := range map[string][]models.Notification{
		"today":     grouped.Today,
		"yesterday": grouped.Yesterday,
		"thisWeek":  grouped.ThisWeek,
		"older":     grouped.Older,
	} {
		enriched, err := h.enrichNotifications(ctx, list)
		if err != nil {
			return err
		}
		buckets[name] = enriched
	}

	return ok(c, http.StatusOK, echo.Map{"notifications": buckets, "unreadCount": unreadCount})
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	count, err := h.notificationRepository.GetUnreadCount(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"count": count})
}

// CreateNotification lets the caller notify another user directly.
func (h *NotificationHandler) CreateNotification(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreateNotificationRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if req.RecipientID == user.ID {
		return apperrors.InvalidArg("you cannot notify yourself")
	}

	ctx := c.Request().Context()
	if _, err := h.userRepository.GetUserByID(ctx, req.RecipientID); err != nil {
		return err
	}

	n := &models.Notification{
		Type:        req.Type,
		ActorID:     user.ID,
		RecipientID: req.RecipientID,
		PostID:      req.PostID,
		ChatID:      req.ChatID,
		Content:     req.Content,
		CreatedAt:   h.notifier.clock.Now(),
	}
	if err := h.notificationRepository.CreateNotification(ctx, n); err != nil {
		return err
	}
	h.notifier.publish(n)
	return ok(c, http.StatusCreated, echo.Map{"notification": n})
}

// MarkRead marks the notification named by id, or every unread one when id is absent.
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.MarkNotificationsReadRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.InvalidArg("invalid request payload")
	}

	ctx := c.Request().Context()
	var updated int64
	if req.ID != nil {
		updated, err = h.notificationRepository.MarkAsRead(ctx, *req.ID, user.ID)
	} else {
		updated, err = h.notificationRepository.MarkAllAsRead(ctx, user.ID)
	}
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"updated": updated})
}
