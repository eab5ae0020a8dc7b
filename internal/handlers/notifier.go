package handlers

import (
	"context"
	"log/slog"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/realtime"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/anonto42/nano-social/backend/pkg/clock"
)

// Notifier is the single producer path for notifications: persist, then push.
// Failures are logged and never fail the action that triggered them.
type Notifier struct {
	repo      repositories.NotificationRepository
	publisher realtime.Publisher
	clock     clock.Clock
	log       *slog.Logger
}

func NewNotifier(repo repositories.NotificationRepository, publisher realtime.Publisher, clk clock.Clock, log *slog.Logger) *Notifier {
	return &Notifier{repo: repo, publisher: publisher, clock: clk, log: log}
}

func (n *Notifier) Notify(ctx context.Context, notification *models.Notification) *models.Notification {
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = n.clock.Now()
	}
	if err := n.repo.CreateNotification(ctx, notification); err != nil {
		n.log.Error("failed to create notification",
			"type", notification.Type,
			"recipient_id", notification.RecipientID,
			"error", err)
		return nil
	}
	n.publish(notification)
	return notification
}

func (n *Notifier) publish(notification *models.Notification) {
	n.publisher.Publish(notification.RecipientID, realtime.Event{
		Type: realtime.EventNotificationCreated,
		Data: notification,
	})
}
