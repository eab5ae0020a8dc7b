package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/testutil"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedNotifications(t *testing.T, repo NotificationRepository, actor, recipient uint, times ...time.Time) []*models.Notification {
	t.Helper()
	out := make([]*models.Notification, 0, len(times))
	for _, at := range times {
		n := &models.Notification{
			Type: models.NotificationFollow, ActorID: actor, RecipientID: recipient,
			Content: "started following you", CreatedAt: at,
		}
		require.NoError(t, repo.CreateNotification(context.Background(), n))
		out = append(out, n)
	}
	return out
}

func TestMarkSingleVersusAll(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "Alice")
	bob := testutil.CreateUser(t, db, "Bob")
	repo := NewPostgresNotificationRepository(db)

	ns := seedNotifications(t, repo, bob.ID, alice.ID, t0, t0.Add(time.Minute), t0.Add(2*time.Minute))
	seedNotifications(t, repo, alice.ID, bob.ID, t0)

	updated, err := repo.MarkAsRead(ctx, ns[1].ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)

	unread, err := repo.GetUnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread, "only the addressed notification is marked")

	_, err = repo.MarkAsRead(ctx, ns[0].ID, bob.ID)
	assert.Equal(t, apperrors.ErrNotificationNotFound, err, "cannot mark someone else's notification")

	updated, err = repo.MarkAllAsRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	unread, err = repo.GetUnreadCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread, "other recipients are untouched")
}

func TestGetByRecipientNewestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "Alice")
	bob := testutil.CreateUser(t, db, "Bob")
	repo := NewPostgresNotificationRepository(db)

	ns := seedNotifications(t, repo, bob.ID, alice.ID, t0, t0.Add(time.Hour), t0.Add(2*time.Hour))

	page, total, err := repo.GetByRecipientID(context.Background(), alice.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, ns[2].ID, page[0].ID)
	assert.Equal(t, ns[1].ID, page[1].ID)

	page, _, err = repo.GetByRecipientID(context.Background(), alice.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ns[0].ID, page[0].ID)
}

func TestGetGroupedBuckets(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "Alice")
	bob := testutil.CreateUser(t, db, "Bob")
	repo := NewPostgresNotificationRepository(db)

	now := time.Date(2024, 5, 10, 15, 0, 0, 0, time.UTC)
	seedNotifications(t, repo, bob.ID, alice.ID,
		now.Add(-time.Hour),       // today
		now.Add(-20*time.Hour),    // yesterday
		now.Add(-4*24*time.Hour),  // this week
		now.Add(-30*24*time.Hour), // older
	)

	grouped, err := repo.GetGrouped(context.Background(), alice.ID, now)
	require.NoError(t, err)
	assert.Len(t, grouped.Today, 1)
	assert.Len(t, grouped.Yesterday, 1)
	assert.Len(t, grouped.ThisWeek, 1)
	assert.Len(t, grouped.Older, 1)
}
