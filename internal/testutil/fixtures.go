package testutil

import (
	"strings"
	"testing"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// UserOption tweaks a fixture user before it is inserted.
type UserOption func(*models.User)

func Private() UserOption {
	return func(u *models.User) { u.IsPrivate = true }
}

func LastSeen(at time.Time) UserOption {
	return func(u *models.User) { u.LastSeenAt = &at }
}

// CreateUser inserts a user whose external id is "ext-<lowercased name>".
func CreateUser(t *testing.T, db *gorm.DB, name string, opts ...UserOption) *models.User {
	t.Helper()
	username := strings.ToLower(name)
	u := &models.User{
		ExternalID: "ext-" + username,
		Username:   &username,
		Name:       name,
	}
	for _, opt := range opts {
		opt(u)
	}
	require.NoError(t, db.Create(u).Error)
	return u
}
