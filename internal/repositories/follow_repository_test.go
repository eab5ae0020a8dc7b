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

func TestFollowLifecycle(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "Alice")
	bob := testutil.CreateUser(t, db, "Bob")
	repo := NewPostgresFollowRepository(db)

	require.NoError(t, repo.CreateFollow(ctx, alice.ID, bob.ID, t0))
	assert.Equal(t, apperrors.ErrAlreadyFollowing, repo.CreateFollow(ctx, alice.ID, bob.ID, t0))

	following, err := repo.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)
	following, err = repo.IsFollowing(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, following)

	followers, err := repo.GetFollowers(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, followers, 1)
	assert.Equal(t, "Alice", followers[0].Name)

	ids, err := repo.GetFollowingIDs(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{bob.ID}, ids)

	count, err := repo.GetFollowersCount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, repo.DeleteFollow(ctx, alice.ID, bob.ID))
	assert.Equal(t, apperrors.ErrNotFollowing, repo.DeleteFollow(ctx, alice.ID, bob.ID))
}

func TestFollowRequests(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "Alice")
	bob := testutil.CreateUser(t, db, "Bob", testutil.Private())
	repo := NewPostgresFollowRepository(db)

	req, err := repo.CreateFollowRequest(ctx, alice.ID, bob.ID, t0)
	require.NoError(t, err)
	assert.Equal(t, models.FollowRequestPending, req.Status)

	_, err = repo.CreateFollowRequest(ctx, alice.ID, bob.ID, t0)
	assert.Equal(t, apperrors.ErrRequestPending, err)

	pending, err := repo.GetPendingRequests(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.NotNil(t, pending[0].Requester)
	assert.Equal(t, "Alice", pending[0].Requester.Name)

	loaded, err := repo.GetFollowRequest(ctx, req.ID)
	require.NoError(t, err)
	require.NoError(t, repo.AcceptFollowRequest(ctx, loaded, t0.Add(time.Minute)))
	assert.Equal(t, models.FollowRequestAccepted, loaded.Status)

	following, err := repo.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, following)

	pending, err = repo.GetPendingRequests(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	_, err = repo.GetFollowRequest(ctx, 999)
	assert.Equal(t, apperrors.ErrFollowRequestNotFound, err)
}

func TestDeclinedRequestCanBeReopened(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "Alice")
	bob := testutil.CreateUser(t, db, "Bob", testutil.Private())
	repo := NewPostgresFollowRepository(db)

	req, err := repo.CreateFollowRequest(ctx, alice.ID, bob.ID, t0)
	require.NoError(t, err)
	require.NoError(t, repo.DeclineFollowRequest(ctx, req, t0.Add(time.Minute)))

	reopened, err := repo.CreateFollowRequest(ctx, alice.ID, bob.ID, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, req.ID, reopened.ID)
	assert.Equal(t, models.FollowRequestPending, reopened.Status)
}

func TestBlockSeversGraph(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "Alice")
	bob := testutil.CreateUser(t, db, "Bob")
	follows := NewPostgresFollowRepository(db)
	blocks := NewPostgresBlockRepository(db)

	require.NoError(t, follows.CreateFollow(ctx, alice.ID, bob.ID, t0))
	require.NoError(t, follows.CreateFollow(ctx, bob.ID, alice.ID, t0))

	require.NoError(t, blocks.Block(ctx, alice.ID, bob.ID, t0))
	require.NoError(t, blocks.Block(ctx, alice.ID, bob.ID, t0), "blocking twice is idempotent")

	for _, pair := range [][2]uint{{alice.ID, bob.ID}, {bob.ID, alice.ID}} {
		following, err := follows.IsFollowing(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.False(t, following)
	}

	blocked, err := blocks.IsBlockedEither(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, blocked, "a block hides the pair in both directions")

	ids, err := blocks.BlockedUserIDs(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{alice.ID}, ids)

	require.NoError(t, blocks.Unblock(ctx, alice.ID, bob.ID))
	assert.Equal(t, apperrors.ErrNotBlocked, blocks.Unblock(ctx, alice.ID, bob.ID))
}
