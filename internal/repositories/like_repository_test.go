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

const (
	postA = "65f0c0ffee0000000000000a"
	postB = "65f0c0ffee0000000000000b"
)

func TestLikes(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "Alice")
	repo := NewPostgresLikeRepository(db)

	require.NoError(t, repo.CreateLike(ctx, postA, alice.ID, t0))
	assert.Equal(t, apperrors.ErrAlreadyLiked, repo.CreateLike(ctx, postA, alice.ID, t0))

	liked, err := repo.HasUserLikedPost(ctx, postA, alice.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	set, err := repo.LikedPostIDs(ctx, alice.ID, []string{postA, postB})
	require.NoError(t, err)
	assert.True(t, set[postA])
	assert.False(t, set[postB])

	require.NoError(t, repo.DeleteLike(ctx, postA, alice.ID))
	assert.Equal(t, apperrors.ErrLikeNotFound, repo.DeleteLike(ctx, postA, alice.ID))
}

func TestDeleteLikesForPost(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "Alice")
	bob := testutil.CreateUser(t, db, "Bob")
	repo := NewPostgresLikeRepository(db)

	require.NoError(t, repo.CreateLike(ctx, postA, alice.ID, t0))
	require.NoError(t, repo.CreateLike(ctx, postA, bob.ID, t0))
	require.NoError(t, repo.CreateLike(ctx, postB, bob.ID, t0))

	require.NoError(t, repo.DeleteLikesForPost(ctx, postA))

	var remaining int64
	require.NoError(t, db.Model(&models.Like{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)
}

func TestComments(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "Alice")
	bob := testutil.CreateUser(t, db, "Bob")
	repo := NewPostgresCommentRepository(db)

	first := &models.Comment{PostID: postA, UserID: alice.ID, Content: "first", CreatedAt: t0}
	second := &models.Comment{PostID: postA, UserID: bob.ID, Content: "second", CreatedAt: t0.Add(time.Second)}
	require.NoError(t, repo.CreateComment(ctx, first))
	require.NoError(t, repo.CreateComment(ctx, second))

	comments, err := repo.GetCommentsByPostID(ctx, postA)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "first", comments[0].Content)
	require.NotNil(t, comments[1].User)
	assert.Equal(t, "Bob", comments[1].User.Name)

	require.NoError(t, repo.DeleteComment(ctx, first.ID))
	_, err = repo.GetCommentByID(ctx, first.ID)
	assert.Equal(t, apperrors.ErrCommentNotFound, err)
	assert.Equal(t, apperrors.ErrCommentNotFound, repo.DeleteComment(ctx, first.ID))
}

func TestCommentLikes(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "Alice")
	bob := testutil.CreateUser(t, db, "Bob")
	comments := NewPostgresCommentRepository(db)
	repo := NewPostgresCommentLikeRepository(db)

	onA := &models.Comment{PostID: postA, UserID: alice.ID, Content: "a", CreatedAt: t0}
	onB := &models.Comment{PostID: postB, UserID: alice.ID, Content: "b", CreatedAt: t0}
	require.NoError(t, comments.CreateComment(ctx, onA))
	require.NoError(t, comments.CreateComment(ctx, onB))

	require.NoError(t, repo.CreateCommentLike(ctx, onA.ID, alice.ID, t0))
	require.NoError(t, repo.CreateCommentLike(ctx, onA.ID, bob.ID, t0))
	require.NoError(t, repo.CreateCommentLike(ctx, onB.ID, bob.ID, t0))
	assert.Equal(t, apperrors.ErrCommentAlreadyLiked, repo.CreateCommentLike(ctx, onA.ID, bob.ID, t0))

	counts, err := repo.CountsForComments(ctx, []uint{onA.ID, onB.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{onA.ID: 2, onB.ID: 1}, counts)

	liked, err := repo.LikedCommentIDs(ctx, alice.ID, []uint{onA.ID, onB.ID})
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{onA.ID: true}, liked)

	require.NoError(t, repo.DeleteCommentLike(ctx, onA.ID, alice.ID))
	assert.Equal(t, apperrors.ErrCommentLikeNotFound, repo.DeleteCommentLike(ctx, onA.ID, alice.ID))

	// removing comments takes their likes with them
	require.NoError(t, comments.DeleteComment(ctx, onB.ID))
	require.NoError(t, comments.DeleteCommentsForPost(ctx, postA))
	var left int64
	require.NoError(t, db.Model(&models.CommentLike{}).Count(&left).Error)
	assert.Zero(t, left)
}

func TestUpdateCommentContent(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "Alice")
	repo := NewPostgresCommentRepository(db)

	comment := &models.Comment{PostID: postA, UserID: alice.ID, Content: "typo", CreatedAt: t0, UpdatedAt: t0}
	require.NoError(t, repo.CreateComment(ctx, comment))

	require.NoError(t, repo.UpdateCommentContent(ctx, comment.ID, "fixed", t0.Add(time.Minute)))
	got, err := repo.GetCommentByID(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "fixed", got.Content)
	assert.True(t, got.UpdatedAt.Equal(t0.Add(time.Minute)))

	assert.Equal(t, apperrors.ErrCommentNotFound, repo.UpdateCommentContent(ctx, 9999, "x", t0))
}

func TestSavedPostRepository(t *testing.T) {
	db := testutil.NewDB(t)
	ctx := context.Background()
	alice := testutil.CreateUser(t, db, "Alice")
	bob := testutil.CreateUser(t, db, "Bob")
	repo := NewPostgresSavedPostRepository(db)

	require.NoError(t, repo.SavePost(ctx, alice.ID, postA, t0))
	require.NoError(t, repo.SavePost(ctx, alice.ID, postB, t0.Add(time.Minute)))
	require.NoError(t, repo.SavePost(ctx, bob.ID, postA, t0))
	assert.Equal(t, apperrors.ErrAlreadySaved, repo.SavePost(ctx, alice.ID, postA, t0))

	ids, err := repo.ListSavedPostIDs(ctx, alice.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{postB, postA}, ids)
	ids, err = repo.ListSavedPostIDs(ctx, alice.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{postA}, ids)

	flags, err := repo.SavedPostIDs(ctx, bob.ID, []string{postA, postB})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{postA: true}, flags)

	require.NoError(t, repo.UnsavePost(ctx, alice.ID, postB))
	assert.Equal(t, apperrors.ErrSavedPostNotFound, repo.UnsavePost(ctx, alice.ID, postB))

	require.NoError(t, repo.DeleteSavesForPosts(ctx, []string{postA}))
	var left int64
	require.NoError(t, db.Model(&models.SavedPost{}).Count(&left).Error)
	assert.Zero(t, left)
}
