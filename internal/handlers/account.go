package handlers

import (
	"context"
	"log/slog"

	"github.com/anonto42/nano-social/backend/internal/repositories"
)

// AccountRemover deletes a user together with everything they own across
// both stores and corrects the counters on posts they reacted to.
type AccountRemover struct {
	users    repositories.UserRepository
	posts    repositories.PostRepository
	stories  repositories.StoryRepository
	activity repositories.StoryViewRepository
	likes    repositories.LikeRepository
	comments repositories.CommentRepository
	saves    repositories.SavedPostRepository
	log      *slog.Logger
}

func NewAccountRemover(
	users repositories.UserRepository,
	posts repositories.PostRepository,
	stories repositories.StoryRepository,
	activity repositories.StoryViewRepository,
	likes repositories.LikeRepository,
	comments repositories.CommentRepository,
	saves repositories.SavedPostRepository,
	log *slog.Logger,
) *AccountRemover {
	return &AccountRemover{
		users:    users,
		posts:    posts,
		stories:  stories,
		activity: activity,
		likes:    likes,
		comments: comments,
		saves:    saves,
		log:      log,
	}
}

// Remove deletes the relational rows first so the account stops resolving
// even if a later document-store step fails.
func (r *AccountRemover) Remove(ctx context.Context, userID uint) error {
	footprint, err := r.users.DeleteUser(ctx, userID)
	if err != nil {
		return err
	}

	postIDs, err := r.posts.DeletePostsByAuthor(ctx, userID)
	if err != nil {
		return err
	}
	own := make(map[string]bool, len(postIDs))
	for _, id := range postIDs {
		own[id] = true
		if err := r.likes.DeleteLikesForPost(ctx, id); err != nil {
			return err
		}
		if err := r.comments.DeleteCommentsForPost(ctx, id); err != nil {
			return err
		}
	}
	if err := r.saves.DeleteSavesForPosts(ctx, postIDs); err != nil {
		return err
	}

	storyIDs, err := r.stories.DeleteStoriesByUser(ctx, userID)
	if err != nil {
		return err
	}
	if err := r.activity.DeleteActivityForStories(ctx, storyIDs); err != nil {
		return err
	}

	for _, id := range footprint.LikedPostIDs {
		if own[id] {
			continue
		}
		if err := r.posts.IncrementLikesCount(ctx, id, -1); err != nil {
			return err
		}
	}
	for id, n := range footprint.CommentCounts {
		if own[id] {
			continue
		}
		if err := r.posts.IncrementCommentsCount(ctx, id, -n); err != nil {
			return err
		}
	}

	r.log.Info("account removed", "user_id", userID, "posts", len(postIDs), "stories", len(storyIDs))
	return nil
}
