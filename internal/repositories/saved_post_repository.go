package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SavedPostRepository defines the interface for saved post operations
type SavedPostRepository interface {
	SavePost(ctx context.Context, userID uint, postID string, at time.Time) error
	UnsavePost(ctx context.Context, userID uint, postID string) error
	SavedPostIDs(ctx context.Context, userID uint, postIDs []string) (map[string]bool, error)
	ListSavedPostIDs(ctx context.Context, userID uint, offset, limit int) ([]string, error)
	DeleteSavesForPosts(ctx context.Context, postIDs []string) error
}

// PostgresSavedPostRepository implements SavedPostRepository for PostgreSQL
type PostgresSavedPostRepository struct {
	db *gorm.DB
}

// NewPostgresSavedPostRepository creates a new PostgresSavedPostRepository
func NewPostgresSavedPostRepository(db *gorm.DB) *PostgresSavedPostRepository {
	return &PostgresSavedPostRepository{db: db}
}

// SavePost fails with ErrAlreadySaved when the post is already bookmarked.
func (r *PostgresSavedPostRepository) SavePost(ctx context.Context, userID uint, postID string, at time.Time) error {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.SavedPost{UserID: userID, PostID: postID, CreatedAt: at})
	if res.Error != nil {
		return wrap(res.Error, "savedPostRepo.SavePost")
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrAlreadySaved
	}
	return nil
}

func (r *PostgresSavedPostRepository) UnsavePost(ctx context.Context, userID uint, postID string) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.SavedPost{})
	if res.Error != nil {
		return wrap(res.Error, "savedPostRepo.UnsavePost")
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrSavedPostNotFound
	}
	return nil
}

func (r *PostgresSavedPostRepository) SavedPostIDs(ctx context.Context, userID uint, postIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(postIDs) == 0 {
		return result, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.SavedPost{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, wrap(err, "savedPostRepo.SavedPostIDs")
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

// ListSavedPostIDs returns a page of the user's bookmarks, most recently saved first.
func (r *PostgresSavedPostRepository) ListSavedPostIDs(ctx context.Context, userID uint, offset, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.SavedPost{}).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, wrap(err, "savedPostRepo.ListSavedPostIDs")
	}
	return ids, nil
}

func (r *PostgresSavedPostRepository) DeleteSavesForPosts(ctx context.Context, postIDs []string) error {
	if len(postIDs) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Where("post_id IN ?", postIDs).Delete(&models.SavedPost{}).Error
	return wrap(err, "savedPostRepo.DeleteSavesForPosts")
}
