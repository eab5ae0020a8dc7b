package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	CreateLike(ctx context.Context, postID string, userID uint, at time.Time) error
	DeleteLike(ctx context.Context, postID string, userID uint) error
	HasUserLikedPost(ctx context.Context, postID string, userID uint) (bool, error)
	CountLikes(ctx context.Context, postID string) (int64, error)
	LikedPostIDs(ctx context.Context, userID uint, postIDs []string) (map[string]bool, error)
	DeleteLikesForPost(ctx context.Context, postID string) error
}

// PostgresLikeRepository implements LikeRepository for PostgreSQL
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

// CreateLike fails with ErrAlreadyLiked when the pair already exists.
func (r *PostgresLikeRepository) CreateLike(ctx context.Context, postID string, userID uint, at time.Time) error {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Like{PostID: postID, UserID: userID, CreatedAt: at})
	if res.Error != nil {
		return wrap(res.Error, "likeRepo.CreateLike")
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrAlreadyLiked
	}
	return nil
}

// DeleteLike deletes a like from PostgreSQL
func (r *PostgresLikeRepository) DeleteLike(ctx context.Context, postID string, userID uint) error {
	res := r.db.WithContext(ctx).Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.Like{})
	if res.Error != nil {
		return wrap(res.Error, "likeRepo.DeleteLike")
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrLikeNotFound
	}
	return nil
}

// HasUserLikedPost checks if a user has liked a specific post
func (r *PostgresLikeRepository) HasUserLikedPost(ctx context.Context, postID string, userID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	if err != nil {
		return false, wrap(err, "likeRepo.HasUserLikedPost")
	}
	return count > 0, nil
}

// CountLikes counts the like rows of a post.
func (r *PostgresLikeRepository) CountLikes(ctx context.Context, postID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error
	if err != nil {
		return 0, wrap(err, "likeRepo.CountLikes")
	}
	return count, nil
}

func (r *PostgresLikeRepository) LikedPostIDs(ctx context.Context, userID uint, postIDs []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(postIDs) == 0 {
		return result, nil
	}
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, wrap(err, "likeRepo.LikedPostIDs")
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

func (r *PostgresLikeRepository) DeleteLikesForPost(ctx context.Context, postID string) error {
	err := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.Like{}).Error
	return wrap(err, "likeRepo.DeleteLikesForPost")
}
