package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommentLikeRepository defines the interface for comment like operations
type CommentLikeRepository interface {
	CreateCommentLike(ctx context.Context, commentID, userID uint, at time.Time) error
	DeleteCommentLike(ctx context.Context, commentID, userID uint) error
	CountsForComments(ctx context.Context, commentIDs []uint) (map[uint]int64, error)
	LikedCommentIDs(ctx context.Context, userID uint, commentIDs []uint) (map[uint]bool, error)
}

// PostgresCommentLikeRepository implements CommentLikeRepository for PostgreSQL
type PostgresCommentLikeRepository struct {
	db *gorm.DB
}

func NewPostgresCommentLikeRepository(db *gorm.DB) *PostgresCommentLikeRepository {
	return &PostgresCommentLikeRepository{db: db}
}

func (r *PostgresCommentLikeRepository) CreateCommentLike(ctx context.Context, commentID, userID uint, at time.Time) error {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.CommentLike{CommentID: commentID, UserID: userID, CreatedAt: at})
	if res.Error != nil {
		return wrap(res.Error, "commentLikeRepo.CreateCommentLike")
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrCommentAlreadyLiked
	}
	return nil
}

func (r *PostgresCommentLikeRepository) DeleteCommentLike(ctx context.Context, commentID, userID uint) error {
	res := r.db.WithContext(ctx).Where("comment_id = ? AND user_id = ?", commentID, userID).Delete(&models.CommentLike{})
	if res.Error != nil {
		return wrap(res.Error, "commentLikeRepo.DeleteCommentLike")
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrCommentLikeNotFound
	}
	return nil
}

// CountsForComments returns the like count of every comment that has at least one like.
func (r *PostgresCommentLikeRepository) CountsForComments(ctx context.Context, commentIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64)
	if len(commentIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		CommentID uint
		Count     int64
	}
	err := r.db.WithContext(ctx).Model(&models.CommentLike{}).
		Select("comment_id, COUNT(*) AS count").
		Where("comment_id IN ?", commentIDs).
		Group("comment_id").
		Scan(&rows).Error
	if err != nil {
		return nil, wrap(err, "commentLikeRepo.CountsForComments")
	}
	for _, row := range rows {
		result[row.CommentID] = row.Count
	}
	return result, nil
}

func (r *PostgresCommentLikeRepository) LikedCommentIDs(ctx context.Context, userID uint, commentIDs []uint) (map[uint]bool, error) {
	result := make(map[uint]bool)
	if len(commentIDs) == 0 {
		return result, nil
	}
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.CommentLike{}).
		Where("user_id = ? AND comment_id IN ?", userID, commentIDs).
		Pluck("comment_id", &ids).Error
	if err != nil {
		return nil, wrap(err, "commentLikeRepo.LikedCommentIDs")
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}
