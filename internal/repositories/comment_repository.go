package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"gorm.io/gorm"
)

// CommentRepository defines the interface for comment data operations
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetCommentByID(ctx context.Context, id uint) (*models.Comment, error)
	GetCommentsByPostID(ctx context.Context, postID string) ([]models.Comment, error)
	UpdateCommentContent(ctx context.Context, id uint, content string, at time.Time) error
	DeleteComment(ctx context.Context, id uint) error
	DeleteCommentsForPost(ctx context.Context, postID string) error
}

// PostgresCommentRepository implements CommentRepository for PostgreSQL
type PostgresCommentRepository struct {
	db *gorm.DB
}

// NewPostgresCommentRepository creates a new PostgresCommentRepository
func NewPostgresCommentRepository(db *gorm.DB) *PostgresCommentRepository {
	return &PostgresCommentRepository{db: db}
}

func (r *PostgresCommentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return wrap(err, "commentRepo.CreateComment")
	}
	return nil
}

func (r *PostgresCommentRepository) GetCommentByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		return nil, translate(err, apperrors.ErrCommentNotFound, "commentRepo.GetCommentByID")
	}
	return &comment, nil
}

// GetCommentsByPostID returns the post's comments oldest first with their authors.
func (r *PostgresCommentRepository) GetCommentsByPostID(ctx context.Context, postID string) ([]models.Comment, error) {
	var comments []models.Comment
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("post_id = ?", postID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, wrap(err, "commentRepo.GetCommentsByPostID")
}

func (r *PostgresCommentRepository) UpdateCommentContent(ctx context.Context, id uint, content string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Comment{}).Where("id = ?", id).
		Updates(map[string]any{"content": content, "updated_at": at})
	if res.Error != nil {
		return wrap(res.Error, "commentRepo.UpdateCommentContent")
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrCommentNotFound
	}
	return nil
}

// DeleteComment removes the comment and its likes.
func (r *PostgresCommentRepository) DeleteComment(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Comment{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrCommentNotFound
		}
		return tx.Where("comment_id = ?", id).Delete(&models.CommentLike{}).Error
	})
	if err == apperrors.ErrCommentNotFound {
		return err
	}
	return wrap(err, "commentRepo.DeleteComment")
}

// DeleteCommentsForPost removes every comment on the post with their likes.
func (r *PostgresCommentRepository) DeleteCommentsForPost(ctx context.Context, postID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := tx.Model(&models.Comment{}).Select("id").Where("post_id = ?", postID)
		if err := tx.Where("comment_id IN (?)", ids).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		return tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error
	})
	return wrap(err, "commentRepo.DeleteCommentsForPost")
}
