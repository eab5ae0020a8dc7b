package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository defines the interface for follow data operations
type FollowRepository interface {
	CreateFollow(ctx context.Context, followerID, followingID uint, at time.Time) error
	DeleteFollow(ctx context.Context, followerID, followingID uint) error
	IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error)
	GetFollowers(ctx context.Context, userID uint) ([]models.User, error)
	GetFollowing(ctx context.Context, userID uint) ([]models.User, error)
	GetFollowersCount(ctx context.Context, userID uint) (int64, error)
	GetFollowingCount(ctx context.Context, userID uint) (int64, error)
	GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error)

	CreateFollowRequest(ctx context.Context, requesterID, targetID uint, at time.Time) (*models.FollowRequest, error)
	GetFollowRequest(ctx context.Context, id uint) (*models.FollowRequest, error)
	GetPendingRequests(ctx context.Context, targetID uint) ([]models.FollowRequest, error)
	AcceptFollowRequest(ctx context.Context, req *models.FollowRequest, at time.Time) error
	DeclineFollowRequest(ctx context.Context, req *models.FollowRequest, at time.Time) error
}

// PostgresFollowRepository implements FollowRepository for PostgreSQL
type PostgresFollowRepository struct {
	db *gorm.DB
}

// NewPostgresFollowRepository creates a new PostgresFollowRepository
func NewPostgresFollowRepository(db *gorm.DB) *PostgresFollowRepository {
	return &PostgresFollowRepository{db: db}
}

func insertFollow(tx *gorm.DB, followerID, followingID uint, at time.Time) (int64, error) {
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Follow{FollowerID: followerID, FollowingID: followingID, CreatedAt: at})
	return res.RowsAffected, res.Error
}

func (r *PostgresFollowRepository) CreateFollow(ctx context.Context, followerID, followingID uint, at time.Time) error {
	n, err := insertFollow(r.db.WithContext(ctx), followerID, followingID, at)
	if err != nil {
		return wrap(err, "followRepo.CreateFollow")
	}
	if n == 0 {
		return apperrors.ErrAlreadyFollowing
	}
	return nil
}

func (r *PostgresFollowRepository) DeleteFollow(ctx context.Context, followerID, followingID uint) error {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&models.Follow{})
	if res.Error != nil {
		return wrap(res.Error, "followRepo.DeleteFollow")
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFollowing
	}
	return nil
}

func (r *PostgresFollowRepository) IsFollowing(ctx context.Context, followerID, followingID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		return false, wrap(err, "followRepo.IsFollowing")
	}
	return count > 0, nil
}

func (r *PostgresFollowRepository) GetFollowers(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Where("id IN (?)",
		r.db.Table("follows").Select("follower_id").Where("following_id = ?", userID),
	).Order("id").Find(&users).Error
	return users, wrap(err, "followRepo.GetFollowers")
}

func (r *PostgresFollowRepository) GetFollowing(ctx context.Context, userID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).Where("id IN (?)",
		r.db.Table("follows").Select("following_id").Where("follower_id = ?", userID),
	).Order("id").Find(&users).Error
	return users, wrap(err, "followRepo.GetFollowing")
}

func (r *PostgresFollowRepository) GetFollowersCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("following_id = ?", userID).Count(&count).Error
	return count, wrap(err, "followRepo.GetFollowersCount")
}

func (r *PostgresFollowRepository) GetFollowingCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&count).Error
	return count, wrap(err, "followRepo.GetFollowingCount")
}

func (r *PostgresFollowRepository) GetFollowingIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", userID).Pluck("following_id", &ids).Error
	return ids, wrap(err, "followRepo.GetFollowingIDs")
}

// CreateFollowRequest opens a pending request, reopening an earlier declined
// or accepted one for the same pair.
func (r *PostgresFollowRepository) CreateFollowRequest(ctx context.Context, requesterID, targetID uint, at time.Time) (*models.FollowRequest, error) {
	var req models.FollowRequest
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("requester_id = ? AND target_id = ?", requesterID, targetID).First(&req).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			req = models.FollowRequest{
				RequesterID: requesterID,
				TargetID:    targetID,
				Status:      models.FollowRequestPending,
				CreatedAt:   at,
				UpdatedAt:   at,
			}
			return tx.Create(&req).Error
		}
		if err != nil {
			return err
		}
		if req.Status == models.FollowRequestPending {
			return apperrors.ErrRequestPending
		}
		req.Status = models.FollowRequestPending
		req.UpdatedAt = at
		return tx.Model(&req).Updates(map[string]any{"status": req.Status, "updated_at": at}).Error
	})
	if err != nil {
		if apperrors.CodeOf(err) != apperrors.CodeInternal {
			return nil, err
		}
		return nil, wrap(err, "followRepo.CreateFollowRequest")
	}
	return &req, nil
}

func (r *PostgresFollowRepository) GetFollowRequest(ctx context.Context, id uint) (*models.FollowRequest, error) {
	var req models.FollowRequest
	if err := r.db.WithContext(ctx).Preload("Requester").First(&req, id).Error; err != nil {
		return nil, translate(err, apperrors.ErrFollowRequestNotFound, "followRepo.GetFollowRequest")
	}
	return &req, nil
}

func (r *PostgresFollowRepository) GetPendingRequests(ctx context.Context, targetID uint) ([]models.FollowRequest, error) {
	var reqs []models.FollowRequest
	err := r.db.WithContext(ctx).
		Preload("Requester").
		Where("target_id = ? AND status = ?", targetID, models.FollowRequestPending).
		Order("created_at DESC").
		Find(&reqs).Error
	return reqs, wrap(err, "followRepo.GetPendingRequests")
}

// AcceptFollowRequest marks the request accepted and creates the follow edge.
func (r *PostgresFollowRepository) AcceptFollowRequest(ctx context.Context, req *models.FollowRequest, at time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.FollowRequest{}).Where("id = ?", req.ID).
			Updates(map[string]any{"status": models.FollowRequestAccepted, "updated_at": at}).Error; err != nil {
			return err
		}
		_, err := insertFollow(tx, req.RequesterID, req.TargetID, at)
		return err
	})
	if err != nil {
		return wrap(err, "followRepo.AcceptFollowRequest")
	}
	req.Status = models.FollowRequestAccepted
	req.UpdatedAt = at
	return nil
}

func (r *PostgresFollowRepository) DeclineFollowRequest(ctx context.Context, req *models.FollowRequest, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&models.FollowRequest{}).Where("id = ?", req.ID).
		Updates(map[string]any{"status": models.FollowRequestDeclined, "updated_at": at}).Error
	if err != nil {
		return wrap(err, "followRepo.DeclineFollowRequest")
	}
	req.Status = models.FollowRequestDeclined
	req.UpdatedAt = at
	return nil
}
