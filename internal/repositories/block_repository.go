package repositories

import (
	"context"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BlockRepository interface {
	Block(ctx context.Context, blockerID, blockedID uint, at time.Time) error
	Unblock(ctx context.Context, blockerID, blockedID uint) error
	IsBlockedEither(ctx context.Context, a, b uint) (bool, error)
	BlockedUserIDs(ctx context.Context, userID uint) ([]uint, error)
}

type postgresBlockRepository struct {
	db *gorm.DB
}

func NewPostgresBlockRepository(db *gorm.DB) BlockRepository {
	return &postgresBlockRepository{db: db}
}

// Block records the block and severs follows and follow requests in both directions.
func (r *postgresBlockRepository) Block(ctx context.Context, blockerID, blockedID uint, at time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		block := models.Block{BlockerID: blockerID, BlockedID: blockedID, CreatedAt: at}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&block).Error; err != nil {
			return err
		}
		if err := tx.Where("(follower_id = ? AND following_id = ?) OR (follower_id = ? AND following_id = ?)",
			blockerID, blockedID, blockedID, blockerID).Delete(&models.Follow{}).Error; err != nil {
			return err
		}
		return tx.Where("(requester_id = ? AND target_id = ?) OR (requester_id = ? AND target_id = ?)",
			blockerID, blockedID, blockedID, blockerID).Delete(&models.FollowRequest{}).Error
	})
	return wrap(err, "blockRepo.Block")
}

func (r *postgresBlockRepository) Unblock(ctx context.Context, blockerID, blockedID uint) error {
	res := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{})
	if res.Error != nil {
		return wrap(res.Error, "blockRepo.Unblock")
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotBlocked
	}
	return nil
}

func (r *postgresBlockRepository) IsBlockedEither(ctx context.Context, a, b uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	if err != nil {
		return false, wrap(err, "blockRepo.IsBlockedEither")
	}
	return count > 0, nil
}

// BlockedUserIDs returns everyone userID blocked or was blocked by.
func (r *postgresBlockRepository) BlockedUserIDs(ctx context.Context, userID uint) ([]uint, error) {
	var blocks []models.Block
	err := r.db.WithContext(ctx).
		Where("blocker_id = ? OR blocked_id = ?", userID, userID).
		Find(&blocks).Error
	if err != nil {
		return nil, wrap(err, "blockRepo.BlockedUserIDs")
	}
	ids := make([]uint, 0, len(blocks))
	for _, b := range blocks {
		if b.BlockerID == userID {
			ids = append(ids, b.BlockedID)
		} else {
			ids = append(ids, b.BlockerID)
		}
	}
	return ids, nil
}
