package repositories

import (
	"context"
	"strings"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error)
	UpsertByExternalID(ctx context.Context, user *models.User) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	TouchLastSeen(ctx context.Context, id uint, at time.Time) error
	SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error)
	DeleteUser(ctx context.Context, id uint) (*UserFootprint, error)
}

// UserFootprint is what a deleted user left on posts stored outside PostgreSQL,
// so the post counters can be corrected.
type UserFootprint struct {
	LikedPostIDs  []string
	CommentCounts map[string]int // postID -> comments removed
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) CreateUser(ctx context.Context, user *models.User) error {
	return conflict(r.db.WithContext(ctx).Create(user).Error, apperrors.ErrUsernameTaken, "userRepo.CreateUser")
}

func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err, apperrors.ErrUserNotFound, "userRepo.GetUserByID")
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetUserByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("external_id = ?", externalID).First(&user).Error; err != nil {
		return nil, translate(err, apperrors.ErrUserNotFound, "userRepo.GetUserByExternalID")
	}
	return &user, nil
}

// GetUsersByIDs loads users keyed by id; unknown ids are simply absent.
func (r *PostgresUserRepository) GetUsersByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error) {
	result := make(map[uint]models.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var users []models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, wrap(err, "userRepo.GetUsersByIDs")
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

// UpsertByExternalID creates the user on first sight of an external identity
// and refreshes the provider-owned profile fields afterwards.
func (r *PostgresUserRepository) UpsertByExternalID(ctx context.Context, user *models.User) (*models.User, error) {
	var out models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("external_id = ?", user.ExternalID).First(&out).Error
		if err == gorm.ErrRecordNotFound {
			out = *user
			return tx.Create(&out).Error
		}
		if err != nil {
			return err
		}
		updates := map[string]any{}
		if user.Name != "" {
			updates["name"] = user.Name
		}
		if user.Username != nil {
			updates["username"] = user.Username
		}
		if user.AvatarURL != "" {
			updates["avatar_url"] = user.AvatarURL
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&out).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&out, out.ID).Error
	})
	if err != nil {
		return nil, conflict(err, apperrors.ErrUsernameTaken, "userRepo.UpsertByExternalID")
	}
	return &out, nil
}

func (r *PostgresUserRepository) UpdateUser(ctx context.Context, user *models.User) error {
	return conflict(r.db.WithContext(ctx).Save(user).Error, apperrors.ErrUsernameTaken, "userRepo.UpdateUser")
}

func (r *PostgresUserRepository) TouchLastSeen(ctx context.Context, id uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_seen_at", at)
	if res.Error != nil {
		return wrap(res.Error, "userRepo.TouchLastSeen")
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// SearchUsers searches for users by name or username
func (r *PostgresUserRepository) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	var users []models.User
	pattern := "%" + likeEscaper.Replace(query) + "%"
	err := r.db.WithContext(ctx).
		Where(`LOWER(name) LIKE LOWER(?) ESCAPE '\' OR LOWER(username) LIKE LOWER(?) ESCAPE '\'`, pattern, pattern).
		Order("name ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, wrap(err, "userRepo.SearchUsers")
	}
	return users, nil
}

// DeleteUser removes the user with every row that refers to them: graph
// edges, reactions, bookmarks, notifications and the chats they took part in.
func (r *PostgresUserRepository) DeleteUser(ctx context.Context, id uint) (*UserFootprint, error) {
	footprint := &UserFootprint{CommentCounts: map[string]int{}}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.User{}, id).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Like{}).Where("user_id = ?", id).
			Pluck("post_id", &footprint.LikedPostIDs).Error; err != nil {
			return err
		}
		var counts []struct {
			PostID string
			Count  int
		}
		if err := tx.Model(&models.Comment{}).Select("post_id, COUNT(*) AS count").
			Where("user_id = ?", id).Group("post_id").Scan(&counts).Error; err != nil {
			return err
		}
		for _, c := range counts {
			footprint.CommentCounts[c.PostID] = c.Count
		}

		var chatIDs []string
		if err := tx.Model(&models.ChatParticipant{}).Where("user_id = ?", id).
			Pluck("chat_id", &chatIDs).Error; err != nil {
			return err
		}
		ownComments := tx.Model(&models.Comment{}).Select("id").Where("user_id = ?", id)

		type purge struct {
			model any
			where string
			args  []any
		}
		steps := []purge{
			{&models.CommentLike{}, "user_id = ? OR comment_id IN (?)", []any{id, ownComments}},
			{&models.Comment{}, "user_id = ?", []any{id}},
			{&models.Like{}, "user_id = ?", []any{id}},
			{&models.SavedPost{}, "user_id = ?", []any{id}},
			{&models.StoryView{}, "user_id = ?", []any{id}},
			{&models.StoryReaction{}, "user_id = ?", []any{id}},
			{&models.Follow{}, "follower_id = ? OR following_id = ?", []any{id, id}},
			{&models.FollowRequest{}, "requester_id = ? OR target_id = ?", []any{id, id}},
			{&models.Block{}, "blocker_id = ? OR blocked_id = ?", []any{id, id}},
			{&models.Notification{}, "recipient_id = ? OR actor_id = ?", []any{id, id}},
		}
		if len(chatIDs) > 0 {
			steps = append(steps,
				purge{&models.Notification{}, "chat_id IN ?", []any{chatIDs}},
				purge{&models.Message{}, "chat_id IN ?", []any{chatIDs}},
				purge{&models.ChatParticipant{}, "chat_id IN ?", []any{chatIDs}},
				purge{&models.Chat{}, "id IN ?", []any{chatIDs}},
			)
		}
		for _, step := range steps {
			if err := tx.Where(step.where, step.args...).Delete(step.model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.User{}, id).Error
	})
	if err != nil {
		return nil, translate(err, apperrors.ErrUserNotFound, "userRepo.DeleteUser")
	}
	return footprint, nil
}
