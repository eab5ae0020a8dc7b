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

// ChatRepository defines the interface for chat and message operations
type ChatRepository interface {
	CreateOrGetChat(ctx context.Context, selfID, otherID uint, now time.Time) (*models.Chat, bool, error)
	GetChatByID(ctx context.Context, id string) (*models.Chat, error)
	ListChats(ctx context.Context, userID uint) ([]models.Chat, error)
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessages(ctx context.Context, chatID string, beforeID uint, limit int) ([]models.Message, error)
	GetLastMessages(ctx context.Context, chatIDs []string) (map[string]models.Message, error)
	MarkRead(ctx context.Context, chatID string, readerID uint, at time.Time) (int64, error)
	UnreadCounts(ctx context.Context, userID uint, chatIDs []string) (map[string]int64, error)
	TotalUnread(ctx context.Context, userID uint) (int64, error)
}

// PostgresChatRepository implements ChatRepository for PostgreSQL
type PostgresChatRepository struct {
	db *gorm.DB
}

func NewPostgresChatRepository(db *gorm.DB) *PostgresChatRepository {
	return &PostgresChatRepository{db: db}
}

// CreateOrGetChat returns the chat for the pair, creating it when absent. The
// unique pair key makes concurrent callers converge on the same row; the
// boolean reports whether this call created it.
func (r *PostgresChatRepository) CreateOrGetChat(ctx context.Context, selfID, otherID uint, now time.Time) (*models.Chat, bool, error) {
	key := models.PairKey(selfID, otherID)

	chat, err := r.getByPairKey(ctx, key)
	if err == nil {
		return chat, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, wrap(err, "chatRepo.CreateOrGetChat.Find")
	}

	created := false
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c := models.Chat{PairKey: key, LastMessageAt: now, CreatedAt: now}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_key"}},
			DoNothing: true,
		}).Create(&c)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		created = true
		participants := []models.ChatParticipant{
			{ChatID: c.ID, UserID: selfID, JoinedAt: now},
			{ChatID: c.ID, UserID: otherID, JoinedAt: now},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		return nil, false, wrap(err, "chatRepo.CreateOrGetChat.Create")
	}

	chat, err = r.getByPairKey(ctx, key)
	if err != nil {
		return nil, false, wrap(err, "chatRepo.CreateOrGetChat.Reload")
	}
	return chat, created, nil
}

func (r *PostgresChatRepository) getByPairKey(ctx context.Context, key string) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.WithContext(ctx).
		Preload("Participants.User").
		Where("pair_key = ?", key).
		First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *PostgresChatRepository) GetChatByID(ctx context.Context, id string) (*models.Chat, error) {
	var chat models.Chat
	err := r.db.WithContext(ctx).Preload("Participants.User").Where("id = ?", id).First(&chat).Error
	if err != nil {
		return nil, translate(err, apperrors.ErrChatNotFound, "chatRepo.GetChatByID")
	}
	return &chat, nil
}

func (r *PostgresChatRepository) ListChats(ctx context.Context, userID uint) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.WithContext(ctx).
		Preload("Participants.User").
		Where("id IN (?)", r.db.Model(&models.ChatParticipant{}).Select("chat_id").Where("user_id = ?", userID)).
		Order("last_message_at DESC").
		Find(&chats).Error
	if err != nil {
		return nil, wrap(err, "chatRepo.ListChats")
	}
	return chats, nil
}

// CreateMessage inserts the message and bumps the chat's activity timestamp.
func (r *PostgresChatRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Chat{}).
			Where("id = ?", msg.ChatID).
			Update("last_message_at", msg.CreatedAt).Error
	})
	return wrap(err, "chatRepo.CreateMessage")
}

// GetMessages returns up to limit messages older than beforeID (all when 0),
// in ascending (created_at, id) order.
func (r *PostgresChatRepository) GetMessages(ctx context.Context, chatID string, beforeID uint, limit int) ([]models.Message, error) {
	q := r.db.WithContext(ctx).Where("chat_id = ?", chatID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}
	var msgs []models.Message
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, wrap(err, "chatRepo.GetMessages")
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *PostgresChatRepository) GetLastMessages(ctx context.Context, chatIDs []string) (map[string]models.Message, error) {
	result := make(map[string]models.Message, len(chatIDs))
	for _, id := range chatIDs {
		var msg models.Message
		err := r.db.WithContext(ctx).
			Where("chat_id = ?", id).
			Order("created_at DESC, id DESC").
			Limit(1).
			Find(&msg).Error
		if err != nil {
			return nil, wrap(err, "chatRepo.GetLastMessages")
		}
		if msg.ID != 0 {
			result[id] = msg
		}
	}
	return result, nil
}

// MarkRead stamps every unread message addressed to readerID in the chat.
func (r *PostgresChatRepository) MarkRead(ctx context.Context, chatID string, readerID uint, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("chat_id = ? AND receiver_id = ? AND read_at IS NULL", chatID, readerID).
		Update("read_at", at)
	if res.Error != nil {
		return 0, wrap(res.Error, "chatRepo.MarkRead")
	}
	return res.RowsAffected, nil
}

func (r *PostgresChatRepository) UnreadCounts(ctx context.Context, userID uint, chatIDs []string) (map[string]int64, error) {
	result := make(map[string]int64, len(chatIDs))
	if len(chatIDs) == 0 {
		return result, nil
	}
	var rows []struct {
		ChatID string
		Count  int64
	}
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Select("chat_id, COUNT(*) AS count").
		Where("receiver_id = ? AND read_at IS NULL AND chat_id IN ?", userID, chatIDs).
		Group("chat_id").
		Scan(&rows).Error
	if err != nil {
		return nil, wrap(err, "chatRepo.UnreadCounts")
	}
	for _, row := range rows {
		result[row.ChatID] = row.Count
	}
	return result, nil
}

func (r *PostgresChatRepository) TotalUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND read_at IS NULL", userID).
		Count(&count).Error
	return count, wrap(err, "chatRepo.TotalUnread")
}
