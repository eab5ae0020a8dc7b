package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat is a conversation between exactly two participants.
type Chat struct {
	ID            string            `json:"id" gorm:"primaryKey;size:36"`
	PairKey       string            `json:"-" gorm:"size:64;uniqueIndex;not null"`
	LastMessageAt time.Time         `json:"last_message_at" gorm:"index"`
	CreatedAt     time.Time         `json:"created_at"`
	Participants  []ChatParticipant `json:"participants,omitempty" gorm:"foreignKey:ChatID"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// HasParticipant reports whether userID is attached to the chat.
func (c *Chat) HasParticipant(userID uint) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the id of the participant that is not userID.
func (c *Chat) OtherParticipant(userID uint) (uint, bool) {
	for _, p := range c.Participants {
		if p.UserID != userID {
			return p.UserID, true
		}
	}
	return 0, false
}

// ChatParticipant is the join row between a chat and a user.
type ChatParticipant struct {
	ID       uint      `json:"-" gorm:"primaryKey"`
	ChatID   string    `json:"chat_id" gorm:"size:36;index;uniqueIndex:idx_chat_participant"`
	UserID   uint      `json:"user_id" gorm:"index;uniqueIndex:idx_chat_participant"`
	User     *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	JoinedAt time.Time `json:"joined_at"`
}

// PairKey orders the two ids so (a, b) and (b, a) map to the same chat.
func PairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

type Message struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	ChatID     string     `json:"chat_id" gorm:"size:36;index:idx_message_chat_created,priority:1;not null"`
	SenderID   uint       `json:"sender_id" gorm:"index;not null"`
	ReceiverID uint       `json:"receiver_id" gorm:"index;not null"`
	Content    string     `json:"content" gorm:"type:text"`
	Type       string     `json:"type" gorm:"size:10;default:'text'"`
	CreatedAt  time.Time  `json:"created_at" gorm:"index:idx_message_chat_created,priority:2"`
	ReadAt     *time.Time `json:"read_at,omitempty"`
}

type CreateChatRequest struct {
	UserID uint `json:"user_id" validate:"required"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
	Type    string `json:"type" validate:"omitempty,oneof=text image"`
}

// ChatSummary is a chat as listed for one participant.
type ChatSummary struct {
	ID            string        `json:"id"`
	Participants  []UserCompact `json:"participants"`
	LastMessage   *Message      `json:"last_message"`
	LastMessageAt time.Time     `json:"last_message_at"`
	UnreadCount   int64         `json:"unread_count"`
}
