package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	NotificationMessage       = "message"
	NotificationStoryReply    = "story_reply"
	NotificationStoryReaction = "story_reaction"
	NotificationFollow        = "follow"
	NotificationFollowRequest = "follow_request"
	NotificationFollowAccept  = "follow_accept"
	NotificationLike          = "like"
	NotificationComment       = "comment"
	NotificationCustom        = "custom"
)

// Notification represents a user notification (PostgreSQL)
type Notification struct {
	ID          uint              `json:"id" gorm:"primaryKey"`
	Type        string            `json:"type" gorm:"size:30;index"`
	ActorID     uint              `json:"actor_id" gorm:"index"`
	RecipientID uint              `json:"recipient_id" gorm:"index;not null"`
	PostID      *string           `json:"post_id,omitempty" gorm:"size:64"`
	ChatID      *string           `json:"chat_id,omitempty" gorm:"size:36"`
	Content     string            `json:"content"`
	Metadata    datatypes.JSONMap `json:"metadata,omitempty"`
	IsRead      bool              `json:"is_read" gorm:"default:false;index"`
	CreatedAt   time.Time         `json:"created_at" gorm:"index"`
}

type CreateNotificationRequest struct {
	RecipientID uint    `json:"recipient_id" validate:"required"`
	Type        string  `json:"type" validate:"required,oneof=message story_reply story_reaction follow follow_request follow_accept like comment custom"`
	Content     string  `json:"content" validate:"required,max=500"`
	PostID      *string `json:"post_id,omitempty" validate:"omitempty,max=64"`
	ChatID      *string `json:"chat_id,omitempty" validate:"omitempty,uuid"`
}

// MarkNotificationsReadRequest marks one notification when ID is set, all unread otherwise.
type MarkNotificationsReadRequest struct {
	ID *uint `json:"id,omitempty"`
}
