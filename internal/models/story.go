package models

import (
	"time"

	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StoryTTL is the fixed lifetime of a story.
const StoryTTL = 24 * time.Hour

const (
	StoryTypeText  = "text"
	StoryTypePhoto = "photo"
	StoryTypeVideo = "video"
)

// Story represents a user's story stored in MongoDB
type Story struct {
	ID         primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID     uint               `json:"user_id" bson:"user_id"`
	Type       string             `json:"type" bson:"type"`
	Text       string             `json:"text,omitempty" bson:"text,omitempty"`
	Background string             `json:"background,omitempty" bson:"background,omitempty"`
	ImageURL   string             `json:"image_url,omitempty" bson:"image_url,omitempty"`
	VideoURL   string             `json:"video_url,omitempty" bson:"video_url,omitempty"`
	CreatedAt  time.Time          `json:"created_at" bson:"created_at"`
	ExpiresAt  time.Time          `json:"expires_at" bson:"expires_at"`
}

// ActiveAt reports whether the story is visible at now: created_at <= now < expires_at.
func (s *Story) ActiveAt(now time.Time) bool {
	return !now.Before(s.CreatedAt) && now.Before(s.ExpiresAt)
}

// StoryView tracks the latest view of a story per viewer (PostgreSQL)
type StoryView struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	StoryID   string    `json:"story_id" gorm:"size:24;index;uniqueIndex:idx_story_user_view"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_story_user_view"`
	User      *User     `json:"user,omitempty" gorm:"foreignKey:UserID"`
	ViewedAt  time.Time `json:"viewed_at"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateStoryRequest defines the request body for creating a story
type CreateStoryRequest struct {
	Type       string `json:"type" validate:"required,oneof=text photo video"`
	Text       string `json:"text,omitempty" validate:"max=500"`
	Background string `json:"background,omitempty" validate:"max=32"`
	ImageURL   string `json:"image_url,omitempty" validate:"omitempty,url"`
	VideoURL   string `json:"video_url,omitempty" validate:"omitempty,url"`
}

// Check enforces the payload each story type needs.
func (r *CreateStoryRequest) Check() error {
	switch r.Type {
	case StoryTypeText:
		if r.Text == "" {
			return apperrors.InvalidArg("text stories need text")
		}
	case StoryTypePhoto:
		if r.ImageURL == "" {
			return apperrors.InvalidArg("photo stories need an image_url")
		}
	case StoryTypeVideo:
		if r.VideoURL == "" {
			return apperrors.InvalidArg("video stories need a video_url")
		}
	default:
		return apperrors.InvalidArg("unknown story type")
	}
	return nil
}

// StoryReaction is the latest emoji reaction of a viewer to a story (PostgreSQL)
type StoryReaction struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	StoryID   string    `json:"story_id" gorm:"size:24;index;uniqueIndex:idx_story_user_reaction"`
	UserID    uint      `json:"user_id" gorm:"index;uniqueIndex:idx_story_user_reaction"`
	Reaction  string    `json:"reaction" gorm:"size:16"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StoryReactionRequest struct {
	Reaction string `json:"reaction" validate:"required,max=16"`
}

type StoryReplyRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}

// StoryGroup is every active story of one owner, as seen by one viewer.
type StoryGroup struct {
	User        UserCompact `json:"user"`
	Stories     []Story     `json:"stories"`
	HasUnviewed bool        `json:"has_unviewed"`
	AllViewed   bool        `json:"all_viewed"`
	LatestAt    time.Time   `json:"latest_at"`
	IsOwn       bool        `json:"is_own"`
}
