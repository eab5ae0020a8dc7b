package models

import (
	"time"

	"gorm.io/datatypes"
)

type User struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	ExternalID string         `json:"-" gorm:"size:128;uniqueIndex;not null"` // identity-provider subject
	Username   *string        `json:"username,omitempty" gorm:"size:64;uniqueIndex"`
	Name       string         `json:"name"`
	AvatarURL  string         `json:"avatar_url"`
	Bio        string         `json:"bio"`
	Website    string         `json:"website"`
	Links      datatypes.JSON `json:"links,omitempty"`
	IsPrivate  bool           `json:"is_private" gorm:"default:false"`
	LastSeenAt *time.Time     `json:"last_seen_at,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Online derives presence from the last activity timestamp; there is no
// separately toggled flag that could miss its offline transition.
func (u *User) Online(now time.Time, window time.Duration) bool {
	if u.LastSeenAt == nil {
		return false
	}
	return now.Sub(*u.LastSeenAt) <= window
}

func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	return "Someone"
}

// UserCompact is the projection embedded in feeds, chats and notifications.
type UserCompact struct {
	ID        uint    `json:"id"`
	Name      string  `json:"name"`
	Username  *string `json:"username,omitempty"`
	AvatarURL string  `json:"avatar_url"`
}

func (u *User) ToCompact() UserCompact {
	return UserCompact{
		ID:        u.ID,
		Name:      u.Name,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
	}
}

type UpdateUserRequest struct {
	Name      *string  `json:"name,omitempty" validate:"omitempty,min=1,max=80"`
	Username  *string  `json:"username,omitempty" validate:"omitempty,min=3,max=32,alphanum"`
	AvatarURL *string  `json:"avatar_url,omitempty" validate:"omitempty,url"`
	Bio       *string  `json:"bio,omitempty" validate:"omitempty,max=300"`
	Website   *string  `json:"website,omitempty" validate:"omitempty,url"`
	Links     []string `json:"links,omitempty" validate:"omitempty,max=5,dive,url"`
	IsPrivate *bool    `json:"is_private,omitempty"`
}
