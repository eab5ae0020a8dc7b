package models

import "time"

// Follow represents an Instagram-style follow relationship
type Follow struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	FollowerID  uint      `json:"follower_id" gorm:"index;uniqueIndex:idx_follower_following"`
	FollowingID uint      `json:"following_id" gorm:"index;uniqueIndex:idx_follower_following"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	FollowRequestPending  = "pending"
	FollowRequestAccepted = "accepted"
	FollowRequestDeclined = "declined"
)

// FollowRequest is raised instead of a Follow when the target account is private.
type FollowRequest struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	RequesterID uint      `json:"requester_id" gorm:"index;uniqueIndex:idx_follow_request_pair"`
	TargetID    uint      `json:"target_id" gorm:"index;uniqueIndex:idx_follow_request_pair"`
	Requester   *User     `json:"requester,omitempty" gorm:"foreignKey:RequesterID"`
	Status      string    `json:"status" gorm:"size:20;default:'pending';index"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Block hides two users from each other in both directions.
type Block struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	BlockerID uint      `json:"blocker_id" gorm:"index;uniqueIndex:idx_blocker_blocked"`
	BlockedID uint      `json:"blocked_id" gorm:"index;uniqueIndex:idx_blocker_blocked"`
	CreatedAt time.Time `json:"created_at"`
}
