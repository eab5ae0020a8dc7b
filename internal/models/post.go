package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PostTypeText  = "text"
	PostTypeImage = "image"
	PostTypeVideo = "video"
	PostTypePoll  = "poll"
)

// Post represents a social media post stored in MongoDB
type Post struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	AuthorID      uint               `json:"author_id" bson:"author_id"`
	Type          string             `json:"type" bson:"type"`
	Content       string             `json:"content" bson:"content"`
	ImageURLs     []string           `json:"image_urls,omitempty" bson:"image_urls,omitempty"`
	VideoURL      string             `json:"video_url,omitempty" bson:"video_url,omitempty"`
	Poll          *Poll              `json:"poll,omitempty" bson:"poll,omitempty"`
	LikesCount    int                `json:"likes_count" bson:"likes_count"`
	CommentsCount int                `json:"comments_count" bson:"comments_count"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// Poll keeps the voter -> option index map on the post document itself.
type Poll struct {
	Question      string         `json:"question" bson:"question"`
	Options       []string       `json:"options" bson:"options"`
	AllowMultiple bool           `json:"allow_multiple" bson:"allow_multiple"`
	EndsAt        *time.Time     `json:"ends_at,omitempty" bson:"ends_at,omitempty"`
	Votes         map[string]int `json:"-" bson:"votes"`
}

func (p *Poll) Ended(now time.Time) bool {
	return p.EndsAt != nil && !now.Before(*p.EndsAt)
}

// Tally counts votes per option.
func (p *Poll) Tally() []int {
	counts := make([]int, len(p.Options))
	for _, idx := range p.Votes {
		if idx >= 0 && idx < len(counts) {
			counts[idx]++
		}
	}
	return counts
}

// VoterKey is the key a user's vote is stored under.
func VoterKey(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}

// PollResult is the poll view returned to a single user.
type PollResult struct {
	Question      string     `json:"question"`
	Options       []string   `json:"options"`
	AllowMultiple bool       `json:"allow_multiple"`
	EndsAt        *time.Time `json:"ends_at,omitempty"`
	Ended         bool       `json:"ended"`
	Counts        []int      `json:"counts"`
	TotalVotes    int        `json:"total_votes"`
	MyVote        *int       `json:"my_vote"`
}

func (p *Poll) ResultFor(userID uint, now time.Time) PollResult {
	counts := p.Tally()
	total := 0
	for _, n := range counts {
		total += n
	}
	res := PollResult{
		Question:      p.Question,
		Options:       p.Options,
		AllowMultiple: p.AllowMultiple,
		EndsAt:        p.EndsAt,
		Ended:         p.Ended(now),
		Counts:        counts,
		TotalVotes:    total,
	}
	if idx, ok := p.Votes[VoterKey(userID)]; ok {
		res.MyVote = &idx
	}
	return res
}

// CreatePostRequest defines the request body for creating a new post
type CreatePostRequest struct {
	Type      string             `json:"type" validate:"omitempty,oneof=text image video poll"`
	Content   string             `json:"content" validate:"max=2000"`
	ImageURLs []string           `json:"image_urls,omitempty" validate:"omitempty,max=10,dive,url"`
	VideoURL  string             `json:"video_url,omitempty" validate:"omitempty,url"`
	Poll      *CreatePollRequest `json:"poll,omitempty"`
}

type CreatePollRequest struct {
	Question      string     `json:"question" validate:"required,max=280"`
	Options       []string   `json:"options" validate:"required"`
	AllowMultiple bool       `json:"allow_multiple"`
	EndsAt        *time.Time `json:"ends_at,omitempty"`
}

// Check enforces the payload each post type needs. Type defaults to text.
func (r *CreatePostRequest) Check(now time.Time) error {
	if r.Type == "" {
		r.Type = PostTypeText
	}
	switch r.Type {
	case PostTypeText:
		if strings.TrimSpace(r.Content) == "" {
			return apperrors.InvalidArg("text posts need content")
		}
	case PostTypeImage:
		if len(r.ImageURLs) == 0 {
			return apperrors.InvalidArg("image posts need at least one image_url")
		}
	case PostTypeVideo:
		if r.VideoURL == "" {
			return apperrors.InvalidArg("video posts need a video_url")
		}
	case PostTypePoll:
		return r.checkPoll(now)
	}
	return nil
}

func (r *CreatePostRequest) checkPoll(now time.Time) error {
	if r.Poll == nil {
		return apperrors.InvalidArg("poll posts need a poll")
	}
	if len(r.Poll.Options) < 2 {
		return apperrors.InvalidArg("poll needs at least two options")
	}
	if len(r.Poll.Options) > 10 {
		return apperrors.InvalidArg("poll allows at most ten options")
	}
	seen := make(map[string]bool, len(r.Poll.Options))
	for i, opt := range r.Poll.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return apperrors.InvalidArg("poll options cannot be empty")
		}
		if seen[strings.ToLower(opt)] {
			return apperrors.InvalidArg("poll options must be distinct")
		}
		seen[strings.ToLower(opt)] = true
		r.Poll.Options[i] = opt
	}
	if r.Poll.EndsAt != nil && !r.Poll.EndsAt.After(now) {
		return apperrors.InvalidArg("poll end time must be in the future")
	}
	return nil
}

// UpdatePostRequest defines the request body for updating an existing post
type UpdatePostRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

type VoteRequest struct {
	Option *int `json:"option" validate:"required,min=0"`
}
