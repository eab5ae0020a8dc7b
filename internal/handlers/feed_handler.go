package handlers

import (
	"context"
	"math"
	"net/http"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/anonto42/nano-social/backend/pkg/clock"
	"github.com/labstack/echo/v4"
)

// FeedHandler handles feed-related HTTP requests
type FeedHandler struct {
	postRepository   repositories.PostRepository
	followRepository repositories.FollowRepository
	enricher         postEnricher
}

// NewFeedHandler creates a new FeedHandler
func NewFeedHandler(
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	followRepo repositories.FollowRepository,
	likeRepo repositories.LikeRepository,
	savedRepo repositories.SavedPostRepository,
	clk clock.Clock,
) *FeedHandler {
	return &FeedHandler{
		postRepository:   postRepo,
		followRepository: followRepo,
		enricher:         postEnricher{users: userRepo, likes: likeRepo, saves: savedRepo, clock: clk},
	}
}

// RegisterFeedRoutes registers feed-related routes
func (h *FeedHandler) RegisterFeedRoutes(g *echo.Group) {
	g.GET("/feed", h.GetFeed)
}

// EnrichedPost is a post with author info and viewer-specific flags. Poll
// replaces the stored poll with the viewer's tally view.
type EnrichedPost struct {
	models.Post
	Author  models.UserCompact `json:"author"`
	IsLiked bool               `json:"is_liked"`
	IsSaved bool               `json:"is_saved"`
	Poll    *models.PollResult `json:"poll,omitempty"`
}

// postEnricher attaches authors and the viewer's like, bookmark and vote state to posts.
type postEnricher struct {
	users repositories.UserRepository
	likes repositories.LikeRepository
	saves repositories.SavedPostRepository
	clock clock.Clock
}

func (e postEnricher) enrich(ctx context.Context, viewerID uint, posts []models.Post) ([]EnrichedPost, error) {
	authorIDs := make([]uint, 0, len(posts))
	postIDs := make([]string, len(posts))
	for i, p := range posts {
		authorIDs = append(authorIDs, p.AuthorID)
		postIDs[i] = p.ID.Hex()
	}
	authors, err := e.users.GetUsersByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	liked, err := e.likes.LikedPostIDs(ctx, viewerID, postIDs)
	if err != nil {
		return nil, err
	}
	saved, err := e.saves.SavedPostIDs(ctx, viewerID, postIDs)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	enriched := make([]EnrichedPost, len(posts))
	for i, p := range posts {
		author := authors[p.AuthorID]
		enriched[i] = EnrichedPost{
			Post:    p,
			Author:  author.ToCompact(),
			IsLiked: liked[postIDs[i]],
			IsSaved: saved[postIDs[i]],
		}
		if p.Poll != nil {
			result := p.Poll.ResultFor(viewerID, now)
			enriched[i].Poll = &result
		}
	}
	return enriched, nil
}

func (e postEnricher) enrichOne(ctx context.Context, viewerID uint, post *models.Post) (EnrichedPost, error) {
	enriched, err := e.enrich(ctx, viewerID, []models.Post{*post})
	if err != nil {
		return EnrichedPost{}, err
	}
	return enriched[0], nil
}

// GetFeed returns posts by the caller and the users they follow, newest first
func (h *FeedHandler) GetFeed(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	page, limit := pageParams(c, 10, 50)
	skip := int64((page - 1) * limit)

	followingIDs, err := h.followRepository.GetFollowingIDs(ctx, user.ID)
	if err != nil {
		return err
	}
	authorIDs := append([]uint{user.ID}, followingIDs...)

	posts, totalItems, err := h.postRepository.GetPostsByAuthorIDs(ctx, authorIDs, skip, int64(limit))
	if err != nil {
		return err
	}
	enrichedPosts, err := h.enricher.enrich(ctx, user.ID, posts)
	if err != nil {
		return err
	}

	totalPages := int(math.Ceil(float64(totalItems) / float64(limit)))
	return okWithMeta(c, http.StatusOK, echo.Map{"posts": enrichedPosts}, echo.Map{
		"currentPage":     page,
		"totalPages":      totalPages,
		"totalItems":      totalItems,
		"itemsPerPage":    limit,
		"hasNextPage":     page < totalPages,
		"hasPreviousPage": page > 1,
	})
}
