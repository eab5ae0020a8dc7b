package handlers

import (
	"net/http"

	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/anonto42/nano-social/backend/pkg/clock"
	"github.com/labstack/echo/v4"
)

// SavedPostHandler handles bookmarking posts
type SavedPostHandler struct {
	savedRepository repositories.SavedPostRepository
	postRepository  repositories.PostRepository
	enricher        postEnricher
	clock           clock.Clock
}

// NewSavedPostHandler creates a new SavedPostHandler
func NewSavedPostHandler(
	savedRepo repositories.SavedPostRepository,
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	likeRepo repositories.LikeRepository,
	clk clock.Clock,
) *SavedPostHandler {
	return &SavedPostHandler{
		savedRepository: savedRepo,
		postRepository:  postRepo,
		enricher:        postEnricher{users: userRepo, likes: likeRepo, saves: savedRepo, clock: clk},
		clock:           clk,
	}
}

// RegisterSavedPostRoutes registers saved post routes
func (h *SavedPostHandler) RegisterSavedPostRoutes(g *echo.Group) {
	g.POST("/posts/:id/save", h.SavePost)
	g.DELETE("/posts/:id/save", h.UnsavePost)
	g.GET("/saved-posts", h.GetSavedPosts)
}

func (h *SavedPostHandler) SavePost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if err := h.savedRepository.SavePost(ctx, user.ID, post.ID.Hex(), h.clock.Now()); err != nil {
		return err
	}
	return ok(c, http.StatusCreated, echo.Map{"saved": true})
}

// UnsavePost removes a bookmark. The post itself may already be gone.
func (h *SavedPostHandler) UnsavePost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.savedRepository.UnsavePost(c.Request().Context(), user.ID, c.Param("id")); err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"saved": false})
}

// GetSavedPosts lists the caller's bookmarked posts, most recently saved first
func (h *SavedPostHandler) GetSavedPosts(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	page, limit := pageParams(c, 20, 50)

	ids, err := h.savedRepository.ListSavedPostIDs(ctx, user.ID, (page-1)*limit, limit)
	if err != nil {
		return err
	}
	posts, err := h.postRepository.GetPostsByIDs(ctx, ids)
	if err != nil {
		return err
	}
	enriched, err := h.enricher.enrich(ctx, user.ID, posts)
	if err != nil {
		return err
	}

	// keep bookmark order rather than post creation order
	byID := make(map[string]EnrichedPost, len(enriched))
	for _, p := range enriched {
		byID[p.ID.Hex()] = p
	}
	ordered := make([]EnrichedPost, 0, len(enriched))
	for _, id := range ids {
		if p, found := byID[id]; found {
			ordered = append(ordered, p)
		}
	}
	return okWithMeta(c, http.StatusOK, echo.Map{"posts": ordered}, echo.Map{
		"page":     page,
		"limit":    limit,
		"has_more": len(ids) == limit,
	})
}
