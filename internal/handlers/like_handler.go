package handlers

import (
	"fmt"
	"net/http"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/anonto42/nano-social/backend/pkg/clock"
	"github.com/labstack/echo/v4"
)

// LikeHandler handles HTTP requests related to likes
type LikeHandler struct {
	likeRepository repositories.LikeRepository
	postRepository repositories.PostRepository
	notifier       *Notifier
	clock          clock.Clock
}

// NewLikeHandler creates a new LikeHandler
func NewLikeHandler(likeRepo repositories.LikeRepository, postRepo repositories.PostRepository, notifier *Notifier, clk clock.Clock) *LikeHandler {
	return &LikeHandler{
		likeRepository: likeRepo,
		postRepository: postRepo,
		notifier:       notifier,
		clock:          clk,
	}
}

// RegisterLikeRoutes registers like-related routes
func (h *LikeHandler) RegisterLikeRoutes(g *echo.Group) {
	g.POST("/posts/:id/likes", h.LikePost)
	g.DELETE("/posts/:id/likes", h.UnlikePost)
	g.GET("/posts/:id/likes/count", h.GetLikesCount)
	g.GET("/posts/:id/likes/status", h.GetLikeStatus)
}

// LikePost handles liking a post
func (h *LikeHandler) LikePost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	postID := post.ID.Hex()
	if err := h.likeRepository.CreateLike(ctx, postID, user.ID, h.clock.Now()); err != nil {
		return err
	}
	if err := h.postRepository.IncrementLikesCount(ctx, postID, 1); err != nil {
		return err
	}

	if post.AuthorID != user.ID {
		h.notifier.Notify(ctx, &models.Notification{
			Type:        models.NotificationLike,
			ActorID:     user.ID,
			RecipientID: post.AuthorID,
			PostID:      &postID,
			Content:     fmt.Sprintf("%s liked your post", user.DisplayName()),
		})
	}
	return ok(c, http.StatusCreated, echo.Map{"liked": true, "likes_count": post.LikesCount + 1})
}

// UnlikePost handles unliking a post
func (h *LikeHandler) UnlikePost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	postID := post.ID.Hex()
	if err := h.likeRepository.DeleteLike(ctx, postID, user.ID); err != nil {
		return err
	}
	if err := h.postRepository.IncrementLikesCount(ctx, postID, -1); err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"liked": false, "likes_count": post.LikesCount - 1})
}

// GetLikesCount counts the like rows of a post rather than trusting its cached counter
func (h *LikeHandler) GetLikesCount(c echo.Context) error {
	if _, err := currentUser(c); err != nil {
		return err
	}
	ctx := c.Request().Context()
	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	postID := post.ID.Hex()
	count, err := h.likeRepository.CountLikes(ctx, postID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"post_id": postID, "likes_count": count})
}

// GetLikeStatus reports whether the caller has liked the post
func (h *LikeHandler) GetLikeStatus(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	postID := post.ID.Hex()
	liked, err := h.likeRepository.HasUserLikedPost(ctx, postID, user.ID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"post_id": postID, "liked": liked})
}
