package handlers

import (
	"fmt"
	"net/http"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"github.com/anonto42/nano-social/backend/pkg/clock"
	"github.com/labstack/echo/v4"
)

// CommentHandler handles HTTP requests related to comments and their likes
type CommentHandler struct {
	commentRepository     repositories.CommentRepository
	commentLikeRepository repositories.CommentLikeRepository
	postRepository        repositories.PostRepository
	notifier              *Notifier
	clock                 clock.Clock
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(
	commentRepo repositories.CommentRepository,
	commentLikeRepo repositories.CommentLikeRepository,
	postRepo repositories.PostRepository,
	notifier *Notifier,
	clk clock.Clock,
) *CommentHandler {
	return &CommentHandler{
		commentRepository:     commentRepo,
		commentLikeRepository: commentLikeRepo,
		postRepository:        postRepo,
		notifier:              notifier,
		clock:                 clk,
	}
}

// RegisterCommentRoutes registers comment-related routes
func (h *CommentHandler) RegisterCommentRoutes(g *echo.Group) {
	g.POST("/posts/:id/comments", h.CreateComment)
	g.GET("/posts/:id/comments", h.GetCommentsByPostID)
	g.PUT("/comments/:id", h.UpdateComment)
	g.DELETE("/comments/:id", h.DeleteComment)
	g.POST("/comments/:id/likes", h.LikeComment)
	g.DELETE("/comments/:id/likes", h.UnlikeComment)
}

// CommentView is a comment with its like count and the viewer's like state.
type CommentView struct {
	models.Comment
	LikesCount int64 `json:"likes_count"`
	IsLiked    bool  `json:"is_liked"`
}

// CreateComment adds a comment to a post and notifies its author
func (h *CommentHandler) CreateComment(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	ctx := c.Request().Context()
	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	now := h.clock.Now()
	postID := post.ID.Hex()
	comment := &models.Comment{
		PostID:    postID,
		UserID:    user.ID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.commentRepository.CreateComment(ctx, comment); err != nil {
		return err
	}
	if err := h.postRepository.IncrementCommentsCount(ctx, postID, 1); err != nil {
		return err
	}
	comment.User = user

	if post.AuthorID != user.ID {
		h.notifier.Notify(ctx, &models.Notification{
			Type:        models.NotificationComment,
			ActorID:     user.ID,
			RecipientID: post.AuthorID,
			PostID:      &postID,
			Content:     fmt.Sprintf("%s commented: %s", user.DisplayName(), preview(req.Content, 80)),
		})
	}
	return ok(c, http.StatusCreated, echo.Map{"comment": comment})
}

// GetCommentsByPostID lists a post's comments, oldest first
func (h *CommentHandler) GetCommentsByPostID(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	post, err := h.postRepository.GetPostByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	comments, err := h.commentRepository.GetCommentsByPostID(ctx, post.ID.Hex())
	if err != nil {
		return err
	}
	ids := make([]uint, len(comments))
	for i, cm := range comments {
		ids[i] = cm.ID
	}
	counts, err := h.commentLikeRepository.CountsForComments(ctx, ids)
	if err != nil {
		return err
	}
	liked, err := h.commentLikeRepository.LikedCommentIDs(ctx, user.ID, ids)
	if err != nil {
		return err
	}

	views := make([]CommentView, len(comments))
	for i, cm := range comments {
		views[i] = CommentView{Comment: cm, LikesCount: counts[cm.ID], IsLiked: liked[cm.ID]}
	}
	return ok(c, http.StatusOK, echo.Map{"comments": views})
}

// loadOwnComment fetches the :id comment and checks the caller wrote it.
func (h *CommentHandler) loadOwnComment(c echo.Context, userID uint) (*models.Comment, error) {
	id, err := uintParam(c, "id")
	if err != nil {
		return nil, err
	}
	comment, err := h.commentRepository.GetCommentByID(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if comment.UserID != userID {
		return nil, apperrors.ErrNotCommentOwner
	}
	return comment, nil
}

// UpdateComment edits the text of the caller's own comment
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.UpdateCommentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	comment, err := h.loadOwnComment(c, user.ID)
	if err != nil {
		return err
	}

	now := h.clock.Now()
	if err := h.commentRepository.UpdateCommentContent(c.Request().Context(), comment.ID, req.Content, now); err != nil {
		return err
	}
	comment.Content = req.Content
	comment.UpdatedAt = now
	return ok(c, http.StatusOK, echo.Map{"comment": comment})
}

// DeleteComment removes the caller's own comment
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	comment, err := h.loadOwnComment(c, user.ID)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := h.commentRepository.DeleteComment(ctx, comment.ID); err != nil {
		return err
	}
	if err := h.postRepository.IncrementCommentsCount(ctx, comment.PostID, -1); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *CommentHandler) LikeComment(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if _, err := h.commentRepository.GetCommentByID(ctx, id); err != nil {
		return err
	}
	if err := h.commentLikeRepository.CreateCommentLike(ctx, id, user.ID, h.clock.Now()); err != nil {
		return err
	}
	return h.commentLikeState(c, user.ID, id, http.StatusCreated)
}

func (h *CommentHandler) UnlikeComment(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.commentLikeRepository.DeleteCommentLike(c.Request().Context(), id, user.ID); err != nil {
		return err
	}
	return h.commentLikeState(c, user.ID, id, http.StatusOK)
}

func (h *CommentHandler) commentLikeState(c echo.Context, userID, commentID uint, status int) error {
	ctx := c.Request().Context()
	counts, err := h.commentLikeRepository.CountsForComments(ctx, []uint{commentID})
	if err != nil {
		return err
	}
	liked, err := h.commentLikeRepository.LikedCommentIDs(ctx, userID, []uint{commentID})
	if err != nil {
		return err
	}
	return ok(c, status, echo.Map{"liked": liked[commentID], "likes_count": counts[commentID]})
}
