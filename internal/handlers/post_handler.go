package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"github.com/anonto42/nano-social/backend/pkg/clock"
	"github.com/labstack/echo/v4"
)

// PostHandler handles HTTP requests related to posts and poll votes
type PostHandler struct {
	postRepository    repositories.PostRepository
	likeRepository    repositories.LikeRepository
	commentRepository repositories.CommentRepository
	savedRepository   repositories.SavedPostRepository
	enricher          postEnricher
	clock             clock.Clock
}

// NewPostHandler creates a new PostHandler
func NewPostHandler(
	postRepo repositories.PostRepository,
	userRepo repositories.UserRepository,
	likeRepo repositories.LikeRepository,
	commentRepo repositories.CommentRepository,
	savedRepo repositories.SavedPostRepository,
	clk clock.Clock,
) *PostHandler {
	return &PostHandler{
		postRepository:    postRepo,
		likeRepository:    likeRepo,
		commentRepository: commentRepo,
		savedRepository:   savedRepo,
		enricher:          postEnricher{users: userRepo, likes: likeRepo, saves: savedRepo, clock: clk},
		clock:             clk,
	}
}

// RegisterPostRoutes registers post-related routes
func (h *PostHandler) RegisterPostRoutes(g *echo.Group) {
	g.POST("/posts", h.CreatePost)
	g.GET("/posts", h.GetPosts)
	g.GET("/posts/:id", h.GetPost)
	g.PUT("/posts/:id", h.UpdatePost)
	g.DELETE("/posts/:id", h.DeletePost)
	g.POST("/posts/:id/vote", h.Vote)
	g.DELETE("/posts/:id/vote", h.RemoveVote)
}

// CreatePost creates a new post
func (h *PostHandler) CreatePost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	now := h.clock.Now()
	if err := req.Check(now); err != nil {
		return err
	}

	post := &models.Post{
		AuthorID:  user.ID,
		Type:      req.Type,
		Content:   req.Content,
		ImageURLs: req.ImageURLs,
		VideoURL:  req.VideoURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Type == models.PostTypePoll {
		post.Poll = &models.Poll{
			Question:      req.Poll.Question,
			Options:       req.Poll.Options,
			AllowMultiple: req.Poll.AllowMultiple,
			EndsAt:        req.Poll.EndsAt,
			Votes:         map[string]int{},
		}
	}

	if err := h.postRepository.CreatePost(c.Request().Context(), post); err != nil {
		return err
	}
	enriched, err := h.enricher.enrichOne(c.Request().Context(), user.ID, post)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, echo.Map{"post": enriched})
}

// GetPost retrieves a post by ID
func (h *PostHandler) GetPost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	enriched, err := h.enricher.enrichOne(c.Request().Context(), user.ID, post)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"post": enriched})
}

// GetPosts lists posts, optionally only those by ?user_id=
func (h *PostHandler) GetPosts(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	skip, _ := strconv.ParseInt(c.QueryParam("skip"), 10, 64)
	limit, _ := strconv.ParseInt(c.QueryParam("limit"), 10, 64)
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	var posts []models.Post
	if raw := c.QueryParam("user_id"); raw != "" {
		authorID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return apperrors.InvalidArg("invalid user_id")
		}
		posts, _, err = h.postRepository.GetPostsByAuthorIDs(ctx, []uint{uint(authorID)}, skip, limit)
		if err != nil {
			return err
		}
	} else {
		posts, err = h.postRepository.GetAllPosts(ctx, skip, limit)
		if err != nil {
			return err
		}
	}

	enriched, err := h.enricher.enrich(ctx, user.ID, posts)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"posts": enriched})
}

// loadOwnPost fetches the post and checks the caller wrote it.
func (h *PostHandler) loadOwnPost(c echo.Context, userID uint) (*models.Post, error) {
	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		return nil, apperrors.ErrNotPostOwner
	}
	return post, nil
}

// UpdatePost edits the content of the caller's own post
func (h *PostHandler) UpdatePost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.UpdatePostRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	post, err := h.loadOwnPost(c, user.ID)
	if err != nil {
		return err
	}

	now := h.clock.Now()
	if err := h.postRepository.UpdatePostContent(c.Request().Context(), post.ID.Hex(), req.Content, now); err != nil {
		return err
	}
	post.Content = req.Content
	post.UpdatedAt = now

	enriched, err := h.enricher.enrichOne(c.Request().Context(), user.ID, post)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"post": enriched})
}

// DeletePost deletes the caller's own post with its likes, comments and bookmarks
func (h *PostHandler) DeletePost(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	post, err := h.loadOwnPost(c, user.ID)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	id := post.ID.Hex()
	if err := h.postRepository.DeletePost(ctx, id); err != nil {
		return err
	}
	if err := h.likeRepository.DeleteLikesForPost(ctx, id); err != nil {
		return err
	}
	if err := h.commentRepository.DeleteCommentsForPost(ctx, id); err != nil {
		return err
	}
	if err := h.savedRepository.DeleteSavesForPosts(ctx, []string{id}); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// loadOpenPoll returns the poll post if it still accepts changes.
func (h *PostHandler) loadOpenPoll(c echo.Context) (*models.Post, error) {
	post, err := h.postRepository.GetPostByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if post.Type != models.PostTypePoll || post.Poll == nil {
		return nil, apperrors.ErrNotAPoll
	}
	if post.Poll.Ended(h.clock.Now()) {
		return nil, apperrors.ErrPollEnded
	}
	return post, nil
}

func (h *PostHandler) pollResult(c echo.Context, userID uint, postID string) error {
	post, err := h.postRepository.GetPostByID(c.Request().Context(), postID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"poll": post.Poll.ResultFor(userID, h.clock.Now())})
}

// Vote records the caller's single current choice, replacing any earlier one.
func (h *PostHandler) Vote(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.VoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	post, err := h.loadOpenPoll(c)
	if err != nil {
		return err
	}
	if *req.Option >= len(post.Poll.Options) {
		return apperrors.InvalidArg("option is out of range")
	}

	id := post.ID.Hex()
	if err := h.postRepository.SetVote(c.Request().Context(), id, user.ID, *req.Option, h.clock.Now()); err != nil {
		return err
	}
	return h.pollResult(c, user.ID, id)
}

// RemoveVote withdraws the caller's vote; there must be one to withdraw.
func (h *PostHandler) RemoveVote(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	post, err := h.loadOpenPoll(c)
	if err != nil {
		return err
	}

	id := post.ID.Hex()
	removed, err := h.postRepository.RemoveVote(c.Request().Context(), id, user.ID, h.clock.Now())
	if err != nil {
		return err
	}
	if !removed {
		return apperrors.ErrNoVoteToRemove
	}
	return h.pollResult(c, user.ID, id)
}
