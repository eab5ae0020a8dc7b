package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"github.com/anonto42/nano-social/backend/pkg/clock"
	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"
)

// UserHandler handles HTTP requests related to users
type UserHandler struct {
	userRepository   repositories.UserRepository
	followRepository repositories.FollowRepository
	blockRepository  repositories.BlockRepository
	remover          *AccountRemover
	clock            clock.Clock
	presenceWindow   time.Duration
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(
	userRepo repositories.UserRepository,
	followRepo repositories.FollowRepository,
	blockRepo repositories.BlockRepository,
	remover *AccountRemover,
	clk clock.Clock,
	presenceWindow time.Duration,
) *UserHandler {
	return &UserHandler{
		userRepository:   userRepo,
		followRepository: followRepo,
		blockRepository:  blockRepo,
		remover:          remover,
		clock:            clk,
		presenceWindow:   presenceWindow,
	}
}

// RegisterProfileRoutes registers user profile-related routes
func (h *UserHandler) RegisterProfileRoutes(g *echo.Group) {
	g.GET("/profile", h.GetProfile)
	g.PUT("/profile", h.UpdateProfile)
	g.DELETE("/profile", h.DeleteProfile)
	g.GET("/users/search", h.SearchUsers)
	g.GET("/users/:id", h.GetUser)
	g.POST("/presence", h.Heartbeat)
}

// ProfileView is a user with graph counts and viewer-relative state.
type ProfileView struct {
	*models.User
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
	IsFollowing    bool  `json:"is_following"`
	Online         bool  `json:"online"`
}

func (h *UserHandler) profileView(c echo.Context, viewerID uint, user *models.User) (*ProfileView, error) {
	ctx := c.Request().Context()
	followers, err := h.followRepository.GetFollowersCount(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	following, err := h.followRepository.GetFollowingCount(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	view := &ProfileView{
		User:           user,
		FollowersCount: followers,
		FollowingCount: following,
		Online:         user.Online(h.clock.Now(), h.presenceWindow),
	}
	if viewerID != user.ID {
		view.IsFollowing, err = h.followRepository.IsFollowing(ctx, viewerID, user.ID)
		if err != nil {
			return nil, err
		}
	}
	return view, nil
}

// GetProfile retrieves the authenticated user's profile
func (h *UserHandler) GetProfile(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	view, err := h.profileView(c, user.ID, user)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"user": view})
}

// GetUser retrieves another user's profile. Blocked pairs see each other as missing.
func (h *UserHandler) GetUser(c echo.Context) error {
	viewer, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if id != viewer.ID {
		blocked, err := h.blockRepository.IsBlockedEither(ctx, viewer.ID, id)
		if err != nil {
			return err
		}
		if blocked {
			return apperrors.ErrUserNotFound
		}
	}
	user, err := h.userRepository.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	view, err := h.profileView(c, viewer.ID, user)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"user": view})
}

// UpdateProfile applies the fields present in the request to the caller's profile
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.UpdateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Username != nil {
		username := strings.ToLower(*req.Username)
		user.Username = &username
	}
	if req.AvatarURL != nil {
		user.AvatarURL = *req.AvatarURL
	}
	if req.Bio != nil {
		user.Bio = *req.Bio
	}
	if req.Website != nil {
		user.Website = *req.Website
	}
	if req.Links != nil {
		raw, err := json.Marshal(req.Links)
		if err != nil {
			return apperrors.InvalidArg("invalid links")
		}
		user.Links = datatypes.JSON(raw)
	}
	if req.IsPrivate != nil {
		user.IsPrivate = *req.IsPrivate
	}
	user.UpdatedAt = h.clock.Now()

	if err := h.userRepository.UpdateUser(c.Request().Context(), user); err != nil {
		return err
	}
	view, err := h.profileView(c, user.ID, user)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"user": view})
}

// DeleteProfile removes the caller's account and everything it owns
func (h *UserHandler) DeleteProfile(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	if err := h.remover.Remove(c.Request().Context(), user.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SearchUsers searches for users by name or username
func (h *UserHandler) SearchUsers(c echo.Context) error {
	if _, err := currentUser(c); err != nil {
		return err
	}
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return apperrors.InvalidArg("search query 'q' is required")
	}
	_, limit := pageParams(c, 20, 50)

	users, err := h.userRepository.SearchUsers(c.Request().Context(), query, limit)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"users": compactUsers(users)})
}

// Heartbeat records activity for presence. Online is derived from the
// timestamp, so clients that stop sending drop offline on their own.
func (h *UserHandler) Heartbeat(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	now := h.clock.Now()
	if err := h.userRepository.TouchLastSeen(c.Request().Context(), user.ID, now); err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"online": true, "last_seen_at": now})
}
