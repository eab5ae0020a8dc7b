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

// FollowHandler handles follow, follow request and block HTTP requests
type FollowHandler struct {
	followRepository repositories.FollowRepository
	userRepository   repositories.UserRepository
	blockRepository  repositories.BlockRepository
	notifier         *Notifier
	clock            clock.Clock
}

// NewFollowHandler creates a new FollowHandler
func NewFollowHandler(
	followRepo repositories.FollowRepository,
	userRepo repositories.UserRepository,
	blockRepo repositories.BlockRepository,
	notifier *Notifier,
	clk clock.Clock,
) *FollowHandler {
	return &FollowHandler{
		followRepository: followRepo,
		userRepository:   userRepo,
		blockRepository:  blockRepo,
		notifier:         notifier,
		clock:            clk,
	}
}

// RegisterFollowRoutes registers follow-related routes
func (h *FollowHandler) RegisterFollowRoutes(g *echo.Group) {
	g.POST("/users/:id/follow", h.FollowUser)
	g.DELETE("/users/:id/follow", h.UnfollowUser)
	g.GET("/users/:id/followers", h.GetFollowers)
	g.GET("/users/:id/following", h.GetFollowing)

	g.GET("/follow-requests", h.GetFollowRequests)
	g.POST("/follow-requests/:id/accept", h.AcceptFollowRequest)
	g.POST("/follow-requests/:id/decline", h.DeclineFollowRequest)

	g.POST("/users/:id/block", h.BlockUser)
	g.DELETE("/users/:id/block", h.UnblockUser)
}

// target resolves the :id user for a graph action by the caller.
func (h *FollowHandler) target(c echo.Context, self *models.User) (*models.User, error) {
	targetID, err := uintParam(c, "id")
	if err != nil {
		return nil, err
	}
	if targetID == self.ID {
		return nil, apperrors.ErrSelfAction
	}
	return h.userRepository.GetUserByID(c.Request().Context(), targetID)
}

// FollowUser follows a public account or asks to follow a private one
func (h *FollowHandler) FollowUser(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	target, err := h.target(c, user)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	blocked, err := h.blockRepository.IsBlockedEither(ctx, user.ID, target.ID)
	if err != nil {
		return err
	}
	if blocked {
		return apperrors.ErrBlocked
	}
	following, err := h.followRepository.IsFollowing(ctx, user.ID, target.ID)
	if err != nil {
		return err
	}
	if following {
		return apperrors.ErrAlreadyFollowing
	}

	now := h.clock.Now()
	if target.IsPrivate {
		req, err := h.followRepository.CreateFollowRequest(ctx, user.ID, target.ID, now)
		if err != nil {
			return err
		}
		h.notifier.Notify(ctx, &models.Notification{
			Type:        models.NotificationFollowRequest,
			ActorID:     user.ID,
			RecipientID: target.ID,
			Content:     fmt.Sprintf("%s requested to follow you", user.DisplayName()),
			Metadata:    map[string]any{"request_id": req.ID},
		})
		return ok(c, http.StatusAccepted, echo.Map{"following": false, "requested": true})
	}

	if err := h.followRepository.CreateFollow(ctx, user.ID, target.ID, now); err != nil {
		return err
	}
	h.notifier.Notify(ctx, &models.Notification{
		Type:        models.NotificationFollow,
		ActorID:     user.ID,
		RecipientID: target.ID,
		Content:     fmt.Sprintf("%s started following you", user.DisplayName()),
	})
	return ok(c, http.StatusOK, echo.Map{"following": true, "requested": false})
}

// UnfollowUser unfollows a user
func (h *FollowHandler) UnfollowUser(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	targetID, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.followRepository.DeleteFollow(c.Request().Context(), user.ID, targetID); err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"following": false})
}

func (h *FollowHandler) GetFollowers(c echo.Context) error {
	if _, err := currentUser(c); err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	users, err := h.followRepository.GetFollowers(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"users": compactUsers(users), "count": len(users)})
}

func (h *FollowHandler) GetFollowing(c echo.Context) error {
	if _, err := currentUser(c); err != nil {
		return err
	}
	id, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	users, err := h.followRepository.GetFollowing(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"users": compactUsers(users), "count": len(users)})
}

// GetFollowRequests lists pending requests addressed to the caller
func (h *FollowHandler) GetFollowRequests(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	reqs, err := h.followRepository.GetPendingRequests(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	if reqs == nil {
		reqs = []models.FollowRequest{}
	}
	return ok(c, http.StatusOK, echo.Map{"requests": reqs})
}

// pendingRequest loads a request addressed to the caller that is still open.
func (h *FollowHandler) pendingRequest(c echo.Context, userID uint) (*models.FollowRequest, error) {
	id, err := uintParam(c, "id")
	if err != nil {
		return nil, err
	}
	req, err := h.followRepository.GetFollowRequest(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if req.TargetID != userID {
		return nil, apperrors.ErrFollowRequestNotFound
	}
	if req.Status != models.FollowRequestPending {
		return nil, apperrors.FailedPrecondition("follow request is already " + req.Status)
	}
	return req, nil
}

func (h *FollowHandler) AcceptFollowRequest(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	req, err := h.pendingRequest(c, user.ID)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	if err := h.followRepository.AcceptFollowRequest(ctx, req, h.clock.Now()); err != nil {
		return err
	}
	h.notifier.Notify(ctx, &models.Notification{
		Type:        models.NotificationFollowAccept,
		ActorID:     user.ID,
		RecipientID: req.RequesterID,
		Content:     fmt.Sprintf("%s accepted your follow request", user.DisplayName()),
	})
	return ok(c, http.StatusOK, echo.Map{"request": req})
}

func (h *FollowHandler) DeclineFollowRequest(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	req, err := h.pendingRequest(c, user.ID)
	if err != nil {
		return err
	}
	if err := h.followRepository.DeclineFollowRequest(c.Request().Context(), req, h.clock.Now()); err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"request": req})
}

// BlockUser blocks the target and severs the follow graph between the pair
func (h *FollowHandler) BlockUser(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	target, err := h.target(c, user)
	if err != nil {
		return err
	}
	if err := h.blockRepository.Block(c.Request().Context(), user.ID, target.ID, h.clock.Now()); err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"blocked": true})
}

func (h *FollowHandler) UnblockUser(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	targetID, err := uintParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.blockRepository.Unblock(c.Request().Context(), user.ID, targetID); err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"blocked": false})
}
