package handlers

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"github.com/anonto42/nano-social/backend/pkg/clock"
	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"
)

// StoryHandler handles story-related HTTP requests
type StoryHandler struct {
	storyRepository     repositories.StoryRepository
	storyViewRepository repositories.StoryViewRepository
	userRepository      repositories.UserRepository
	followRepository    repositories.FollowRepository
	blockRepository     repositories.BlockRepository
	messenger           *Messenger
	notifier            *Notifier
	clock               clock.Clock
}

// NewStoryHandler creates a new StoryHandler
func NewStoryHandler(
	storyRepo repositories.StoryRepository,
	viewRepo repositories.StoryViewRepository,
	userRepo repositories.UserRepository,
	followRepo repositories.FollowRepository,
	blockRepo repositories.BlockRepository,
	messenger *Messenger,
	notifier *Notifier,
	clk clock.Clock,
) *StoryHandler {
	return &StoryHandler{
		storyRepository:     storyRepo,
		storyViewRepository: viewRepo,
		userRepository:      userRepo,
		followRepository:    followRepo,
		blockRepository:     blockRepo,
		messenger:           messenger,
		notifier:            notifier,
		clock:               clk,
	}
}

// RegisterStoryRoutes registers story-related routes
func (h *StoryHandler) RegisterStoryRoutes(g *echo.Group) {
	g.GET("/stories", h.GetStories)
	g.POST("/stories", h.CreateStory)
	g.GET("/stories/:id", h.GetStory)
	g.DELETE("/stories/:id", h.DeleteStory)
	g.POST("/stories/:id/view", h.ViewStory)
	g.GET("/stories/:id/view", h.GetViewers)
	g.POST("/stories/:id/reply", h.ReplyToStory)
	g.POST("/stories/:id/react", h.ReactToStory)
}

// RegisterAdminRoutes registers the operator routes. They carry their own
// guard instead of user identity.
func (h *StoryHandler) RegisterAdminRoutes(e *echo.Echo, guard echo.MiddlewareFunc) {
	e.DELETE("/api/v1/stories", h.PurgeExpired, guard)
}

// GetStories returns the active stories of the caller and everyone they
// follow, grouped by owner.
func (h *StoryHandler) GetStories(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	now := h.clock.Now()

	followingIDs, err := h.followRepository.GetFollowingIDs(ctx, user.ID)
	if err != nil {
		return err
	}
	blockedIDs, err := h.blockRepository.BlockedUserIDs(ctx, user.ID)
	if err != nil {
		return err
	}
	blocked := make(map[uint]bool, len(blockedIDs))
	for _, id := range blockedIDs {
		blocked[id] = true
	}
	ownerIDs := []uint{user.ID}
	for _, id := range followingIDs {
		if !blocked[id] && id != user.ID {
			ownerIDs = append(ownerIDs, id)
		}
	}

	stories, err := h.storyRepository.GetActiveStoriesByUserIDs(ctx, ownerIDs, now)
	if err != nil {
		return err
	}
	storyIDs := make([]string, len(stories))
	for i, s := range stories {
		storyIDs[i] = s.ID.Hex()
	}
	viewed, err := h.storyViewRepository.GetViewedStoryIDs(ctx, user.ID, storyIDs)
	if err != nil {
		return err
	}
	owners, err := h.userRepository.GetUsersByIDs(ctx, ownerIDs)
	if err != nil {
		return err
	}

	return ok(c, http.StatusOK, echo.Map{"groups": groupStories(user.ID, stories, viewed, owners)})
}

// groupStories buckets stories (already ascending by creation) per owner.
// Order: the viewer's own group, then groups with unviewed stories, then by
// latest story, newest first.
func groupStories(viewerID uint, stories []models.Story, viewed map[string]bool, owners map[uint]models.User) []models.StoryGroup {
	index := make(map[uint]int)
	groups := make([]models.StoryGroup, 0)
	for _, s := range stories {
		i, found := index[s.UserID]
		if !found {
			owner := owners[s.UserID]
			groups = append(groups, models.StoryGroup{
				User:      owner.ToCompact(),
				IsOwn:     s.UserID == viewerID,
				AllViewed: true,
			})
			i = len(groups) - 1
			index[s.UserID] = i
		}
		g := &groups[i]
		g.Stories = append(g.Stories, s)
		if s.CreatedAt.After(g.LatestAt) {
			g.LatestAt = s.CreatedAt
		}
		if !g.IsOwn && !viewed[s.ID.Hex()] {
			g.HasUnviewed = true
			g.AllViewed = false
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i], groups[j]
		if a.IsOwn != b.IsOwn {
			return a.IsOwn
		}
		if a.HasUnviewed != b.HasUnviewed {
			return a.HasUnviewed
		}
		return a.LatestAt.After(b.LatestAt)
	})
	return groups
}

// loadStory returns a story the caller may see. Stories of blocked users
// read as missing; expired ones as gone.
func (h *StoryHandler) loadStory(c echo.Context, viewerID uint) (*models.Story, error) {
	ctx := c.Request().Context()
	story, err := h.storyRepository.GetStoryByID(ctx, c.Param("id"))
	if err != nil {
		return nil, err
	}
	if story.UserID != viewerID {
		blocked, err := h.blockRepository.IsBlockedEither(ctx, viewerID, story.UserID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, apperrors.ErrStoryNotFound
		}
	}
	if !story.ActiveAt(h.clock.Now()) {
		return nil, apperrors.ErrStoryExpired
	}
	return story, nil
}

// GetStory returns a single active story
func (h *StoryHandler) GetStory(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	story, err := h.loadStory(c, user.ID)
	if err != nil {
		return err
	}
	owner, err := h.userRepository.GetUserByID(c.Request().Context(), story.UserID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"story": story, "user": owner.ToCompact()})
}

// CreateStory creates a new story that expires after StoryTTL
func (h *StoryHandler) CreateStory(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreateStoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := req.Check(); err != nil {
		return err
	}

	now := h.clock.Now()
	story := &models.Story{
		UserID:     user.ID,
		Type:       req.Type,
		Text:       req.Text,
		Background: req.Background,
		ImageURL:   req.ImageURL,
		VideoURL:   req.VideoURL,
		CreatedAt:  now,
		ExpiresAt:  now.Add(models.StoryTTL),
	}
	if err := h.storyRepository.CreateStory(c.Request().Context(), story); err != nil {
		return err
	}
	return ok(c, http.StatusCreated, echo.Map{"story": story})
}

func (h *StoryHandler) DeleteStory(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	story, err := h.storyRepository.GetStoryByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if story.UserID != user.ID {
		return apperrors.ErrNotStoryOwner
	}

	id := story.ID.Hex()
	if err := h.storyRepository.DeleteStory(ctx, id); err != nil {
		return err
	}
	if err := h.storyViewRepository.DeleteActivityForStories(ctx, []string{id}); err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"deleted": true})
}

// PurgeExpired physically removes every expired story with its views and reactions.
func (h *StoryHandler) PurgeExpired(c echo.Context) error {
	deleted, err := repositories.PurgeExpiredStories(c.Request().Context(), h.storyRepository, h.storyViewRepository, h.clock.Now())
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"deleted": deleted})
}

// ViewStory records the caller's view. Owners viewing their own story are not recorded.
func (h *StoryHandler) ViewStory(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	story, err := h.loadStory(c, user.ID)
	if err != nil {
		return err
	}
	if story.UserID == user.ID {
		return ok(c, http.StatusOK, echo.Map{"viewed": false})
	}
	if err := h.storyViewRepository.UpsertView(c.Request().Context(), story.ID.Hex(), user.ID, h.clock.Now()); err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"viewed": true})
}

type storyViewer struct {
	User     models.UserCompact `json:"user"`
	ViewedAt time.Time          `json:"viewed_at"`
	Reaction string             `json:"reaction,omitempty"`
}

// GetViewers lists who viewed the story with their reaction, newest view first. Owner only.
func (h *StoryHandler) GetViewers(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	story, err := h.storyRepository.GetStoryByID(ctx, c.Param("id"))
	if err != nil {
		return err
	}
	if story.UserID != user.ID {
		return apperrors.ErrNotStoryOwner
	}

	views, err := h.storyViewRepository.GetViews(ctx, story.ID.Hex())
	if err != nil {
		return err
	}
	reactions, err := h.storyViewRepository.GetReactions(ctx, story.ID.Hex())
	if err != nil {
		return err
	}
	viewers := make([]storyViewer, 0, len(views))
	for _, v := range views {
		sv := storyViewer{ViewedAt: v.ViewedAt, Reaction: reactions[v.UserID]}
		if v.User != nil {
			sv.User = v.User.ToCompact()
		}
		viewers = append(viewers, sv)
	}
	return ok(c, http.StatusOK, echo.Map{"viewers": viewers, "count": len(viewers)})
}

// ReplyToStory sends the reply into the caller's chat with the story owner.
func (h *StoryHandler) ReplyToStory(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.StoryReplyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	story, err := h.loadStory(c, user.ID)
	if err != nil {
		return err
	}
	if story.UserID == user.ID {
		return apperrors.InvalidArg("you cannot reply to your own story")
	}

	ctx := c.Request().Context()
	chat, _, err := h.messenger.OpenChat(ctx, user, story.UserID)
	if err != nil {
		return err
	}
	msg, err := h.messenger.Send(ctx, chat, user, "Replied to your story: "+req.Content,
		models.MessageTypeText, models.NotificationStoryReply)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, echo.Map{"chat_id": chat.ID, "message": msg})
}

// ReactToStory stores the caller's reaction, which also counts as a view,
// and notifies the owner.
func (h *StoryHandler) ReactToStory(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.StoryReactionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	story, err := h.loadStory(c, user.ID)
	if err != nil {
		return err
	}
	if story.UserID == user.ID {
		return apperrors.InvalidArg("you cannot react to your own story")
	}

	ctx := c.Request().Context()
	now := h.clock.Now()
	storyID := story.ID.Hex()
	if err := h.storyViewRepository.UpsertView(ctx, storyID, user.ID, now); err != nil {
		return err
	}
	if err := h.storyViewRepository.UpsertReaction(ctx, storyID, user.ID, req.Reaction, now); err != nil {
		return err
	}

	h.notifier.Notify(ctx, &models.Notification{
		Type:        models.NotificationStoryReaction,
		ActorID:     user.ID,
		RecipientID: story.UserID,
		Content:     fmt.Sprintf("%s reacted %s to your story", user.DisplayName(), req.Reaction),
		Metadata:    datatypes.JSONMap{"story_id": storyID, "reaction": req.Reaction},
	})
	return ok(c, http.StatusOK, echo.Map{"story_id": storyID, "reaction": req.Reaction})
}
