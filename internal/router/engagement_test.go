package router

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postView struct {
	ID            string `json:"id"`
	Content       string `json:"content"`
	LikesCount    int    `json:"likes_count"`
	CommentsCount int    `json:"comments_count"`
	IsLiked       bool   `json:"is_liked"`
	IsSaved       bool   `json:"is_saved"`
}

func (h *harness) createPost(u *models.User, content string) string {
	h.t.Helper()
	status, env := h.request(http.MethodPost, "/api/v1/posts", echo.Map{"content": content}, u)
	require.Equal(h.t, http.StatusCreated, status)
	return decode[struct {
		Post postView `json:"post"`
	}](h.t, env).Post.ID
}

func (h *harness) getPost(u *models.User, id string) postView {
	h.t.Helper()
	status, env := h.request(http.MethodGet, "/api/v1/posts/"+id, nil, u)
	require.Equal(h.t, http.StatusOK, status)
	return decode[struct {
		Post postView `json:"post"`
	}](h.t, env).Post
}

func (h *harness) savedPosts(u *models.User) []postView {
	h.t.Helper()
	status, env := h.request(http.MethodGet, "/api/v1/saved-posts", nil, u)
	require.Equal(h.t, http.StatusOK, status)
	return decode[struct {
		Posts []postView `json:"posts"`
	}](h.t, env).Posts
}

func TestSavedPosts(t *testing.T) {
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")
	first := h.createPost(alice, "first")
	h.clock.Advance(time.Minute)
	second := h.createPost(alice, "second")

	status, _ := h.request(http.MethodPost, "/api/v1/posts/"+second+"/save", nil, bob)
	require.Equal(t, http.StatusCreated, status)
	h.clock.Advance(time.Minute)
	status, _ = h.request(http.MethodPost, "/api/v1/posts/"+first+"/save", nil, bob)
	require.Equal(t, http.StatusCreated, status)

	status, env := h.request(http.MethodPost, "/api/v1/posts/"+first+"/save", nil, bob)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ALREADY_EXISTS", env.Error.Code)

	assert.True(t, h.getPost(bob, first).IsSaved)
	assert.False(t, h.getPost(alice, first).IsSaved)

	saved := h.savedPosts(bob)
	require.Len(t, saved, 2)
	assert.Equal(t, first, saved[0].ID, "most recently saved first")
	assert.Equal(t, second, saved[1].ID)
	assert.True(t, saved[0].IsSaved)

	status, env = h.request(http.MethodDelete, "/api/v1/posts/"+second+"/save", nil, bob)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, map[string]bool{"saved": false}, decode[map[string]bool](t, env))
	status, _ = h.request(http.MethodDelete, "/api/v1/posts/"+second+"/save", nil, bob)
	assert.Equal(t, http.StatusNotFound, status)

	// deleting the post drops its bookmarks
	status, _ = h.request(http.MethodDelete, "/api/v1/posts/"+first, nil, alice)
	require.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, h.savedPosts(bob))

	status, _ = h.request(http.MethodPost, "/api/v1/posts/"+first+"/save", nil, bob)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestFeedMarksSavedPosts(t *testing.T) {
	h := newHarness(t)
	alice := h.user("Alice")
	kept := h.createPost(alice, "keep me")
	h.createPost(alice, "skip me")

	status, _ := h.request(http.MethodPost, "/api/v1/posts/"+kept+"/save", nil, alice)
	require.Equal(t, http.StatusCreated, status)

	status, env := h.request(http.MethodGet, "/api/v1/feed", nil, alice)
	require.Equal(t, http.StatusOK, status)
	posts := decode[struct {
		Posts []postView `json:"posts"`
	}](t, env).Posts
	require.Len(t, posts, 2)
	for _, p := range posts {
		assert.Equal(t, p.ID == kept, p.IsSaved, p.Content)
	}
}

func TestLikeCountAndStatus(t *testing.T) {
	h := newHarness(t)
	alice, bob, carol := h.user("Alice"), h.user("Bob"), h.user("Carol")
	postID := h.createPost(alice, "count me")

	for _, u := range []*models.User{bob, carol} {
		status, _ := h.request(http.MethodPost, "/api/v1/posts/"+postID+"/likes", nil, u)
		require.Equal(t, http.StatusCreated, status)
	}

	status, env := h.request(http.MethodGet, "/api/v1/posts/"+postID+"/likes/count", nil, alice)
	require.Equal(t, http.StatusOK, status)
	count := decode[struct {
		PostID     string `json:"post_id"`
		LikesCount int64  `json:"likes_count"`
	}](t, env)
	assert.Equal(t, postID, count.PostID)
	assert.Equal(t, int64(2), count.LikesCount)

	liked := func(u *models.User) bool {
		status, env := h.request(http.MethodGet, "/api/v1/posts/"+postID+"/likes/status", nil, u)
		require.Equal(t, http.StatusOK, status)
		return decode[struct {
			Liked bool `json:"liked"`
		}](t, env).Liked
	}
	assert.True(t, liked(bob))
	assert.False(t, liked(alice))

	status, _ = h.request(http.MethodGet, "/api/v1/posts/65f0c0ffee0000000000ffff/likes/count", nil, alice)
	assert.Equal(t, http.StatusNotFound, status)
}

type commentView struct {
	ID         uint   `json:"id"`
	Content    string `json:"content"`
	LikesCount int64  `json:"likes_count"`
	IsLiked    bool   `json:"is_liked"`
}

func TestCommentEditAndLikes(t *testing.T) {
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")
	postID := h.createPost(alice, "discuss")

	status, env := h.request(http.MethodPost, "/api/v1/posts/"+postID+"/comments", echo.Map{"content": "frist"}, bob)
	require.Equal(t, http.StatusCreated, status)
	commentID := decode[struct {
		Comment commentView `json:"comment"`
	}](t, env).Comment.ID
	path := fmt.Sprintf("/api/v1/comments/%d", commentID)

	status, env = h.request(http.MethodPut, path, echo.Map{"content": "hijacked"}, alice)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "you are not authorized to modify this comment", env.Error.Message)

	status, _ = h.request(http.MethodPut, path, echo.Map{"content": ""}, bob)
	assert.Equal(t, http.StatusBadRequest, status)

	h.clock.Advance(time.Minute)
	status, env = h.request(http.MethodPut, path, echo.Map{"content": "first"}, bob)
	require.Equal(t, http.StatusOK, status)
	edited := decode[struct {
		Comment models.Comment `json:"comment"`
	}](t, env).Comment
	assert.Equal(t, "first", edited.Content)
	assert.True(t, edited.UpdatedAt.After(edited.CreatedAt))

	status, env = h.request(http.MethodPost, path+"/likes", nil, alice)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, float64(1), decode[map[string]any](t, env)["likes_count"])
	status, env = h.request(http.MethodPost, path+"/likes", nil, alice)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "comment already liked", env.Error.Message)

	listComments := func(u *models.User) []commentView {
		status, env := h.request(http.MethodGet, "/api/v1/posts/"+postID+"/comments", nil, u)
		require.Equal(t, http.StatusOK, status)
		return decode[struct {
			Comments []commentView `json:"comments"`
		}](t, env).Comments
	}
	comments := listComments(alice)
	require.Len(t, comments, 1)
	assert.Equal(t, "first", comments[0].Content)
	assert.Equal(t, int64(1), comments[0].LikesCount)
	assert.True(t, comments[0].IsLiked)
	assert.False(t, listComments(bob)[0].IsLiked)

	status, env = h.request(http.MethodDelete, path+"/likes", nil, alice)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, decode[map[string]any](t, env)["liked"])
	status, _ = h.request(http.MethodDelete, path+"/likes", nil, alice)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = h.request(http.MethodPost, "/api/v1/comments/9999/likes", nil, alice)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStoryReactions(t *testing.T) {
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")
	storyID := h.createStory(alice, "sunset")

	status, _ := h.request(http.MethodPost, "/api/v1/stories/"+storyID+"/react", echo.Map{"reaction": "🔥"}, bob)
	require.Equal(t, http.StatusOK, status)
	h.clock.Advance(time.Minute)
	status, env := h.request(http.MethodPost, "/api/v1/stories/"+storyID+"/react", echo.Map{"reaction": "😍"}, bob)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "😍", decode[map[string]string](t, env)["reaction"])

	status, _ = h.request(http.MethodPost, "/api/v1/stories/"+storyID+"/react", echo.Map{"reaction": "👍"}, alice)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = h.request(http.MethodPost, "/api/v1/stories/"+storyID+"/react", echo.Map{}, bob)
	assert.Equal(t, http.StatusBadRequest, status)

	// a reaction counts as a view and shows up next to it
	status, env = h.request(http.MethodGet, "/api/v1/stories/"+storyID+"/view", nil, alice)
	require.Equal(t, http.StatusOK, status)
	viewers := decode[struct {
		Viewers []struct {
			User     models.UserCompact `json:"user"`
			Reaction string             `json:"reaction"`
		} `json:"viewers"`
	}](t, env).Viewers
	require.Len(t, viewers, 1)
	assert.Equal(t, bob.ID, viewers[0].User.ID)
	assert.Equal(t, "😍", viewers[0].Reaction)

	status, env = h.request(http.MethodGet, "/api/v1/notifications", nil, alice)
	require.Equal(t, http.StatusOK, status)
	notifications := decode[struct {
		Notifications []models.Notification `json:"notifications"`
	}](t, env).Notifications
	require.Len(t, notifications, 2)
	assert.Equal(t, models.NotificationStoryReaction, notifications[0].Type)
	assert.Equal(t, storyID, notifications[0].Metadata["story_id"])
	assert.Equal(t, "😍", notifications[0].Metadata["reaction"])

	h.clock.Advance(models.StoryTTL)
	status, _ = h.request(http.MethodPost, "/api/v1/stories/"+storyID+"/react", echo.Map{"reaction": "🔥"}, bob)
	assert.Equal(t, http.StatusGone, status)
}

func TestDeleteProfile(t *testing.T) {
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")

	status, _ := h.request(http.MethodPost, fmt.Sprintf("/api/v1/users/%d/follow", alice.ID), nil, bob)
	require.Equal(t, http.StatusOK, status)
	alicePost := h.createPost(alice, "hello")
	bobPost := h.createPost(bob, "mine")
	h.createStory(bob, "bye")

	status, _ = h.request(http.MethodPost, "/api/v1/posts/"+alicePost+"/likes", nil, bob)
	require.Equal(t, http.StatusCreated, status)
	status, _ = h.request(http.MethodPost, "/api/v1/posts/"+alicePost+"/comments", echo.Map{"content": "hi"}, bob)
	require.Equal(t, http.StatusCreated, status)
	status, _ = h.request(http.MethodPost, "/api/v1/posts/"+alicePost+"/save", nil, bob)
	require.Equal(t, http.StatusCreated, status)
	status, _ = h.request(http.MethodPost, "/api/v1/posts/"+bobPost+"/save", nil, alice)
	require.Equal(t, http.StatusCreated, status)
	status, chat := h.openChat(bob, alice)
	require.Equal(t, http.StatusCreated, status)
	status, _ = h.request(http.MethodPost, "/api/v1/chats/"+chat.ID+"/messages", echo.Map{"content": "hey"}, bob)
	require.Equal(t, http.StatusCreated, status)

	status, _ = h.request(http.MethodDelete, "/api/v1/profile", nil, bob)
	require.Equal(t, http.StatusNoContent, status)

	status, env := h.request(http.MethodGet, "/api/v1/profile", nil, bob)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "user profile not found", env.Error.Message)

	post := h.getPost(alice, alicePost)
	assert.Equal(t, 0, post.LikesCount)
	assert.Equal(t, 0, post.CommentsCount)

	status, _ = h.request(http.MethodGet, "/api/v1/posts/"+bobPost, nil, alice)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Empty(t, h.savedPosts(alice))

	status, env = h.request(http.MethodGet, "/api/v1/chats", nil, alice)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[struct {
		Chats []chatView `json:"chats"`
	}](t, env).Chats)
	assert.Equal(t, int64(0), h.unreadTotal(alice))

	status, env = h.request(http.MethodGet, fmt.Sprintf("/api/v1/users/%d/followers", alice.ID), nil, alice)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, decode[struct {
		Count int `json:"count"`
	}](t, env).Count)

	var left int64
	for _, model := range []any{&models.Like{}, &models.Comment{}, &models.SavedPost{}, &models.Notification{}, &models.Message{}} {
		require.NoError(t, h.db.Model(model).Count(&left).Error)
		assert.Zero(t, left, "%T rows left behind", model)
	}
}

func TestIdentityWebhookUserDeleted(t *testing.T) {
	h := newHarness(t)
	dana := h.user("Dana")
	body := []byte(`{"type":"user.deleted","data":{"id":"` + dana.ExternalID + `"}}`)

	send := func(msgID string) *httptest.ResponseRecorder {
		now := time.Now()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/identity", bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set("svix-id", msgID)
		req.Header.Set("svix-timestamp", strconv.FormatInt(now.Unix(), 10))
		req.Header.Set("svix-signature", signWebhook(t, msgID, now, body))
		rec := httptest.NewRecorder()
		h.e.ServeHTTP(rec, req)
		return rec
	}

	rec := send("msg_del_1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"deleted":true`)

	var count int64
	require.NoError(t, h.db.Model(&models.User{}).Where("id = ?", dana.ID).Count(&count).Error)
	assert.Zero(t, count)

	// a redelivery finds nothing left to remove
	rec = send("msg_del_2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"deleted":false`)
}
