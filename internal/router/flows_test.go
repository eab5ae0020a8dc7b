package router

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var webhookKey = []byte("0123456789abcdef0123456789abcdef")

var testWebhookSecret = "whsec_" + base64.StdEncoding.EncodeToString(webhookKey)

type chatView struct {
	ID           string               `json:"id"`
	Participants []models.UserCompact `json:"participants"`
	UnreadCount  int64                `json:"unread_count"`
}

func (h *harness) openChat(from, to *models.User) (int, chatView) {
	h.t.Helper()
	status, env := h.request(http.MethodPost, "/api/v1/chats/create", echo.Map{"user_id": to.ID}, from)
	if status >= 300 {
		return status, chatView{}
	}
	out := decode[struct {
		Chat chatView `json:"chat"`
	}](h.t, env)
	return status, out.Chat
}

func (h *harness) unreadTotal(u *models.User) int64 {
	h.t.Helper()
	status, env := h.request(http.MethodGet, "/api/v1/chats/unread-count", nil, u)
	require.Equal(h.t, http.StatusOK, status)
	return decode[struct {
		Count int64 `json:"count"`
	}](h.t, env).Count
}

func TestChatConversation(t *testing.T) {
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")

	status, chat := h.openChat(alice, bob)
	require.Equal(t, http.StatusCreated, status)
	assert.Len(t, chat.Participants, 2)

	status, again := h.openChat(bob, alice)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, chat.ID, again.ID)

	status, _ = h.request(http.MethodPost, "/api/v1/chats/"+chat.ID+"/messages", echo.Map{"content": "hi"}, alice)
	require.Equal(t, http.StatusCreated, status)
	h.clock.Advance(time.Second)
	status, _ = h.request(http.MethodPost, "/api/v1/chats/"+chat.ID+"/messages", echo.Map{"content": "are you there?"}, alice)
	require.Equal(t, http.StatusCreated, status)

	assert.Equal(t, int64(2), h.unreadTotal(bob))
	assert.Equal(t, int64(0), h.unreadTotal(alice))

	status, env := h.request(http.MethodGet, "/api/v1/chats", nil, bob)
	require.Equal(t, http.StatusOK, status)
	listed := decode[struct {
		Chats []chatView `json:"chats"`
	}](t, env)
	require.Len(t, listed.Chats, 1)
	assert.Equal(t, int64(2), listed.Chats[0].UnreadCount)

	status, env = h.request(http.MethodPatch, "/api/v1/chats/"+chat.ID+"/read", nil, bob)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(2), decode[struct {
		Updated int64 `json:"updated"`
	}](t, env).Updated)
	assert.Equal(t, int64(0), h.unreadTotal(bob))

	status, env = h.request(http.MethodGet, "/api/v1/chats/"+chat.ID+"/messages", nil, bob)
	require.Equal(t, http.StatusOK, status)
	msgs := decode[struct {
		Messages []models.Message `json:"messages"`
	}](t, env).Messages
	require.Len(t, msgs, 2)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.Equal(t, "are you there?", msgs[1].Content)
	assert.Equal(t, bob.ID, msgs[0].ReceiverID)
	assert.NotNil(t, msgs[0].ReadAt)
	assert.Equal(t, false, env.Meta["has_more"])

	// the recipient was notified of both messages
	status, env = h.request(http.MethodGet, "/api/v1/notifications/unread-count", nil, bob)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(2), decode[struct {
		Count int64 `json:"count"`
	}](t, env).Count)
}

func TestChatMessagePaging(t *testing.T) {
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")
	status, chat := h.openChat(alice, bob)
	require.Equal(t, http.StatusCreated, status)

	var sent []models.Message
	for _, text := range []string{"m1", "m2", "m3"} {
		status, env := h.request(http.MethodPost, "/api/v1/chats/"+chat.ID+"/messages", echo.Map{"content": text}, alice)
		require.Equal(t, http.StatusCreated, status)
		sent = append(sent, decode[struct {
			Message models.Message `json:"message"`
		}](t, env).Message)
		h.clock.Advance(time.Second)
	}

	page := func(query string) ([]string, any) {
		status, env := h.request(http.MethodGet, "/api/v1/chats/"+chat.ID+"/messages"+query, nil, bob)
		require.Equal(t, http.StatusOK, status)
		msgs := decode[struct {
			Messages []models.Message `json:"messages"`
		}](t, env).Messages
		var contents []string
		for _, m := range msgs {
			contents = append(contents, m.Content)
		}
		return contents, env.Meta["has_more"]
	}

	contents, hasMore := page("?limit=2")
	assert.Equal(t, []string{"m2", "m3"}, contents)
	assert.Equal(t, true, hasMore)

	contents, hasMore = page(fmt.Sprintf("?limit=2&before=%d", sent[1].ID))
	assert.Equal(t, []string{"m1"}, contents)
	assert.Equal(t, false, hasMore)
}

func TestChatAccessRules(t *testing.T) {
	h := newHarness(t)
	alice, bob, carol := h.user("Alice"), h.user("Bob"), h.user("Carol")
	_, chat := h.openChat(alice, bob)

	status, env := h.request(http.MethodGet, "/api/v1/chats/"+chat.ID+"/messages", nil, carol)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "PERMISSION_DENIED", env.Error.Code)

	status, _ = h.request(http.MethodPost, "/api/v1/chats/"+chat.ID+"/messages", echo.Map{"content": "hey"}, carol)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = h.request(http.MethodGet, "/api/v1/chats/00000000-0000-0000-0000-000000000000", nil, alice)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = h.openChat(alice, alice)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = h.request(http.MethodPost, "/api/v1/chats/"+chat.ID+"/messages", echo.Map{"content": ""}, alice)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestBlockedUsersCannotChat(t *testing.T) {
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")

	status, _ := h.request(http.MethodPost, fmt.Sprintf("/api/v1/users/%d/block", bob.ID), nil, alice)
	require.Equal(t, http.StatusOK, status)

	status, _ = h.openChat(bob, alice)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = h.request(http.MethodGet, fmt.Sprintf("/api/v1/users/%d", alice.ID), nil, bob)
	assert.Equal(t, http.StatusNotFound, status)
}

func (h *harness) createStory(u *models.User, text string) string {
	h.t.Helper()
	status, env := h.request(http.MethodPost, "/api/v1/stories", echo.Map{"type": "text", "text": text}, u)
	require.Equal(h.t, http.StatusCreated, status)
	return decode[struct {
		Story models.Story `json:"story"`
	}](h.t, env).Story.ID.Hex()
}

func (h *harness) storyGroups(u *models.User) []models.StoryGroup {
	h.t.Helper()
	status, env := h.request(http.MethodGet, "/api/v1/stories", nil, u)
	require.Equal(h.t, http.StatusOK, status)
	return decode[struct {
		Groups []models.StoryGroup `json:"groups"`
	}](h.t, env).Groups
}

func TestStoryLifecycle(t *testing.T) {
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")

	status, _ := h.request(http.MethodPost, fmt.Sprintf("/api/v1/users/%d/follow", alice.ID), nil, bob)
	require.Equal(t, http.StatusOK, status)

	storyID := h.createStory(alice, "good morning")

	h.clock.Advance(24*time.Hour - time.Minute)
	groups := h.storyGroups(bob)
	require.Len(t, groups, 1)
	assert.Equal(t, alice.ID, groups[0].User.ID)
	assert.True(t, groups[0].HasUnviewed)

	status, _ = h.request(http.MethodPost, "/api/v1/stories/"+storyID+"/view", nil, bob)
	require.Equal(t, http.StatusOK, status)
	groups = h.storyGroups(bob)
	require.Len(t, groups, 1)
	assert.True(t, groups[0].AllViewed)

	h.clock.Advance(2 * time.Minute)
	assert.Empty(t, h.storyGroups(bob))

	status, env := h.request(http.MethodGet, "/api/v1/stories/"+storyID, nil, bob)
	assert.Equal(t, http.StatusGone, status)
	assert.Equal(t, "GONE", env.Error.Code)

	status, _ = h.request(http.MethodDelete, "/api/v1/stories", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = h.request(http.MethodDelete, "/api/v1/stories", nil, nil, "X-Admin-Token", "wrong")
	assert.Equal(t, http.StatusForbidden, status)

	status, env = h.request(http.MethodDelete, "/api/v1/stories", nil, nil, "X-Admin-Token", adminToken)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, decode[struct {
		Deleted int `json:"deleted"`
	}](t, env).Deleted)

	status, _ = h.request(http.MethodGet, "/api/v1/stories/"+storyID, nil, bob)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestStoryViewersAndReplies(t *testing.T) {
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")
	storyID := h.createStory(alice, "lunch")

	status, _ := h.request(http.MethodPost, "/api/v1/stories/"+storyID+"/view", nil, bob)
	require.Equal(t, http.StatusOK, status)

	status, _ = h.request(http.MethodGet, "/api/v1/stories/"+storyID+"/view", nil, bob)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := h.request(http.MethodGet, "/api/v1/stories/"+storyID+"/view", nil, alice)
	require.Equal(t, http.StatusOK, status)
	viewers := decode[struct {
		Viewers []struct {
			User models.UserCompact `json:"user"`
		} `json:"viewers"`
		Count int `json:"count"`
	}](t, env)
	require.Equal(t, 1, viewers.Count)
	assert.Equal(t, bob.ID, viewers.Viewers[0].User.ID)

	status, env = h.request(http.MethodPost, "/api/v1/stories/"+storyID+"/reply", echo.Map{"content": "looks great"}, bob)
	require.Equal(t, http.StatusCreated, status)
	reply := decode[struct {
		ChatID  string         `json:"chat_id"`
		Message models.Message `json:"message"`
	}](t, env)
	assert.Equal(t, "Replied to your story: looks great", reply.Message.Content)
	assert.Equal(t, alice.ID, reply.Message.ReceiverID)

	status, chat := h.openChat(alice, bob)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, reply.ChatID, chat.ID)
	assert.Equal(t, int64(1), chat.UnreadCount)

	status, _ = h.request(http.MethodPost, "/api/v1/stories/"+storyID+"/reply", echo.Map{"content": "me"}, alice)
	assert.Equal(t, http.StatusBadRequest, status)
}

type pollView struct {
	Counts     []int `json:"counts"`
	TotalVotes int   `json:"total_votes"`
	MyVote     *int  `json:"my_vote"`
	Ended      bool  `json:"ended"`
}

func (h *harness) vote(u *models.User, postID string, option int) (int, pollView) {
	h.t.Helper()
	status, env := h.request(http.MethodPost, "/api/v1/posts/"+postID+"/vote", echo.Map{"option": option}, u)
	if status != http.StatusOK {
		return status, pollView{}
	}
	return status, decode[struct {
		Poll pollView `json:"poll"`
	}](h.t, env).Poll
}

func TestPollVoting(t *testing.T) {
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")

	endsAt := t0.Add(time.Hour)
	status, env := h.request(http.MethodPost, "/api/v1/posts", echo.Map{
		"type":    "poll",
		"content": "lunch?",
		"poll": echo.Map{
			"question": "Where to eat",
			"options":  []string{"Tacos", "Ramen"},
			"ends_at":  endsAt,
		},
	}, alice)
	require.Equal(t, http.StatusCreated, status, env.Error.Message)
	postID := decode[struct {
		Post struct {
			ID string `json:"id"`
		} `json:"post"`
	}](t, env).Post.ID

	status, _ = h.request(http.MethodDelete, "/api/v1/posts/"+postID+"/vote", nil, bob)
	assert.Equal(t, http.StatusBadRequest, status)

	status, poll := h.vote(bob, postID, 0)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []int{1, 0}, poll.Counts)

	status, poll = h.vote(bob, postID, 1)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []int{0, 1}, poll.Counts)
	require.NotNil(t, poll.MyVote)
	assert.Equal(t, 1, *poll.MyVote)

	status, _ = h.vote(bob, postID, 5)
	assert.Equal(t, http.StatusBadRequest, status)

	h.clock.Advance(2 * time.Hour)
	status, _ = h.vote(alice, postID, 0)
	assert.Equal(t, http.StatusConflict, status)
	status, _ = h.request(http.MethodDelete, "/api/v1/posts/"+postID+"/vote", nil, bob)
	assert.Equal(t, http.StatusConflict, status)

	status, env = h.request(http.MethodGet, "/api/v1/posts/"+postID, nil, bob)
	require.Equal(t, http.StatusOK, status)
	after := decode[struct {
		Post struct {
			Poll pollView `json:"poll"`
		} `json:"post"`
	}](t, env).Post.Poll
	assert.Equal(t, []int{0, 1}, after.Counts)
	assert.True(t, after.Ended)
}

func TestVoteOnPlainPost(t *testing.T) {
	h := newHarness(t)
	alice := h.user("Alice")

	status, env := h.request(http.MethodPost, "/api/v1/posts", echo.Map{"content": "hello"}, alice)
	require.Equal(t, http.StatusCreated, status)
	postID := decode[struct {
		Post struct {
			ID string `json:"id"`
		} `json:"post"`
	}](t, env).Post.ID

	status, _ = h.vote(alice, postID, 0)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestLikesAndComments(t *testing.T) {
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")

	status, env := h.request(http.MethodPost, "/api/v1/posts", echo.Map{"content": "first post"}, alice)
	require.Equal(t, http.StatusCreated, status)
	postID := decode[struct {
		Post struct {
			ID string `json:"id"`
		} `json:"post"`
	}](t, env).Post.ID

	status, _ = h.request(http.MethodPost, "/api/v1/posts/"+postID+"/likes", nil, bob)
	require.Equal(t, http.StatusCreated, status)
	status, env = h.request(http.MethodPost, "/api/v1/posts/"+postID+"/likes", nil, bob)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ALREADY_EXISTS", env.Error.Code)

	status, _ = h.request(http.MethodPost, "/api/v1/posts/"+postID+"/comments", echo.Map{"content": "nice"}, bob)
	require.Equal(t, http.StatusCreated, status)

	status, env = h.request(http.MethodGet, "/api/v1/notifications", nil, alice)
	require.Equal(t, http.StatusOK, status)
	notifications := decode[struct {
		Notifications []models.Notification `json:"notifications"`
	}](t, env).Notifications
	require.Len(t, notifications, 2)
	types := []string{notifications[0].Type, notifications[1].Type}
	assert.ElementsMatch(t, []string{models.NotificationLike, models.NotificationComment}, types)
}

func TestNotificationsMarkRead(t *testing.T) {
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")

	var ids []uint
	for i := 0; i < 3; i++ {
		status, env := h.request(http.MethodPost, "/api/v1/notifications", echo.Map{
			"recipient_id": bob.ID,
			"type":         "custom",
			"content":      "ping " + strconv.Itoa(i),
		}, alice)
		require.Equal(t, http.StatusCreated, status)
		ids = append(ids, decode[struct {
			Notification models.Notification `json:"notification"`
		}](t, env).Notification.ID)
		h.clock.Advance(time.Second)
	}

	status, _ := h.request(http.MethodPost, "/api/v1/notifications", echo.Map{
		"recipient_id": alice.ID, "type": "custom", "content": "me",
	}, alice)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env := h.request(http.MethodPatch, "/api/v1/notifications", echo.Map{"id": ids[0]}, alice)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)

	status, env = h.request(http.MethodPatch, "/api/v1/notifications", echo.Map{"id": ids[0]}, bob)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), decode[struct {
		Updated int64 `json:"updated"`
	}](t, env).Updated)

	status, env = h.request(http.MethodGet, "/api/v1/notifications", nil, bob)
	require.Equal(t, http.StatusOK, status)
	list := decode[struct {
		Notifications []models.Notification `json:"notifications"`
	}](t, env).Notifications
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID)

	status, env = h.request(http.MethodPatch, "/api/v1/notifications", nil, bob)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(2), decode[struct {
		Updated int64 `json:"updated"`
	}](t, env).Updated)
}

func TestPrivateFollowRequest(t *testing.T) {
	h := newHarness(t)
	alice := h.user("Alice", testutil.Private())
	bob := h.user("Bob")

	status, env := h.request(http.MethodPost, fmt.Sprintf("/api/v1/users/%d/follow", alice.ID), nil, bob)
	require.Equal(t, http.StatusAccepted, status)
	assert.Equal(t, map[string]bool{"following": false, "requested": true}, decode[map[string]bool](t, env))

	status, env = h.request(http.MethodGet, "/api/v1/follow-requests", nil, alice)
	require.Equal(t, http.StatusOK, status)
	requests := decode[struct {
		Requests []models.FollowRequest `json:"requests"`
	}](t, env).Requests
	require.Len(t, requests, 1)
	reqID := requests[0].ID

	status, _ = h.request(http.MethodPost, fmt.Sprintf("/api/v1/follow-requests/%d/accept", reqID), nil, bob)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = h.request(http.MethodPost, fmt.Sprintf("/api/v1/follow-requests/%d/accept", reqID), nil, alice)
	require.Equal(t, http.StatusOK, status)
	status, _ = h.request(http.MethodPost, fmt.Sprintf("/api/v1/follow-requests/%d/decline", reqID), nil, alice)
	assert.Equal(t, http.StatusConflict, status)

	status, env = h.request(http.MethodGet, fmt.Sprintf("/api/v1/users/%d/followers", alice.ID), nil, alice)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, decode[struct {
		Count int `json:"count"`
	}](t, env).Count)
}

func signWebhook(t *testing.T, id string, ts time.Time, body []byte) string {
	t.Helper()
	mac := hmac.New(sha256.New, webhookKey)
	fmt.Fprintf(mac, "%s.%d.%s", id, ts.Unix(), body)
	return "v1," + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestIdentityWebhook(t *testing.T) {
	h := newHarness(t)
	body := []byte(`{"type":"user.created","data":{"id":"user_42","first_name":"Dana","last_name":"Scully","username":"DScully","image_url":"https://img.example.com/d.png"}}`)

	send := func(signature string) *httptest.ResponseRecorder {
		now := time.Now()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/identity", bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set("svix-id", "msg_1")
		req.Header.Set("svix-timestamp", strconv.FormatInt(now.Unix(), 10))
		if signature == "" {
			signature = signWebhook(t, "msg_1", now, body)
		}
		req.Header.Set("svix-signature", signature)
		rec := httptest.NewRecorder()
		h.e.ServeHTTP(rec, req)
		return rec
	}

	rec := send("v1,bm90IGEgc2lnbmF0dXJl")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send("")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var user models.User
	require.NoError(t, h.db.Where("external_id = ?", "user_42").First(&user).Error)
	assert.Equal(t, "Dana Scully", user.Name)
	require.NotNil(t, user.Username)
	assert.Equal(t, "dscully", *user.Username)

	// the upserted user can now authenticate
	status, _ := h.request(http.MethodGet, "/api/v1/profile", nil, &user)
	assert.Equal(t, http.StatusOK, status)
}

func TestUsernameUniqueness(t *testing.T) {
	h := newHarness(t)
	alice, bob := h.user("Alice"), h.user("Bob")

	status, _ := h.request(http.MethodPut, "/api/v1/profile", echo.Map{"username": "taken"}, alice)
	require.Equal(t, http.StatusOK, status)

	status, env := h.request(http.MethodPut, "/api/v1/profile", echo.Map{"username": "Taken"}, bob)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ALREADY_EXISTS", env.Error.Code)
	assert.Equal(t, "username is already taken", env.Error.Message)

	var stored models.User
	require.NoError(t, h.db.First(&stored, bob.ID).Error)
	require.NotNil(t, stored.Username)
	assert.Equal(t, "bob", *stored.Username)
}

func TestIdentityWebhookUsernameCollision(t *testing.T) {
	h := newHarness(t)
	h.user("DScully")
	body := []byte(`{"type":"user.created","data":{"id":"user_77","first_name":"Dana","last_name":"Scully","username":"DScully"}}`)

	now := time.Now()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/identity", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("svix-id", "msg_2")
	req.Header.Set("svix-timestamp", strconv.FormatInt(now.Unix(), 10))
	req.Header.Set("svix-signature", signWebhook(t, "msg_2", now, body))
	rec := httptest.NewRecorder()
	h.e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var user models.User
	require.NoError(t, h.db.Where("external_id = ?", "user_77").First(&user).Error)
	assert.Equal(t, "Dana Scully", user.Name)
	assert.Nil(t, user.Username)
}
