package handlers

import (
	"net/http"
	"strconv"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/realtime"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"github.com/labstack/echo/v4"
)

// ChatHandler handles one-to-one conversations and their messages
type ChatHandler struct {
	messenger      *Messenger
	chatRepository repositories.ChatRepository
}

func NewChatHandler(messenger *Messenger, chatRepo repositories.ChatRepository) *ChatHandler {
	return &ChatHandler{messenger: messenger, chatRepository: chatRepo}
}

func (h *ChatHandler) RegisterChatRoutes(g *echo.Group) {
	g.POST("/chats/create", h.CreateChat)
	g.GET("/chats", h.ListChats)
	g.GET("/chats/unread-count", h.GetUnreadCount)
	g.GET("/chats/:id", h.GetChat)
	g.GET("/chats/:id/messages", h.GetMessages)
	g.POST("/chats/:id/messages", h.SendMessage)
	g.PATCH("/chats/:id/read", h.MarkRead)
}

func (h *ChatHandler) summarize(c echo.Context, userID uint, chats []models.Chat) ([]models.ChatSummary, error) {
	ctx := c.Request().Context()
	ids := make([]string, len(chats))
	for i, chat := range chats {
		ids[i] = chat.ID
	}
	last, err := h.chatRepository.GetLastMessages(ctx, ids)
	if err != nil {
		return nil, err
	}
	unread, err := h.chatRepository.UnreadCounts(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.ChatSummary, len(chats))
	for i, chat := range chats {
		s := models.ChatSummary{
			ID:            chat.ID,
			Participants:  make([]models.UserCompact, 0, len(chat.Participants)),
			LastMessageAt: chat.LastMessageAt,
			UnreadCount:   unread[chat.ID],
		}
		for _, p := range chat.Participants {
			if p.User != nil {
				s.Participants = append(s.Participants, p.User.ToCompact())
			}
		}
		if msg, ok := last[chat.ID]; ok {
			s.LastMessage = &msg
		}
		out[i] = s
	}
	return out, nil
}

// CreateChat returns the caller's chat with user_id, creating it on first contact.
func (h *ChatHandler) CreateChat(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.CreateChatRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	chat, created, err := h.messenger.OpenChat(c.Request().Context(), user, req.UserID)
	if err != nil {
		return err
	}
	summaries, err := h.summarize(c, user.ID, []models.Chat{*chat})
	if err != nil {
		return err
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return ok(c, status, echo.Map{"chat": summaries[0], "created": created})
}

func (h *ChatHandler) ListChats(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	chats, err := h.chatRepository.ListChats(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	summaries, err := h.summarize(c, user.ID, chats)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"chats": summaries})
}

func (h *ChatHandler) GetChat(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	chat, err := h.messenger.LoadChat(c.Request().Context(), c.Param("id"), user.ID)
	if err != nil {
		return err
	}
	summaries, err := h.summarize(c, user.ID, []models.Chat{*chat})
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"chat": summaries[0]})
}

// GetMessages returns a page of messages in ascending order. ?before=<id>
// pages backwards from an older message.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	chat, err := h.messenger.LoadChat(c.Request().Context(), c.Param("id"), user.ID)
	if err != nil {
		return err
	}

	var before uint64
	if raw := c.QueryParam("before"); raw != "" {
		before, err = strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return apperrors.InvalidArg("invalid before")
		}
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 50
	}

	msgs, err := h.chatRepository.GetMessages(c.Request().Context(), chat.ID, uint(before), limit+1)
	if err != nil {
		return err
	}
	hasMore := len(msgs) > limit
	if hasMore {
		msgs = msgs[1:]
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return okWithMeta(c, http.StatusOK, echo.Map{"messages": msgs}, echo.Map{"has_more": hasMore})
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	var req models.SendMessageRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	chat, err := h.messenger.LoadChat(ctx, c.Param("id"), user.ID)
	if err != nil {
		return err
	}
	msg, err := h.messenger.Send(ctx, chat, user, req.Content, req.Type, models.NotificationMessage)
	if err != nil {
		return err
	}
	return ok(c, http.StatusCreated, echo.Map{"message": msg})
}

// MarkRead stamps every unread message addressed to the caller in this chat.
func (h *ChatHandler) MarkRead(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	chat, err := h.messenger.LoadChat(ctx, c.Param("id"), user.ID)
	if err != nil {
		return err
	}

	now := h.messenger.clock.Now()
	updated, err := h.chatRepository.MarkRead(ctx, chat.ID, user.ID, now)
	if err != nil {
		return err
	}
	if updated > 0 {
		if other, found := chat.OtherParticipant(user.ID); found {
			h.messenger.publisher.Publish(other, realtime.Event{
				Type: realtime.EventMessageRead,
				Data: echo.Map{"chat_id": chat.ID, "reader_id": user.ID, "read_at": now},
			})
		}
	}
	return ok(c, http.StatusOK, echo.Map{"updated": updated})
}

func (h *ChatHandler) GetUnreadCount(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return err
	}
	count, err := h.chatRepository.TotalUnread(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return ok(c, http.StatusOK, echo.Map{"count": count})
}
