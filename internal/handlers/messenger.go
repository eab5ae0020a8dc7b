package handlers

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/anonto42/nano-social/backend/internal/models"
	"github.com/anonto42/nano-social/backend/internal/realtime"
	"github.com/anonto42/nano-social/backend/internal/repositories"
	"github.com/anonto42/nano-social/backend/pkg/apperrors"
	"github.com/anonto42/nano-social/backend/pkg/clock"
)

// Messenger holds the chat write path shared by direct messages and story replies.
type Messenger struct {
	chats     repositories.ChatRepository
	users     repositories.UserRepository
	blocks    repositories.BlockRepository
	notifier  *Notifier
	publisher realtime.Publisher
	clock     clock.Clock
}

func NewMessenger(
	chats repositories.ChatRepository,
	users repositories.UserRepository,
	blocks repositories.BlockRepository,
	notifier *Notifier,
	publisher realtime.Publisher,
	clk clock.Clock,
) *Messenger {
	return &Messenger{
		chats:     chats,
		users:     users,
		blocks:    blocks,
		notifier:  notifier,
		publisher: publisher,
		clock:     clk,
	}
}

// OpenChat is create-or-get for the (self, other) pair.
func (m *Messenger) OpenChat(ctx context.Context, self *models.User, otherID uint) (*models.Chat, bool, error) {
	if otherID == self.ID {
		return nil, false, apperrors.InvalidArg("you cannot start a chat with yourself")
	}
	if _, err := m.users.GetUserByID(ctx, otherID); err != nil {
		return nil, false, err
	}
	blocked, err := m.blocks.IsBlockedEither(ctx, self.ID, otherID)
	if err != nil {
		return nil, false, err
	}
	if blocked {
		return nil, false, apperrors.ErrBlocked
	}
	return m.chats.CreateOrGetChat(ctx, self.ID, otherID, m.clock.Now())
}

// LoadChat returns the chat if userID participates in it.
func (m *Messenger) LoadChat(ctx context.Context, chatID string, userID uint) (*models.Chat, error) {
	chat, err := m.chats.GetChatByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !chat.HasParticipant(userID) {
		return nil, apperrors.ErrNotParticipant
	}
	return chat, nil
}

// Send appends a message from sender to the other participant, records one
// notification of notifType for the receiver and pushes the message to both sides.
func (m *Messenger) Send(ctx context.Context, chat *models.Chat, sender *models.User, content, msgType, notifType string) (*models.Message, error) {
	receiverID, found := chat.OtherParticipant(sender.ID)
	if !found {
		return nil, apperrors.ErrNotParticipant
	}
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	msg := &models.Message{
		ChatID:     chat.ID,
		SenderID:   sender.ID,
		ReceiverID: receiverID,
		Content:    content,
		Type:       msgType,
		CreatedAt:  m.clock.Now(),
	}
	if err := m.chats.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	chatID := chat.ID
	m.notifier.Notify(ctx, &models.Notification{
		Type:        notifType,
		ActorID:     sender.ID,
		RecipientID: receiverID,
		ChatID:      &chatID,
		Content:     notificationText(sender, msg, notifType),
		CreatedAt:   msg.CreatedAt,
	})

	ev := realtime.Event{Type: realtime.EventMessageCreated, Data: msg}
	m.publisher.Publish(receiverID, ev)
	m.publisher.Publish(sender.ID, ev)
	return msg, nil
}

func notificationText(sender *models.User, msg *models.Message, notifType string) string {
	if notifType == models.NotificationStoryReply {
		return fmt.Sprintf("%s replied to your story", sender.DisplayName())
	}
	if msg.Type == models.MessageTypeImage {
		return fmt.Sprintf("%s sent you a photo", sender.DisplayName())
	}
	return fmt.Sprintf("%s: %s", sender.DisplayName(), preview(msg.Content, 80))
}

func preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
