package services

import (
	"context"

	"github.com/ravimech476/BE/internal/models"
	apperr "github.com/ravimech476/BE/pkg/errors"
)

// ChatService is the single send path shared by the live gateway and the
// polling API, so both produce the same persisted record.
type ChatService struct {
	messages *MessageStore
	users    *UserService
}

func NewChatService(messages *MessageStore, users *UserService) *ChatService {
	return &ChatService{messages: messages, users: users}
}

// Send validates the request, checks the receiver exists and appends the
// message. Self-addressed messages are rejected.
func (s *ChatService) Send(ctx context.Context, senderID, receiverID uint, text string) (*models.MessageView, error) {
	if receiverID == 0 {
		return nil, apperr.Validation("Receiver ID and message text are required")
	}

	text, err := NormalizeMessageText(text)
	if err != nil {
		return nil, err
	}

	if senderID == receiverID {
		return nil, apperr.Validation("Cannot send a message to yourself")
	}

	if _, err := s.users.FindByID(ctx, receiverID); err != nil {
		if apperr.StatusOf(err) == apperr.ErrNotFound.Code {
			return nil, apperr.NotFound("Receiver not found")
		}
		return nil, err
	}

	return s.messages.Append(ctx, senderID, receiverID, text)
}

// MarkAsRead marks everything senderID sent to readerID as read.
func (s *ChatService) MarkAsRead(ctx context.Context, readerID, senderID uint) (int64, error) {
	if senderID == 0 {
		return 0, apperr.Validation("sender_id is required")
	}
	return s.messages.MarkAsRead(ctx, readerID, senderID)
}
