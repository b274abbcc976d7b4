package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperr "github.com/ravimech476/BE/pkg/errors"
)

func newChatService(t *testing.T) (*ChatService, *MessageStore) {
	store, _ := newStore(t)
	return NewChatService(store, NewUserService(store.db)), store
}

func TestChatService_Send(t *testing.T) {
	svc, _ := newChatService(t)

	msg, err := svc.Send(context.Background(), 7, 9, " hello ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.MessageText)
	assert.Equal(t, uint(7), msg.SenderID)
	assert.Equal(t, uint(9), msg.ReceiverID)
}

func TestChatService_SendErrors(t *testing.T) {
	svc, store := newChatService(t)
	ctx := context.Background()

	tests := []struct {
		name       string
		receiverID uint
		text       string
		status     int
	}{
		{"missing receiver", 0, "hi", http.StatusBadRequest},
		{"blank text", 9, "   ", http.StatusBadRequest},
		{"self send", 7, "hi me", http.StatusBadRequest},
		{"unknown receiver", 404, "hi", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Send(ctx, 7, tt.receiverID, tt.text)
			require.Error(t, err)
			assert.Equal(t, tt.status, apperr.StatusOf(err))
		})
	}

	count, err := store.GetUnreadCount(ctx, 9)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestChatService_MarkAsReadRequiresSender(t *testing.T) {
	svc, _ := newChatService(t)

	_, err := svc.MarkAsRead(context.Background(), 9, 0)
	assert.Equal(t, http.StatusBadRequest, apperr.StatusOf(err))
}
