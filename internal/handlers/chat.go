package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"github.com/ravimech476/BE/internal/middleware"
	"github.com/ravimech476/BE/internal/models"
	"github.com/ravimech476/BE/internal/presence"
	"github.com/ravimech476/BE/internal/services"
	apperr "github.com/ravimech476/BE/pkg/errors"
)

// ChatHandler is the polling surface over the message store. It never
// pushes; recipients pick messages up on their next poll.
type ChatHandler struct {
	chat     *services.ChatService
	store    *services.MessageStore
	users    *services.UserService
	presence *presence.Registry
	lookback time.Duration
	now      func() time.Time
}

func NewChatHandler(chat *services.ChatService, store *services.MessageStore, users *services.UserService, registry *presence.Registry, lookback time.Duration) *ChatHandler {
	return &ChatHandler{
		chat:     chat,
		store:    store,
		users:    users,
		presence: registry,
		lookback: lookback,
		now:      time.Now,
	}
}

type sendMessageRequest struct {
	ReceiverID  uint   `json:"receiver_id"`
	MessageText string `json:"message_text"`
}

// DirectoryUser is a user listing entry with live presence.
type DirectoryUser struct {
	models.PublicUser
	IsOnline bool `json:"is_online"`
}

// SendMessage handles POST /chat/messages.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ReceiverID == 0 || req.MessageText == "" {
		_ = c.Error(apperr.Validation("Receiver ID and message text are required"))
		return
	}

	msg, err := h.chat.Send(c.Request.Context(), middleware.CurrentUserID(c), req.ReceiverID, req.MessageText)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"success": true, "message": msg})
}

// GetConversation handles GET /chat/conversations/:contactId. Opening a
// conversation marks the contact's messages as read.
func (h *ChatHandler) GetConversation(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	contactID, err := contactParam(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	limit := services.DefaultConversationLimit
	if raw := c.Query("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			_ = c.Error(apperr.Validation("limit must be a positive integer"))
			return
		}
	}

	messages, err := h.store.GetConversation(c.Request.Context(), userID, contactID, limit)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.markRead(c, userID, contactID)

	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
}

// GetConversations handles GET /chat/conversations.
func (h *ChatHandler) GetConversations(c *gin.Context) {
	conversations, err := h.store.GetUserConversations(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "conversations": conversations})
}

// GetUnreadCount handles GET /chat/unread-count.
func (h *ChatHandler) GetUnreadCount(c *gin.Context) {
	count, err := h.store.GetUnreadCount(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "unread_count": count})
}

// Poll handles GET /chat/poll/:contactId?since=RFC3339. Without since it
// looks back a few seconds to cover the gap between poll cycles.
func (h *ChatHandler) Poll(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	contactID, err := contactParam(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	since := h.now().Add(-h.lookback)
	if raw := c.Query("since"); raw != "" {
		since, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			_ = c.Error(apperr.Validation("since must be an ISO 8601 timestamp"))
			return
		}
	}

	messages, err := h.store.GetNewSince(c.Request.Context(), userID, contactID, since)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if len(messages) > 0 {
		h.markRead(c, userID, contactID)
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
}

// ListUsers handles GET /chat/users: every active user but the caller,
// flagged with live presence.
func (h *ChatHandler) ListUsers(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	users, err := h.users.ListActive(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	others := lo.Filter(users, func(u models.User, _ int) bool { return u.ID != userID })
	directory := lo.Map(others, func(u models.User, _ int) DirectoryUser {
		return DirectoryUser{PublicUser: u.Public(), IsOnline: h.presence.IsOnline(u.ID)}
	})

	c.JSON(http.StatusOK, gin.H{"success": true, "users": directory})
}

// markRead is best effort; a failure leaves a stale unread badge only.
func (h *ChatHandler) markRead(c *gin.Context, readerID, senderID uint) {
	if _, err := h.chat.MarkAsRead(c.Request.Context(), readerID, senderID); err != nil {
		log := logFor(c)
		log.Warn().Err(err).
			Uint("reader_id", readerID).
			Uint("sender_id", senderID).
			Msg("Mark as read failed")
	}
}

func contactParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("contactId"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("Invalid contact ID")
	}
	return uint(id), nil
}
