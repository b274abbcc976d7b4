package services

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/ravimech476/BE/internal/models"
	apperr "github.com/ravimech476/BE/pkg/errors"
)

// Message length and paging limits
const (
	MaxMessageLength         = 8000
	DefaultConversationLimit = 50
	MaxConversationLimit     = 200
)

const viewColumns = `cm.id, cm.sender_id, cm.receiver_id, cm.message_text, cm.is_read, cm.created_date,
	sender.username AS sender_username, sender.first_name AS sender_first_name, sender.last_name AS sender_last_name,
	receiver.username AS receiver_username, receiver.first_name AS receiver_first_name, receiver.last_name AS receiver_last_name`

const pairCondition = `((cm.sender_id = ? AND cm.receiver_id = ?) OR (cm.sender_id = ? AND cm.receiver_id = ?))`

// NormalizeMessageText trims text and rejects blank or oversized input.
func NormalizeMessageText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperr.Validation("Message cannot be empty")
	}
	if utf8.RuneCountInString(text) > MaxMessageLength {
		return "", apperr.Validation("Message exceeds maximum length")
	}
	return text, nil
}

// MessageStore persists direct messages. It does not retry; a failed call
// surfaces as a storage AppError and the caller decides.
type MessageStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db, now: time.Now}
}

// WithClock swaps the timestamp source used for created_date.
func (s *MessageStore) WithClock(now func() time.Time) *MessageStore {
	s.now = now
	return s
}

func (s *MessageStore) views(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("chat_messages AS cm").
		Select(viewColumns).
		Joins("JOIN tbl_users sender ON sender.id = cm.sender_id").
		Joins("JOIN tbl_users receiver ON receiver.id = cm.receiver_id")
}

// Append stores a new unread message with created_date set to now.
func (s *MessageStore) Append(ctx context.Context, senderID, receiverID uint, text string) (*models.MessageView, error) {
	text, err := NormalizeMessageText(text)
	if err != nil {
		return nil, err
	}

	msg := models.Message{
		SenderID:    senderID,
		ReceiverID:  receiverID,
		MessageText: text,
		IsRead:      false,
		CreatedDate: s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return nil, apperr.Storage("Failed to send message", err)
	}

	var view models.MessageView
	res := s.views(ctx).Where("cm.id = ?", msg.ID).Scan(&view)
	if res.Error != nil {
		return nil, apperr.Storage("Failed to load message", res.Error)
	}
	if res.RowsAffected == 0 {
		// Participants missing from tbl_users; return the bare record.
		view = models.MessageView{Message: msg}
	}
	return &view, nil
}

// GetConversation returns the newest limit messages between a and b, oldest
// first.
func (s *MessageStore) GetConversation(ctx context.Context, userA, userB uint, limit int) ([]models.MessageView, error) {
	if limit <= 0 {
		return nil, apperr.Validation("limit must be a positive integer")
	}
	if limit > MaxConversationLimit {
		limit = MaxConversationLimit
	}

	messages := make([]models.MessageView, 0)
	err := s.views(ctx).
		Where(pairCondition, userA, userB, userB, userA).
		Order("cm.created_date DESC, cm.id DESC").
		Limit(limit).
		Scan(&messages).Error
	if err != nil {
		return nil, apperr.Storage("Failed to get conversation", err)
	}

	slices.Reverse(messages)
	return messages, nil
}

// GetNewSince returns every message between the pair created strictly after
// since, oldest first.
func (s *MessageStore) GetNewSince(ctx context.Context, userID, contactID uint, since time.Time) ([]models.MessageView, error) {
	messages := make([]models.MessageView, 0)
	err := s.views(ctx).
		Where(pairCondition, userID, contactID, contactID, userID).
		Where("cm.created_date > ?", since.UTC()).
		Order("cm.created_date ASC, cm.id ASC").
		Scan(&messages).Error
	if err != nil {
		return nil, apperr.Storage("Failed to poll messages", err)
	}
	return messages, nil
}

// MarkAsRead flips every unread senderID -> readerID message in one
// statement and returns how many rows changed.
func (s *MessageStore) MarkAsRead(ctx context.Context, readerID, senderID uint) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("receiver_id = ? AND sender_id = ? AND is_read = ?", readerID, senderID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, apperr.Storage("Failed to mark messages as read", res.Error)
	}
	return res.RowsAffected, nil
}

// GetUnreadCount counts unread messages addressed to userID from anyone.
func (s *MessageStore) GetUnreadCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Storage("Failed to get unread count", err)
	}
	return count, nil
}

type contactRow struct {
	ContactID uint
	LastID    uint
}

type unreadRow struct {
	SenderID uint
	Unread   int64
}

// latestPerContact ranks each counterparty's messages by created_date, then
// id, and keeps the top one.
const latestPerContact = `SELECT contact_id, id AS last_id FROM (
	SELECT id,
		CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END AS contact_id,
		ROW_NUMBER() OVER (
			PARTITION BY CASE WHEN sender_id = ? THEN receiver_id ELSE sender_id END
			ORDER BY created_date DESC, id DESC
		) AS rn
	FROM chat_messages
	WHERE sender_id = ? OR receiver_id = ?
) ranked WHERE rn = 1`

// GetUserConversations lists every active counterparty userID has exchanged
// messages with, newest conversation first.
func (s *MessageStore) GetUserConversations(ctx context.Context, userID uint) ([]models.ConversationSummary, error) {
	db := s.db.WithContext(ctx)

	var contacts []contactRow
	err := db.Raw(latestPerContact, userID, userID, userID, userID).Scan(&contacts).Error
	if err != nil {
		return nil, apperr.Storage("Failed to get conversations", err)
	}

	summaries := make([]models.ConversationSummary, 0, len(contacts))
	if len(contacts) == 0 {
		return summaries, nil
	}

	var lastMessages []models.Message
	lastIDs := lo.Map(contacts, func(c contactRow, _ int) uint { return c.LastID })
	if err := db.Where("id IN ?", lastIDs).Find(&lastMessages).Error; err != nil {
		return nil, apperr.Storage("Failed to get conversations", err)
	}
	byID := lo.KeyBy(lastMessages, func(m models.Message) uint { return m.ID })

	var users []models.User
	contactIDs := lo.Map(contacts, func(c contactRow, _ int) uint { return c.ContactID })
	if err := db.Where("id IN ? AND status = ?", contactIDs, models.StatusActive).Find(&users).Error; err != nil {
		return nil, apperr.Storage("Failed to get conversations", err)
	}
	usersByID := lo.KeyBy(users, func(u models.User) uint { return u.ID })

	var unread []unreadRow
	err = db.Model(&models.Message{}).
		Select("sender_id, COUNT(*) AS unread").
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Group("sender_id").
		Scan(&unread).Error
	if err != nil {
		return nil, apperr.Storage("Failed to get conversations", err)
	}
	unreadBySender := lo.SliceToMap(unread, func(r unreadRow) (uint, int64) { return r.SenderID, r.Unread })

	for _, c := range contacts {
		u, ok := usersByID[c.ContactID]
		if !ok {
			continue
		}
		last := byID[c.LastID]
		summaries = append(summaries, models.ConversationSummary{
			ContactID:       u.ID,
			Username:        u.Username,
			FirstName:       u.FirstName,
			LastName:        u.LastName,
			EmailID:         u.EmailID,
			LastMessage:     last.MessageText,
			LastMessageDate: last.CreatedDate,
			LastMessageID:   last.ID,
			UnreadCount:     unreadBySender[u.ID],
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].LastMessageDate.Equal(summaries[j].LastMessageDate) {
			return summaries[i].LastMessageID > summaries[j].LastMessageID
		}
		return summaries[i].LastMessageDate.After(summaries[j].LastMessageDate)
	})
	return summaries, nil
}
