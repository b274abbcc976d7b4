package models

import "time"

// Message is a direct message between two users. Only IsRead ever changes
// after insert, and only from false to true.
type Message struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	SenderID    uint      `gorm:"not null;index:idx_chat_sender" json:"sender_id"`
	ReceiverID  uint      `gorm:"not null;index:idx_chat_receiver" json:"receiver_id"`
	MessageText string    `gorm:"type:text;not null" json:"message_text"`
	IsRead      bool      `gorm:"not null;default:false" json:"is_read"`
	CreatedDate time.Time `gorm:"column:created_date;not null" json:"created_date"`
}

func (Message) TableName() string {
	return "chat_messages"
}

// MessageView is a Message plus display fields joined from tbl_users. The
// joined fields are never part of the stored record.
type MessageView struct {
	Message
	SenderUsername    string `json:"sender_username"`
	SenderFirstName   string `json:"sender_first_name"`
	SenderLastName    string `json:"sender_last_name"`
	ReceiverUsername  string `json:"receiver_username"`
	ReceiverFirstName string `json:"receiver_first_name"`
	ReceiverLastName  string `json:"receiver_last_name"`
}

// ConversationSummary is one row of a user's conversation list.
type ConversationSummary struct {
	ContactID       uint      `json:"id"`
	Username        string    `json:"username"`
	FirstName       string    `json:"first_name"`
	LastName        string    `json:"last_name"`
	EmailID         string    `json:"email_id"`
	LastMessageID   uint      `json:"last_message_id"`
	LastMessage     string    `json:"last_message"`
	LastMessageDate time.Time `json:"last_message_date"`
	UnreadCount     int64     `json:"unread_count"`
}
