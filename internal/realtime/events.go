package realtime

import (
	"encoding/json"
	"fmt"
)

// Inbound event names.
const (
	EventSendMessage = "send_message"
	EventTyping      = "typing"
	EventMarkAsRead  = "mark_as_read"
)

// Outbound event names.
const (
	EventOnlineUsers  = "online_users"
	EventNewMessage   = "new_message"
	EventMessageSent  = "message_sent"
	EventUserTyping   = "user_typing"
	EventMessagesRead = "messages_read"
	EventError        = "error"
)

// Inbound is an event received on a live connection. Only the types in
// this file implement it, and Gateway.Dispatch switches over all of them.
type Inbound interface {
	inbound()
}

type SendMessage struct {
	ReceiverID  uint   `json:"receiver_id" validate:"required"`
	MessageText string `json:"message_text"`
}

type Typing struct {
	ReceiverID uint `json:"receiver_id" validate:"required"`
	IsTyping   bool `json:"isTyping"`
}

type MarkAsRead struct {
	SenderID uint `json:"sender_id" validate:"required"`
}

// Disconnect is synthesized by the transport when the connection closes.
type Disconnect struct {
	Reason string
}

func (SendMessage) inbound() {}
func (Typing) inbound()      {}
func (MarkAsRead) inbound()  {}
func (Disconnect) inbound()  {}

// Outbound payloads.
type TypingNotice struct {
	UserID   uint   `json:"userId"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type ReadNotice struct {
	ReaderID uint `json:"reader_id"`
}

type ErrorNotice struct {
	Message string `json:"message"`
}

// DecodeInbound turns a named JSON payload into its event type.
func DecodeInbound(name string, data json.RawMessage) (Inbound, error) {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}

	switch name {
	case EventSendMessage:
		var ev SendMessage
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return ev, nil
	case EventTyping:
		var ev Typing
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return ev, nil
	case EventMarkAsRead:
		var ev MarkAsRead
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("unknown event %q", name)
	}
}
