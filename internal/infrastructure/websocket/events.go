package websocket

import (
	"encoding/json"
	"time"

	"localhub/internal/domain/entity"
)

// Client -> server events.
const (
	EventJoinChat   = "join_chat"
	EventLeaveChat  = "leave_chat"
	EventSendMsg    = "send_message"
	EventEditMsg    = "edit_message"
	EventDeleteMsg  = "delete_message"
	EventAddReact   = "add_reaction"
	EventTypingOn   = "typing_start"
	EventTypingOff  = "typing_stop"
	EventMarkRead   = "mark_messages_read"
)

// Server -> client events.
const (
	EventChatJoined    = "chat_joined"
	EventChatError     = "chat_error"
	EventNewMessage    = "new_message"
	EventMessageError  = "message_error"
	EventChatUpdated   = "chat_updated"
	EventMsgEdited     = "message_edited"
	EventMsgDeleted    = "message_deleted"
	EventReactionAdded = "reaction_added"
	EventUserJoined    = "user_joined_chat"
	EventUserLeft      = "user_left_chat"
	EventUserTyping    = "user_typing"
	EventUserStopped   = "user_stopped_typing"
	EventMessagesRead  = "messages_read"
	EventStatusChanged = "user_status_changed"
)

// Envelope is the wire format for both directions.
type Envelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp string          `json:"timestamp,omitempty"`
}

type JoinChatData struct {
	ChatID string `json:"chat_id"`
}

type SendMessageData struct {
	ChatID      string              `json:"chat_id"`
	Content     string              `json:"content"`
	MessageType string              `json:"message_type,omitempty"`
	ReplyTo     string              `json:"reply_to,omitempty"`
	Attachments []entity.Attachment `json:"attachments,omitempty"`
}

type EditMessageData struct {
	MessageID  string `json:"message_id"`
	NewContent string `json:"new_content"`
}

type DeleteMessageData struct {
	MessageID string `json:"message_id"`
}

type AddReactionData struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

type TypingData struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id,omitempty"`
}

type MarkReadData struct {
	ChatID string `json:"chat_id"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StatusChangedData struct {
	UserID    string `json:"user_id"`
	Status    string `json:"status"` // "online", "offline"
	Timestamp string `json:"timestamp"`
}

type MessagesReadData struct {
	ChatID string `json:"chat_id"`
	ReadBy string `json:"read_by"`
}

type ChatUpdatedData struct {
	ChatID       string    `json:"chat_id"`
	LastMessage  string    `json:"last_message"`
	LastActivity time.Time `json:"last_activity"`
}

// marshalEvent wraps an event payload in the wire envelope. A payload that
// fails to marshal is a programming error; the event is dropped and reported.
func marshalEvent(event string, data interface{}) ([]byte, error) {
	var raw json.RawMessage
	if data != nil {
		encoded, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}

	return json.Marshal(Envelope{
		Event:     event,
		Data:      raw,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
