package websocket

import (
	"context"
	"encoding/json"

	"localhub/pkg/errors"
	"localhub/pkg/logger"
)

// HandleEvent dispatches one client event. The event set is closed: every
// request event has a case here and anything else is answered with an error
// to the caller only.
func (m *Manager) HandleEvent(c *Client, raw []byte) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		m.sendError(c, EventChatError, errors.BadRequest("Invalid event format", err))
		return
	}

	switch envelope.Event {
	case EventJoinChat:
		m.handleJoinChat(c, envelope.Data)
	case EventLeaveChat:
		m.handleLeaveChat(c, envelope.Data)
	case EventSendMsg:
		m.handleSendMessage(c, envelope.Data)
	case EventEditMsg:
		m.handleEditMessage(c, envelope.Data)
	case EventDeleteMsg:
		m.handleDeleteMessage(c, envelope.Data)
	case EventAddReact:
		m.handleAddReaction(c, envelope.Data)
	case EventTypingOn:
		m.handleTyping(c, envelope.Data, true)
	case EventTypingOff:
		m.handleTyping(c, envelope.Data, false)
	case EventMarkRead:
		m.handleMarkRead(c, envelope.Data)
	default:
		logger.Warn("Unknown event %q from user %s", envelope.Event, c.UserID)
		m.sendError(c, EventChatError, errors.BadRequest("Unknown event: "+envelope.Event, nil))
	}
}

func (m *Manager) handleJoinChat(c *Client, raw json.RawMessage) {
	var data JoinChatData
	if err := json.Unmarshal(raw, &data); err != nil || data.ChatID == "" {
		m.sendError(c, EventChatError, errors.BadRequest("chat_id is required", err))
		return
	}

	ctx := context.Background()

	chat, err := m.chats.ChatForParticipant(ctx, c.UserID, data.ChatID)
	if err != nil {
		m.sendError(c, EventChatError, err)
		return
	}

	m.hub.Join(c, chatRoom(chat.ID))

	// Joining implies reading everything pending from the other side. The
	// join itself stands even when the read marking fails, but the caller
	// hears about the failure.
	if err := m.chats.MarkChatRead(ctx, c.UserID, chat.ID); err != nil {
		logger.Warn("Failed to mark chat %s read on join for user %s: %v", chat.ID, c.UserID, err)
		m.sendError(c, EventChatError, err)
	}

	m.sendToClient(c, EventChatJoined, map[string]interface{}{"chat": chat})
	m.BroadcastToChat(chat.ID, EventUserJoined, map[string]string{
		"chat_id": chat.ID,
		"user_id": c.UserID,
	}, c)
}

func (m *Manager) handleLeaveChat(c *Client, raw json.RawMessage) {
	var data JoinChatData
	if err := json.Unmarshal(raw, &data); err != nil || data.ChatID == "" {
		m.sendError(c, EventChatError, errors.BadRequest("chat_id is required", err))
		return
	}

	m.hub.Leave(c, chatRoom(data.ChatID))
	m.BroadcastToChat(data.ChatID, EventUserLeft, map[string]string{
		"chat_id": data.ChatID,
		"user_id": c.UserID,
	}, c)
}

func (m *Manager) handleSendMessage(c *Client, raw json.RawMessage) {
	var data SendMessageData
	if err := json.Unmarshal(raw, &data); err != nil {
		m.sendError(c, EventMessageError, errors.BadRequest("Invalid send_message payload", err))
		return
	}

	// Persistence, counters and the new_message/chat_updated fan-out all
	// happen in the usecase; only this caller's failure comes back here.
	if _, err := m.chats.SendChatMessage(context.Background(), c.UserID, data); err != nil {
		m.sendError(c, EventMessageError, err)
	}
}

func (m *Manager) handleEditMessage(c *Client, raw json.RawMessage) {
	var data EditMessageData
	if err := json.Unmarshal(raw, &data); err != nil || data.MessageID == "" {
		m.sendError(c, EventMessageError, errors.BadRequest("message_id is required", err))
		return
	}

	if _, err := m.chats.EditChatMessage(context.Background(), c.UserID, data.MessageID, data.NewContent); err != nil {
		m.sendError(c, EventMessageError, err)
	}
}

func (m *Manager) handleDeleteMessage(c *Client, raw json.RawMessage) {
	var data DeleteMessageData
	if err := json.Unmarshal(raw, &data); err != nil || data.MessageID == "" {
		m.sendError(c, EventMessageError, errors.BadRequest("message_id is required", err))
		return
	}

	if _, err := m.chats.DeleteChatMessage(context.Background(), c.UserID, data.MessageID); err != nil {
		m.sendError(c, EventMessageError, err)
	}
}

func (m *Manager) handleAddReaction(c *Client, raw json.RawMessage) {
	var data AddReactionData
	if err := json.Unmarshal(raw, &data); err != nil || data.MessageID == "" {
		m.sendError(c, EventMessageError, errors.BadRequest("message_id is required", err))
		return
	}

	if _, err := m.chats.ReactToMessage(context.Background(), c.UserID, data.MessageID, data.Emoji); err != nil {
		m.sendError(c, EventMessageError, err)
	}
}

func (m *Manager) handleTyping(c *Client, raw json.RawMessage, typing bool) {
	var data TypingData
	if err := json.Unmarshal(raw, &data); err != nil || data.ChatID == "" {
		m.sendError(c, EventChatError, errors.BadRequest("chat_id is required", err))
		return
	}

	// Excess typing events are silently dropped.
	if allowed, _ := m.rateLimiter.Allow(c.UserID, "typing"); !allowed {
		return
	}

	// Typing is ephemeral and never persisted; the connection must already
	// be joined to the room, which also proves participation.
	if !m.hub.InRoom(c, chatRoom(data.ChatID)) {
		m.sendError(c, EventChatError, errors.Forbidden("Join the chat before typing", nil))
		return
	}

	event := EventUserTyping
	if !typing {
		event = EventUserStopped
	}
	m.BroadcastToChat(data.ChatID, event, TypingData{ChatID: data.ChatID, UserID: c.UserID}, c)
}

func (m *Manager) handleMarkRead(c *Client, raw json.RawMessage) {
	var data MarkReadData
	if err := json.Unmarshal(raw, &data); err != nil || data.ChatID == "" {
		m.sendError(c, EventChatError, errors.BadRequest("chat_id is required", err))
		return
	}

	if err := m.chats.MarkChatRead(context.Background(), c.UserID, data.ChatID); err != nil {
		m.sendError(c, EventChatError, err)
	}
}

// sendError reports a failure to the calling connection only. Errors never
// mutate state and never affect other connections or rooms.
func (m *Manager) sendError(c *Client, event string, err error) {
	m.sendToClient(c, event, ErrorData{
		Code:    errors.CodeOf(err),
		Message: err.Error(),
	})
}
