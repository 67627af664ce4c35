package websocket

import (
	"context"
	"time"

	"localhub/internal/domain/entity"
	"localhub/internal/infrastructure/ratelimit"
	"localhub/pkg/logger"
)

// ChatService is the slice of chat behavior the session protocol needs.
// Implemented by the chat usecase; declared here so the websocket layer does
// not depend on it.
type ChatService interface {
	ChatForParticipant(ctx context.Context, userID, chatID string) (*entity.Chat, error)
	ListChatIDs(ctx context.Context, userID string, limit int) ([]string, error)
	SendChatMessage(ctx context.Context, userID string, in SendMessageData) (*entity.Message, error)
	EditChatMessage(ctx context.Context, userID, messageID, newContent string) (*entity.Message, error)
	DeleteChatMessage(ctx context.Context, userID, messageID string) (*entity.Message, error)
	ReactToMessage(ctx context.Context, userID, messageID, emoji string) (*entity.Message, error)
	MarkChatRead(ctx context.Context, userID, chatID string) error
}

// autoJoinChatLimit bounds how many chat rooms a connection is auto-joined to
// at handshake time.
const autoJoinChatLimit = 100

// Manager ties the presence registry, the room router and the session
// protocol together for all live connections of this process.
type Manager struct {
	registry    *Registry
	hub         *Hub
	chats       ChatService
	rateLimiter *ratelimit.RateLimiter
}

func NewManager() *Manager {
	limiter := ratelimit.NewRateLimiter()
	limiter.StartCleanupRoutine()
	return &Manager{
		registry:    NewRegistry(),
		hub:         NewHub(),
		rateLimiter: limiter,
	}
}

// SetChatService wires the chat usecase in after construction; the usecase
// itself needs the manager for broadcasting.
func (m *Manager) SetChatService(s ChatService) {
	m.chats = s
}

func (m *Manager) Registry() *Registry {
	return m.registry
}

// RateLimiter exposes the shared per-user limiter so the usecase layer can
// throttle writes arriving over REST with the same buckets as the socket.
func (m *Manager) RateLimiter() *ratelimit.RateLimiter {
	return m.rateLimiter
}

// Connect registers a new connection: presence, personal room, and one room
// per chat the user participates in.
func (m *Manager) Connect(ctx context.Context, c *Client, username, avatarURL string) {
	cameOnline := m.registry.Register(c, username, avatarURL)
	m.hub.Join(c, userRoom(c.UserID))

	if m.chats != nil {
		chatIDs, err := m.chats.ListChatIDs(ctx, c.UserID, autoJoinChatLimit)
		if err != nil {
			logger.Warn("Failed to auto-join chat rooms for user %s: %v", c.UserID, err)
		} else {
			for _, chatID := range chatIDs {
				m.hub.Join(c, chatRoom(chatID))
			}
		}
	}

	logger.Info("Client connected: user=%s conn=%s", c.UserID, c.ID)
	if cameOnline {
		m.broadcastStatus(c.UserID, "online")
	}
}

// Disconnect tears a connection down. Room membership vanishes with the
// connection; an offline event goes out only when the last connection of the
// user closes.
func (m *Manager) Disconnect(c *Client) {
	m.hub.DropConnection(c)
	wasLast := m.registry.Unregister(c)
	c.shutdown()

	logger.Info("Client disconnected: user=%s conn=%s", c.UserID, c.ID)
	if wasLast {
		m.broadcastStatus(c.UserID, "offline")
	}
}

// BroadcastToChat fans an event out to every connection joined to the chat's
// room, excluding except when non-nil.
func (m *Manager) BroadcastToChat(chatID, event string, data interface{}, except *Client) {
	payload, err := marshalEvent(event, data)
	if err != nil {
		logger.Error("Failed to marshal %s event for chat %s: %v", event, chatID, err)
		return
	}
	m.hub.Broadcast(chatRoom(chatID), payload, except)
}

// BroadcastToChatExceptUser fans an event out to the chat room, skipping every
// connection owned by the given user. Used for message fanout so the sender is
// not echoed their own message.
func (m *Manager) BroadcastToChatExceptUser(chatID, event string, data interface{}, exceptUserID string) {
	payload, err := marshalEvent(event, data)
	if err != nil {
		logger.Error("Failed to marshal %s event for chat %s: %v", event, chatID, err)
		return
	}
	m.hub.BroadcastExceptUser(chatRoom(chatID), payload, exceptUserID)
}

// SendToUser delivers an event to every connection of the user via their
// personal room.
func (m *Manager) SendToUser(userID, event string, data interface{}) {
	payload, err := marshalEvent(event, data)
	if err != nil {
		logger.Error("Failed to marshal %s event for user %s: %v", event, userID, err)
		return
	}
	m.hub.Broadcast(userRoom(userID), payload, nil)
}

// IsOnline reports whether the user has at least one live connection.
func (m *Manager) IsOnline(userID string) bool {
	return m.registry.IsOnline(userID)
}

// broadcastStatus announces a presence transition to all connected clients.
// The scope is deliberately coarse; chat participants always receive at least
// the information they need.
func (m *Manager) broadcastStatus(userID, presenceStatus string) {
	payload, err := marshalEvent(EventStatusChanged, StatusChangedData{
		UserID:    userID,
		Status:    presenceStatus,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		logger.Error("Failed to marshal status event for user %s: %v", userID, err)
		return
	}

	m.registry.eachClient(func(c *Client) {
		c.enqueue(payload)
	})
}

func (m *Manager) sendToClient(c *Client, event string, data interface{}) {
	payload, err := marshalEvent(event, data)
	if err != nil {
		logger.Error("Failed to marshal %s event for conn %s: %v", event, c.ID, err)
		return
	}

	if !c.enqueue(payload) {
		logger.Warn("Dropping %s for user %s conn %s: buffer full or connection closed", event, c.UserID, c.ID)
	}
}

func chatRoom(chatID string) string {
	return "chat:" + chatID
}

func userRoom(userID string) string {
	return "user:" + userID
}
