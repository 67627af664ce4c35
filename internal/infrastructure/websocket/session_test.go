package websocket

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"localhub/internal/domain/entity"
	"localhub/pkg/errors"
)

// fakeChatService satisfies ChatService with canned participation data.
type fakeChatService struct {
	chats       map[string]*entity.Chat
	userChats   map[string][]string
	markedRead  []string
	markReadErr error
	sent        []SendMessageData
}

func newFakeChatService() *fakeChatService {
	return &fakeChatService{
		chats:     map[string]*entity.Chat{},
		userChats: map[string][]string{},
	}
}

func (f *fakeChatService) addChat(chatID string, userIDs ...string) {
	chat := &entity.Chat{ID: chatID, Status: entity.ChatStatusActive}
	for i, uid := range userIDs {
		role := entity.RoleCustomer
		if i > 0 {
			role = entity.RoleVendor
		}
		chat.Participants = append(chat.Participants, entity.ChatParticipant{UserID: uid, Role: role})
		f.userChats[uid] = append(f.userChats[uid], chatID)
	}
	f.chats[chatID] = chat
}

func (f *fakeChatService) ChatForParticipant(ctx context.Context, userID, chatID string) (*entity.Chat, error) {
	chat, ok := f.chats[chatID]
	if !ok {
		return nil, errors.NotFound("Chat", nil)
	}
	if !chat.IsParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant of this chat", nil)
	}
	return chat, nil
}

func (f *fakeChatService) ListChatIDs(ctx context.Context, userID string, limit int) ([]string, error) {
	ids := f.userChats[userID]
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (f *fakeChatService) SendChatMessage(ctx context.Context, userID string, in SendMessageData) (*entity.Message, error) {
	if _, err := f.ChatForParticipant(ctx, userID, in.ChatID); err != nil {
		return nil, err
	}
	f.sent = append(f.sent, in)
	return &entity.Message{ID: "m1", ChatID: in.ChatID, SenderID: userID, Content: in.Content}, nil
}

func (f *fakeChatService) EditChatMessage(ctx context.Context, userID, messageID, newContent string) (*entity.Message, error) {
	return nil, errors.NotFound("Message", nil)
}

func (f *fakeChatService) DeleteChatMessage(ctx context.Context, userID, messageID string) (*entity.Message, error) {
	return nil, errors.NotFound("Message", nil)
}

func (f *fakeChatService) ReactToMessage(ctx context.Context, userID, messageID, emoji string) (*entity.Message, error) {
	return nil, errors.NotFound("Message", nil)
}

func (f *fakeChatService) MarkChatRead(ctx context.Context, userID, chatID string) error {
	if f.markReadErr != nil {
		return f.markReadErr
	}
	f.markedRead = append(f.markedRead, chatID+":"+userID)
	return nil
}

func event(t *testing.T, name string, data interface{}) []byte {
	t.Helper()
	payload, err := json.Marshal(data)
	assert.NoError(t, err)
	raw, err := json.Marshal(Envelope{Event: name, Data: payload})
	assert.NoError(t, err)
	return raw
}

func decodeEvents(t *testing.T, c *Client) []Envelope {
	t.Helper()
	var out []Envelope
	for _, raw := range drain(c) {
		var env Envelope
		assert.NoError(t, json.Unmarshal(raw, &env))
		out = append(out, env)
	}
	return out
}

func eventNames(envs []Envelope) []string {
	names := make([]string, 0, len(envs))
	for _, e := range envs {
		names = append(names, e.Event)
	}
	return names
}

func TestConnectAutoJoinsRoomsAndAnnouncesOnline(t *testing.T) {
	m := NewManager()
	svc := newFakeChatService()
	svc.addChat("chat-1", "alice", "bob")
	m.SetChatService(svc)

	c := newTestClient("c1", "alice")
	m.Connect(context.Background(), c, "Alice", "")

	assert.True(t, m.hub.InRoom(c, "chat:chat-1"))
	assert.True(t, m.hub.InRoom(c, "user:alice"))
	assert.True(t, m.IsOnline("alice"))

	// The connecting client itself receives the coarse status broadcast.
	names := eventNames(decodeEvents(t, c))
	assert.Contains(t, names, EventStatusChanged)
}

func TestJoinChatRequiresParticipation(t *testing.T) {
	m := NewManager()
	svc := newFakeChatService()
	svc.addChat("chat-1", "alice", "bob")
	m.SetChatService(svc)

	intruder := newTestClient("c1", "mallory")
	m.HandleEvent(intruder, event(t, EventJoinChat, JoinChatData{ChatID: "chat-1"}))

	envs := decodeEvents(t, intruder)
	if assert.Len(t, envs, 1) {
		assert.Equal(t, EventChatError, envs[0].Event)
		var data ErrorData
		assert.NoError(t, json.Unmarshal(envs[0].Data, &data))
		assert.Equal(t, "FORBIDDEN", data.Code)
	}
	assert.False(t, m.hub.InRoom(intruder, "chat:chat-1"))
	assert.Empty(t, svc.markedRead, "a rejected join must not mutate read state")
}

func TestJoinChatMarksReadAndNotifiesRoom(t *testing.T) {
	m := NewManager()
	svc := newFakeChatService()
	svc.addChat("chat-1", "alice", "bob")
	m.SetChatService(svc)

	bob := newTestClient("c-bob", "bob")
	m.hub.Join(bob, "chat:chat-1")

	alice := newTestClient("c-alice", "alice")
	m.HandleEvent(alice, event(t, EventJoinChat, JoinChatData{ChatID: "chat-1"}))

	assert.True(t, m.hub.InRoom(alice, "chat:chat-1"))
	assert.Equal(t, []string{"chat-1:alice"}, svc.markedRead)

	assert.Contains(t, eventNames(decodeEvents(t, alice)), EventChatJoined)
	assert.Contains(t, eventNames(decodeEvents(t, bob)), EventUserJoined)
}

func TestJoinChatSurfacesMarkReadFailure(t *testing.T) {
	m := NewManager()
	svc := newFakeChatService()
	svc.addChat("chat-1", "alice", "bob")
	svc.markReadErr = errors.Internal("Failed to mark messages read", nil)
	m.SetChatService(svc)

	alice := newTestClient("c-alice", "alice")
	m.HandleEvent(alice, event(t, EventJoinChat, JoinChatData{ChatID: "chat-1"}))

	// The join itself stands; the storage failure still reaches the caller.
	assert.True(t, m.hub.InRoom(alice, "chat:chat-1"))
	names := eventNames(decodeEvents(t, alice))
	assert.Contains(t, names, EventChatError)
	assert.Contains(t, names, EventChatJoined)
}

func TestUnknownEventAnswersCallerOnly(t *testing.T) {
	m := NewManager()
	svc := newFakeChatService()
	m.SetChatService(svc)

	caller := newTestClient("c1", "alice")
	bystander := newTestClient("c2", "bob")
	m.hub.Join(bystander, "chat:chat-1")

	m.HandleEvent(caller, event(t, "warp_drive", nil))

	envs := decodeEvents(t, caller)
	if assert.Len(t, envs, 1) {
		assert.Equal(t, EventChatError, envs[0].Event)
	}
	assert.Empty(t, drain(bystander))
}

func TestSendMessageErrorScopedToCaller(t *testing.T) {
	m := NewManager()
	svc := newFakeChatService()
	svc.addChat("chat-1", "alice", "bob")
	m.SetChatService(svc)

	mallory := newTestClient("c1", "mallory")
	m.HandleEvent(mallory, event(t, EventSendMsg, SendMessageData{ChatID: "chat-1", Content: "hi"}))

	envs := decodeEvents(t, mallory)
	if assert.Len(t, envs, 1) {
		assert.Equal(t, EventMessageError, envs[0].Event)
	}
	assert.Empty(t, svc.sent)
}

func TestTypingRequiresJoinedRoom(t *testing.T) {
	m := NewManager()
	svc := newFakeChatService()
	svc.addChat("chat-1", "alice", "bob")
	m.SetChatService(svc)

	alice := newTestClient("c-alice", "alice")
	bob := newTestClient("c-bob", "bob")
	m.hub.Join(bob, "chat:chat-1")

	// Not joined yet: rejected.
	m.HandleEvent(alice, event(t, EventTypingOn, TypingData{ChatID: "chat-1"}))
	envs := decodeEvents(t, alice)
	if assert.Len(t, envs, 1) {
		assert.Equal(t, EventChatError, envs[0].Event)
	}
	assert.Empty(t, drain(bob))

	// Joined: typing reaches the other member but not the typist.
	m.hub.Join(alice, "chat:chat-1")
	m.HandleEvent(alice, event(t, EventTypingOn, TypingData{ChatID: "chat-1"}))
	assert.Empty(t, drain(alice))
	bobEvents := decodeEvents(t, bob)
	if assert.Len(t, bobEvents, 1) {
		assert.Equal(t, EventUserTyping, bobEvents[0].Event)
		var data TypingData
		assert.NoError(t, json.Unmarshal(bobEvents[0].Data, &data))
		assert.Equal(t, "alice", data.UserID)
	}
}

func TestDisconnectAnnouncesOfflineOnlyOnLastConnection(t *testing.T) {
	m := NewManager()
	svc := newFakeChatService()
	m.SetChatService(svc)

	phone := newTestClient("c1", "alice")
	laptop := newTestClient("c2", "alice")
	watcher := newTestClient("c3", "bob")

	m.Connect(context.Background(), phone, "Alice", "")
	m.Connect(context.Background(), laptop, "Alice", "")
	m.Connect(context.Background(), watcher, "Bob", "")
	drain(watcher)

	m.Disconnect(phone)
	assert.True(t, m.IsOnline("alice"))
	assert.Empty(t, decodeEvents(t, watcher), "no offline event while a connection remains")

	m.Disconnect(laptop)
	assert.False(t, m.IsOnline("alice"))

	envs := decodeEvents(t, watcher)
	if assert.Len(t, envs, 1) {
		assert.Equal(t, EventStatusChanged, envs[0].Event)
		var data StatusChangedData
		assert.NoError(t, json.Unmarshal(envs[0].Data, &data))
		assert.Equal(t, "alice", data.UserID)
		assert.Equal(t, "offline", data.Status)
	}
}
