package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestClient(id, userID string) *Client {
	return &Client{
		ID:     id,
		UserID: userID,
		Send:   make(chan []byte, 16),
	}
}

func TestRegistryFirstAndLastConnection(t *testing.T) {
	r := NewRegistry()

	c1 := newTestClient("conn-1", "alice")
	c2 := newTestClient("conn-2", "alice")

	assert.True(t, r.Register(c1, "Alice", ""), "first connection should report a status transition")
	assert.False(t, r.Register(c2, "Alice", ""), "second connection must not re-announce online")
	assert.True(t, r.IsOnline("alice"))

	assert.False(t, r.Unregister(c1), "user still has one live connection")
	assert.True(t, r.IsOnline("alice"))

	assert.True(t, r.Unregister(c2), "last connection closes the entry")
	assert.False(t, r.IsOnline("alice"))
}

func TestRegistryEntryDestroyedOnLastClose(t *testing.T) {
	r := NewRegistry()

	c := newTestClient("conn-1", "bob")
	r.Register(c, "Bob", "avatar.png")
	r.Unregister(c)

	assert.Empty(t, r.Snapshot(), "no entry should survive the last connection")

	// A fresh connect recreates the entry from scratch.
	c2 := newTestClient("conn-2", "bob")
	assert.True(t, r.Register(c2, "Bob", "avatar.png"))
}

func TestRegistrySnapshot(t *testing.T) {
	r := NewRegistry()

	r.Register(newTestClient("c1", "alice"), "Alice", "")
	r.Register(newTestClient("c2", "alice"), "Alice", "")
	r.Register(newTestClient("c3", "bob"), "Bob", "b.png")

	snapshot := r.Snapshot()
	assert.Len(t, snapshot, 2)

	byUser := map[string]PresenceInfo{}
	for _, info := range snapshot {
		byUser[info.UserID] = info
	}
	assert.Equal(t, 2, byUser["alice"].Connections)
	assert.Equal(t, 1, byUser["bob"].Connections)
	assert.Equal(t, "b.png", byUser["bob"].AvatarURL)
}
