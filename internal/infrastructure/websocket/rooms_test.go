package websocket

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case msg := <-c.Send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestHubBroadcastReachesMembersOnly(t *testing.T) {
	h := NewHub()

	member := newTestClient("c1", "alice")
	other := newTestClient("c2", "bob")
	outsider := newTestClient("c3", "carol")

	h.Join(member, "chat:1")
	h.Join(other, "chat:1")
	h.Join(outsider, "chat:2")

	h.Broadcast("chat:1", []byte("hello"), nil)

	assert.Len(t, drain(member), 1)
	assert.Len(t, drain(other), 1)
	assert.Empty(t, drain(outsider))
}

func TestHubBroadcastExcludesSenderConnection(t *testing.T) {
	h := NewHub()

	sender := newTestClient("c1", "alice")
	receiver := newTestClient("c2", "bob")
	h.Join(sender, "chat:1")
	h.Join(receiver, "chat:1")

	h.Broadcast("chat:1", []byte("x"), sender)

	assert.Empty(t, drain(sender))
	assert.Len(t, drain(receiver), 1)
}

func TestHubBroadcastExceptUserSkipsAllConnections(t *testing.T) {
	h := NewHub()

	phone := newTestClient("c1", "alice")
	laptop := newTestClient("c2", "alice")
	peer := newTestClient("c3", "bob")
	h.Join(phone, "chat:1")
	h.Join(laptop, "chat:1")
	h.Join(peer, "chat:1")

	h.BroadcastExceptUser("chat:1", []byte("x"), "alice")

	assert.Empty(t, drain(phone))
	assert.Empty(t, drain(laptop))
	assert.Len(t, drain(peer), 1)
}

func TestHubFullBufferDropsSilently(t *testing.T) {
	h := NewHub()

	slow := &Client{ID: "c1", UserID: "alice", Send: make(chan []byte, 1)}
	h.Join(slow, "chat:1")

	h.Broadcast("chat:1", []byte("first"), nil)
	h.Broadcast("chat:1", []byte("second"), nil)

	msgs := drain(slow)
	assert.Len(t, msgs, 1, "overflow must be dropped, not block")
	assert.Equal(t, "first", string(msgs[0]))
}

func TestHubLeaveAndDropConnection(t *testing.T) {
	h := NewHub()

	c := newTestClient("c1", "alice")
	h.Join(c, "chat:1")
	h.Join(c, "chat:2")

	h.Leave(c, "chat:1")
	assert.False(t, h.InRoom(c, "chat:1"))
	assert.True(t, h.InRoom(c, "chat:2"))

	h.DropConnection(c)
	assert.False(t, h.InRoom(c, "chat:2"))

	h.Broadcast("chat:2", []byte("x"), nil)
	assert.Empty(t, drain(c))
}

func TestHubMembershipIsPerConnection(t *testing.T) {
	h := NewHub()

	phone := newTestClient("c1", "alice")
	laptop := newTestClient("c2", "alice")
	h.Join(phone, "chat:1")
	h.Join(laptop, "chat:1")

	// Dropping one device must not evict the other.
	h.DropConnection(phone)
	assert.False(t, h.InRoom(phone, "chat:1"))
	assert.True(t, h.InRoom(laptop, "chat:1"))
}

func TestBroadcastToClosedConnectionDoesNotPanic(t *testing.T) {
	h := NewHub()

	stayer := newTestClient("c1", "alice")
	leaver := newTestClient("c2", "bob")
	h.Join(stayer, "chat:1")
	h.Join(leaver, "chat:1")

	// A broadcaster may act on a member snapshot taken before a disconnect
	// finished tearing the connection down; the send must be dropped, not
	// panic on the closed channel.
	leaver.shutdown()
	leaver.shutdown()

	assert.NotPanics(t, func() {
		h.Broadcast("chat:1", []byte("hi"), nil)
	})
	assert.Len(t, drain(stayer), 1)
}

func TestConcurrentBroadcastAndDisconnect(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		clients := make([]*Client, 0, 10)
		for i := 0; i < 10; i++ {
			c := newTestClient(fmt.Sprintf("conn-%d-%d", round, i), fmt.Sprintf("user-%d", i))
			m.Connect(ctx, c, "", "")
			m.hub.Join(c, "chat:busy")
			clients = append(clients, c)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				m.hub.Broadcast("chat:busy", []byte("x"), nil)
			}
		}()
		go func() {
			defer wg.Done()
			for _, c := range clients {
				m.Disconnect(c)
			}
		}()
		wg.Wait()
	}
}
