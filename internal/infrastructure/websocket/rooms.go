package websocket

import "sync"

// Hub routes events to rooms: addressable broadcast groups of live
// connections. Membership is connection-scoped and is dropped wholesale when
// a connection closes, so no per-room cleanup is ever required elsewhere.
type Hub struct {
	mu sync.RWMutex
	// rooms: roomID -> connID -> client
	rooms map[string]map[string]*Client
	// memberships: connID -> set of roomIDs, for teardown on close
	memberships map[string]map[string]bool
}

func NewHub() *Hub {
	return &Hub{
		rooms:       make(map[string]map[string]*Client),
		memberships: make(map[string]map[string]bool),
	}
}

func (h *Hub) Join(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[roomID]
	if !ok {
		room = make(map[string]*Client)
		h.rooms[roomID] = room
	}
	room[c.ID] = c

	member, ok := h.memberships[c.ID]
	if !ok {
		member = make(map[string]bool)
		h.memberships[c.ID] = member
	}
	member[roomID] = true
}

func (h *Hub) Leave(c *Client, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leaveLocked(c, roomID)
}

func (h *Hub) leaveLocked(c *Client, roomID string) {
	if room, ok := h.rooms[roomID]; ok {
		delete(room, c.ID)
		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
	if member, ok := h.memberships[c.ID]; ok {
		delete(member, roomID)
		if len(member) == 0 {
			delete(h.memberships, c.ID)
		}
	}
}

// DropConnection removes the connection from every room it joined.
func (h *Hub) DropConnection(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for roomID := range h.memberships[c.ID] {
		if room, ok := h.rooms[roomID]; ok {
			delete(room, c.ID)
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	delete(h.memberships, c.ID)
}

// InRoom reports whether the connection is currently joined to the room.
func (h *Hub) InRoom(c *Client, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.memberships[c.ID][roomID]
}

// Broadcast delivers payload to every member of the room, excluding except
// when non-nil. Delivery is fire-and-forget: a member whose send buffer is
// full is skipped.
func (h *Hub) Broadcast(roomID string, payload []byte, except *Client) {
	h.broadcast(roomID, payload, func(c *Client) bool {
		return except != nil && c.ID == except.ID
	})
}

// BroadcastExceptUser delivers payload to every member of the room except all
// connections of the given user.
func (h *Hub) BroadcastExceptUser(roomID string, payload []byte, exceptUserID string) {
	h.broadcast(roomID, payload, func(c *Client) bool {
		return c.UserID == exceptUserID
	})
}

func (h *Hub) broadcast(roomID string, payload []byte, skip func(*Client) bool) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[roomID]))
	for _, c := range h.rooms[roomID] {
		if skip(c) {
			continue
		}
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		c.enqueue(payload)
	}
}
