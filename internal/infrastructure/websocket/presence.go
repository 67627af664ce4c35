package websocket

import (
	"sync"
	"time"
)

// PresenceInfo is the cached display view of one online user.
type PresenceInfo struct {
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	LastSeenAt  time.Time `json:"last_seen_at"`
	Connections int       `json:"connections"`
}

type presenceEntry struct {
	username   string
	avatarURL  string
	lastSeenAt time.Time
	conns      map[string]*Client
}

// Registry is the process-local presence table: userID to live connections
// plus cached display info. A user is online while at least one connection is
// registered; the entry is destroyed when the last connection goes.
type Registry struct {
	mu    sync.RWMutex
	users map[string]*presenceEntry
}

func NewRegistry() *Registry {
	return &Registry{
		users: make(map[string]*presenceEntry),
	}
}

// Register associates a connection with its user. It reports whether this is
// the user's first live connection (the offline-to-online transition).
func (r *Registry) Register(c *Client, username, avatarURL string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.users[c.UserID]
	if !ok {
		entry = &presenceEntry{
			conns: make(map[string]*Client),
		}
		r.users[c.UserID] = entry
	}

	entry.username = username
	entry.avatarURL = avatarURL
	entry.lastSeenAt = time.Now()
	entry.conns[c.ID] = c

	return !ok
}

// Unregister removes a connection. It reports whether this was the user's
// last connection (the online-to-offline transition).
func (r *Registry) Unregister(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.users[c.UserID]
	if !ok {
		return false
	}

	delete(entry.conns, c.ID)
	if len(entry.conns) == 0 {
		delete(r.users, c.UserID)
		return true
	}

	entry.lastSeenAt = time.Now()
	return false
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.users[userID]
	return ok
}

// Snapshot lists all online users with their cached display info. Used by the
// administrative read path only.
func (r *Registry) Snapshot() []PresenceInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := make([]PresenceInfo, 0, len(r.users))
	for userID, entry := range r.users {
		snapshot = append(snapshot, PresenceInfo{
			UserID:      userID,
			Username:    entry.username,
			AvatarURL:   entry.avatarURL,
			LastSeenAt:  entry.lastSeenAt,
			Connections: len(entry.conns),
		})
	}
	return snapshot
}

// eachClient invokes fn for every registered connection.
func (r *Registry) eachClient(fn func(*Client)) {
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.users))
	for _, entry := range r.users {
		for _, c := range entry.conns {
			clients = append(clients, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range clients {
		fn(c)
	}
}
