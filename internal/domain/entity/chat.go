package entity

import "time"

const (
	ChatTypeDirect  = "direct"
	ChatTypeSupport = "support"

	ChatStatusActive   = "active"
	ChatStatusClosed   = "closed"
	ChatStatusArchived = "archived"

	RoleCustomer = "customer"
	RoleVendor   = "vendor"
)

type ChatParticipant struct {
	UserID     string    `json:"user_id" firestore:"userId"`
	Role       string    `json:"role" firestore:"role"` // "customer" or "vendor"
	LastReadAt time.Time `json:"last_read_at" firestore:"lastReadAt"`
}

// UnreadCount tracks pending messages per participant role. It is a coarse
// counter: incremented by one per send, reset to zero on mark-read.
type UnreadCount struct {
	Customer int `json:"customer" firestore:"customer"`
	Vendor   int `json:"vendor" firestore:"vendor"`
}

func (u *UnreadCount) Get(role string) int {
	if role == RoleVendor {
		return u.Vendor
	}
	return u.Customer
}

func (u *UnreadCount) Increment(role string) {
	if role == RoleVendor {
		u.Vendor++
	} else {
		u.Customer++
	}
}

func (u *UnreadCount) Reset(role string) {
	if role == RoleVendor {
		u.Vendor = 0
	} else {
		u.Customer = 0
	}
}

type Chat struct {
	ID           string            `json:"id" firestore:"id"`
	Type         string            `json:"type" firestore:"type"` // "direct", "support"
	BusinessID   string            `json:"business_id,omitempty" firestore:"businessId,omitempty"`
	Participants []ChatParticipant `json:"participants" firestore:"participants"`

	// ParticipantIDs mirrors Participants for array-contains queries; Firestore
	// cannot match a single field inside an array of maps.
	ParticipantIDs []string `json:"-" firestore:"participantIds"`

	Status         string      `json:"status" firestore:"status"` // "active", "closed", "archived"
	LastMessageID  string      `json:"last_message_id,omitempty" firestore:"lastMessageId,omitempty"`
	LastMessage    string      `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastActivityAt time.Time   `json:"last_activity_at" firestore:"lastActivityAt"`
	UnreadCount    UnreadCount `json:"unread_count" firestore:"unreadCount"`

	// Denormalized display fields, filled at creation from the user and
	// business directories.
	CustomerName   string `json:"customer_name,omitempty" firestore:"customerName,omitempty"`
	CustomerAvatar string `json:"customer_avatar,omitempty" firestore:"customerAvatar,omitempty"`
	VendorName     string `json:"vendor_name,omitempty" firestore:"vendorName,omitempty"`
	VendorAvatar   string `json:"vendor_avatar,omitempty" firestore:"vendorAvatar,omitempty"`
	BusinessName   string `json:"business_name,omitempty" firestore:"businessName,omitempty"`

	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}

// Participant returns the participant entry for userID, or nil.
func (c *Chat) Participant(userID string) *ChatParticipant {
	for i := range c.Participants {
		if c.Participants[i].UserID == userID {
			return &c.Participants[i]
		}
	}
	return nil
}

// OtherParticipant returns the participant entry that is not userID, or nil.
func (c *Chat) OtherParticipant(userID string) *ChatParticipant {
	for i := range c.Participants {
		if c.Participants[i].UserID != userID {
			return &c.Participants[i]
		}
	}
	return nil
}

func (c *Chat) IsParticipant(userID string) bool {
	return c.Participant(userID) != nil
}

func ValidChatStatus(status string) bool {
	switch status {
	case ChatStatusActive, ChatStatusClosed, ChatStatusArchived:
		return true
	}
	return false
}
