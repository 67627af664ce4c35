package entity

import "time"

const (
	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"

	// MaxMessageLength bounds message content size.
	MaxMessageLength = 4000

	// DeletedMessagePlaceholder permanently replaces the content of a
	// soft-deleted message.
	DeletedMessagePlaceholder = "This message was deleted"
)

type Attachment struct {
	Type     string `json:"type" firestore:"type"` // "image", "file"
	URL      string `json:"url" firestore:"url"`
	Filename string `json:"filename,omitempty" firestore:"filename,omitempty"`
	Size     int64  `json:"size,omitempty" firestore:"size,omitempty"`
	MimeType string `json:"mime_type,omitempty" firestore:"mimeType,omitempty"`
}

type ReadReceipt struct {
	UserID string    `json:"user_id" firestore:"userId"`
	ReadAt time.Time `json:"read_at" firestore:"readAt"`
}

type Reaction struct {
	UserID string `json:"user_id" firestore:"userId"`
	Emoji  string `json:"emoji" firestore:"emoji"`
}

type Message struct {
	ID          string        `json:"id" firestore:"id"`
	ChatID      string        `json:"chat_id" firestore:"chatId"`
	SenderID    string        `json:"sender_id" firestore:"senderId"`
	SenderRole  string        `json:"sender_role" firestore:"senderRole"`
	Content     string        `json:"content" firestore:"content"`
	Type        string        `json:"type" firestore:"type"`
	Attachments []Attachment  `json:"attachments,omitempty" firestore:"attachments,omitempty"`
	ReplyTo     string        `json:"reply_to,omitempty" firestore:"replyTo,omitempty"`
	ReadBy      []ReadReceipt `json:"read_by" firestore:"readBy"`
	Reactions   []Reaction    `json:"reactions,omitempty" firestore:"reactions,omitempty"`
	IsEdited    bool          `json:"is_edited" firestore:"isEdited"`
	EditedAt    *time.Time    `json:"edited_at,omitempty" firestore:"editedAt,omitempty"`
	IsDeleted   bool          `json:"is_deleted" firestore:"isDeleted"`
	DeletedAt   *time.Time    `json:"deleted_at,omitempty" firestore:"deletedAt,omitempty"`
	CreatedAt   time.Time     `json:"created_at" firestore:"createdAt"`
}

// ReadByUser reports whether userID has a read receipt on the message.
func (m *Message) ReadByUser(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// SetReaction inserts or replaces userID's reaction, keeping at most one
// reaction per user.
func (m *Message) SetReaction(userID, emoji string) {
	for i := range m.Reactions {
		if m.Reactions[i].UserID == userID {
			m.Reactions[i].Emoji = emoji
			return
		}
	}
	m.Reactions = append(m.Reactions, Reaction{UserID: userID, Emoji: emoji})
}

// RemoveReaction drops userID's reaction if present.
func (m *Message) RemoveReaction(userID string) bool {
	for i := range m.Reactions {
		if m.Reactions[i].UserID == userID {
			m.Reactions = append(m.Reactions[:i], m.Reactions[i+1:]...)
			return true
		}
	}
	return false
}

func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeSystem:
		return true
	}
	return false
}
