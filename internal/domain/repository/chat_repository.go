package repository

import (
	"context"
	"time"

	"localhub/internal/domain/entity"
)

// ListMessagesParams selects a page of a chat's history. Messages are queried
// in descending creation order; Before/After are exclusive timestamp bounds
// usable alongside or instead of Page/Limit.
type ListMessagesParams struct {
	Page           int
	Limit          int
	Before         *time.Time
	After          *time.Time
	IncludeDeleted bool
}

type ChatRepository interface {
	Create(ctx context.Context, chat *entity.Chat) error
	GetByID(ctx context.Context, id string) (*entity.Chat, error)
	// FindDirectChat looks up the non-archived chat for a
	// (customer, vendor, business) triple. businessID may be empty for
	// support chats.
	FindDirectChat(ctx context.Context, customerID, vendorID, businessID string) (*entity.Chat, error)
	ListByUserID(ctx context.Context, userID, status string, limit, offset int) ([]*entity.Chat, int64, error)
	Update(ctx context.Context, chat *entity.Chat) error

	CreateMessage(ctx context.Context, message *entity.Message) error
	// GetMessageByID resolves a message by ID alone, across all chats.
	GetMessageByID(ctx context.Context, messageID string) (*entity.Message, error)
	UpdateMessage(ctx context.Context, message *entity.Message) error
	ListMessages(ctx context.Context, chatID string, params ListMessagesParams) ([]*entity.Message, int64, error)
	// AppendReadReceipts adds a read receipt for userID to every message in
	// the chat that was authored by someone else and not yet read by userID.
	// It returns the number of messages marked and is idempotent.
	AppendReadReceipts(ctx context.Context, chatID, userID string, readAt time.Time) (int, error)
}
