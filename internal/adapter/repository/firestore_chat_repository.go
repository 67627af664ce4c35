package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"localhub/internal/domain/entity"
	"localhub/internal/domain/repository"
	"localhub/pkg/errors"
	"localhub/pkg/logger"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) Create(ctx context.Context, chat *entity.Chat) error {
	if chat.ID == "" {
		chat.ID = uuid.New().String()
	}

	chat.ParticipantIDs = participantIDs(chat)

	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now

	_, err := r.client.Collection("chats").Doc(chat.ID).Set(ctx, chat)
	if err != nil {
		return errors.Internal("Failed to create chat", err)
	}

	return nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	doc, err := r.client.Collection("chats").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, errors.Internal("Failed to get chat", err)
	}

	var chat entity.Chat
	if err := doc.DataTo(&chat); err != nil {
		return nil, errors.Internal("Failed to parse chat data", err)
	}

	return &chat, nil
}

func (r *firestoreChatRepository) FindDirectChat(ctx context.Context, customerID, vendorID, businessID string) (*entity.Chat, error) {
	query := r.client.Collection("chats").Where("participantIds", "array-contains", customerID)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, errors.Internal("Failed to query chats", err)
	}

	for _, doc := range docs {
		var chat entity.Chat
		if err := doc.DataTo(&chat); err != nil {
			continue
		}
		if chat.Status == entity.ChatStatusArchived {
			continue
		}
		if chat.BusinessID != businessID {
			continue
		}
		if chat.IsParticipant(vendorID) && chat.IsParticipant(customerID) {
			return &chat, nil
		}
	}

	return nil, errors.NotFound("Chat", nil)
}

func (r *firestoreChatRepository) ListByUserID(ctx context.Context, userID, chatStatus string, limit, offset int) ([]*entity.Chat, int64, error) {
	query := r.client.Collection("chats").
		Where("participantIds", "array-contains", userID).
		OrderBy("lastActivityAt", firestore.Desc)

	allDocs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching chats for user %s: %v", userID, err)
		return nil, 0, errors.Internal("Failed to fetch chats", err)
	}

	var all []*entity.Chat
	for _, doc := range allDocs {
		var chat entity.Chat
		if err := doc.DataTo(&chat); err != nil {
			logger.Warn("Skipping malformed chat document %s: %v", doc.Ref.ID, err)
			continue
		}
		if chatStatus != "" && chat.Status != chatStatus {
			continue
		}
		all = append(all, &chat)
	}

	total := int64(len(all))

	// Offset pagination applied in-memory over the filtered set; participant
	// chat lists are bounded in practice.
	start := offset
	if start > len(all) {
		start = len(all)
	}
	end := len(all)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	return all[start:end], total, nil
}

func (r *firestoreChatRepository) Update(ctx context.Context, chat *entity.Chat) error {
	chat.ParticipantIDs = participantIDs(chat)
	chat.UpdatedAt = time.Now()

	_, err := r.client.Collection("chats").Doc(chat.ID).Set(ctx, chat)
	if err != nil {
		return errors.Internal("Failed to update chat", err)
	}

	return nil
}

func (r *firestoreChatRepository) CreateMessage(ctx context.Context, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}

	message.CreatedAt = time.Now()

	_, err := r.messages(message.ChatID).Doc(message.ID).Set(ctx, message)
	if err != nil {
		return errors.Internal("Failed to create message", err)
	}

	return nil
}

func (r *firestoreChatRepository) GetMessageByID(ctx context.Context, messageID string) (*entity.Message, error) {
	// Messages live in per-chat subcollections; a collection-group query on
	// the stored id field resolves one without knowing its chat.
	query := r.client.CollectionGroup("messages").Where("id", "==", messageID).Limit(1)
	iter := query.Documents(ctx)
	doc, err := iter.Next()
	if err != nil {
		if err == iterator.Done {
			return nil, errors.NotFound("Message", nil)
		}
		return nil, errors.Internal("Failed to get message", err)
	}

	var message entity.Message
	if err := doc.DataTo(&message); err != nil {
		return nil, errors.Internal("Failed to parse message data", err)
	}

	return &message, nil
}

func (r *firestoreChatRepository) UpdateMessage(ctx context.Context, message *entity.Message) error {
	_, err := r.messages(message.ChatID).Doc(message.ID).Set(ctx, message)
	if err != nil {
		return errors.Internal("Failed to update message", err)
	}
	return nil
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, chatID string, params repository.ListMessagesParams) ([]*entity.Message, int64, error) {
	query := r.messages(chatID).OrderBy("createdAt", firestore.Desc)

	if params.Before != nil {
		query = query.Where("createdAt", "<", *params.Before)
	}
	if params.After != nil {
		query = query.Where("createdAt", ">", *params.After)
	}

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching messages for chat %s: %v", chatID, err)
		return nil, 0, errors.Internal("Failed to fetch messages", err)
	}

	var all []*entity.Message
	for _, doc := range docs {
		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Warn("Skipping malformed message document %s in chat %s: %v", doc.Ref.ID, chatID, err)
			continue
		}
		if message.IsDeleted && !params.IncludeDeleted {
			continue
		}
		all = append(all, &message)
	}

	total := int64(len(all))

	start := 0
	end := len(all)
	if params.Limit > 0 {
		page := params.Page
		if page <= 0 {
			page = 1
		}
		start = (page - 1) * params.Limit
		if start > len(all) {
			start = len(all)
		}
		end = start + params.Limit
		if end > len(all) {
			end = len(all)
		}
	}

	return all[start:end], total, nil
}

func (r *firestoreChatRepository) AppendReadReceipts(ctx context.Context, chatID, userID string, readAt time.Time) (int, error) {
	docs, err := r.messages(chatID).Documents(ctx).GetAll()
	if err != nil {
		return 0, errors.Internal("Failed to fetch messages for read receipts", err)
	}

	marked := 0
	for _, doc := range docs {
		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			continue
		}
		if message.SenderID == userID || message.ReadByUser(userID) {
			continue
		}

		message.ReadBy = append(message.ReadBy, entity.ReadReceipt{UserID: userID, ReadAt: readAt})
		if _, err := doc.Ref.Set(ctx, &message); err != nil {
			return marked, errors.Internal("Failed to update message read status", err)
		}
		marked++
	}

	return marked, nil
}

func (r *firestoreChatRepository) messages(chatID string) *firestore.CollectionRef {
	return r.client.Collection("chats").Doc(chatID).Collection("messages")
}

func participantIDs(chat *entity.Chat) []string {
	ids := make([]string, 0, len(chat.Participants))
	for _, p := range chat.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}
