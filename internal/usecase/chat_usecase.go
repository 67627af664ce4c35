package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"localhub/internal/domain/entity"
	"localhub/internal/domain/repository"
	"localhub/internal/infrastructure/ratelimit"
	ws "localhub/internal/infrastructure/websocket"
	"localhub/pkg/errors"
	"localhub/pkg/logger"
)

type ChatUseCase struct {
	chatRepo     repository.ChatRepository
	userRepo     repository.UserRepository
	businessRepo repository.BusinessRepository
	wsManager    *ws.Manager
	rateLimiter  *ratelimit.RateLimiter
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	businessRepo repository.BusinessRepository,
	wsManager *ws.Manager,
) *ChatUseCase {
	return &ChatUseCase{
		chatRepo:     chatRepo,
		userRepo:     userRepo,
		businessRepo: businessRepo,
		wsManager:    wsManager,
		rateLimiter:  wsManager.RateLimiter(),
	}
}

type StartChatInput struct {
	Type           string `json:"type"`
	BusinessID     string `json:"business_id"`
	VendorID       string `json:"vendor_id"`
	InitialMessage string `json:"initial_message"`
}

// StartChat opens (or returns the existing) conversation between the caller
// and a business's vendor, or a support conversation with an admin. The caller
// always takes the customer side.
func (uc *ChatUseCase) StartChat(ctx context.Context, customerID string, input StartChatInput) (*entity.Chat, error) {
	if allowed, retryAfter := uc.rateLimiter.Allow(customerID, "create_chat"); !allowed {
		return nil, errors.TooManyRequests(fmt.Sprintf("Too many new chats, retry in %s", retryAfter.Round(time.Second)))
	}

	chatType := input.Type
	if chatType == "" {
		chatType = entity.ChatTypeDirect
	}

	customer, err := uc.userRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, errors.NotFound("User", err)
	}

	var (
		vendorID     string
		vendorName   string
		vendorAvatar string
		businessName string
	)

	switch chatType {
	case entity.ChatTypeDirect:
		if input.BusinessID == "" {
			return nil, errors.BadRequest("business_id is required for direct chats", nil)
		}
		business, err := uc.businessRepo.GetByID(ctx, input.BusinessID)
		if err != nil {
			return nil, errors.NotFound("Business", err)
		}
		vendorID = business.OwnerID
		businessName = business.Name

		vendor, err := uc.userRepo.GetByID(ctx, vendorID)
		if err != nil {
			return nil, errors.NotFound("Vendor", err)
		}
		vendorName = vendor.Username
		vendorAvatar = vendor.AvatarURL

	case entity.ChatTypeSupport:
		vendorID = input.VendorID
		if vendorID == "" {
			admins, err := uc.userRepo.ListByRole(ctx, "admin", 1)
			if err != nil || len(admins) == 0 {
				return nil, errors.Internal("No support agent available", err)
			}
			vendorID = admins[0].ID
			vendorName = admins[0].Username
			vendorAvatar = admins[0].AvatarURL
		} else {
			agent, err := uc.userRepo.GetByID(ctx, vendorID)
			if err != nil {
				return nil, errors.NotFound("Support agent", err)
			}
			if agent.Role != "admin" {
				return nil, errors.BadRequest("Support chats must target an admin user", nil)
			}
			vendorName = agent.Username
			vendorAvatar = agent.AvatarURL
		}

	default:
		return nil, errors.BadRequest(fmt.Sprintf("Unknown chat type: %s", chatType), nil)
	}

	if vendorID == customerID {
		return nil, errors.BadRequest("Cannot start a chat with yourself", nil)
	}

	existing, err := uc.chatRepo.FindDirectChat(ctx, customerID, vendorID, input.BusinessID)
	if err != nil && !errors.Is(err, "NOT_FOUND") {
		return nil, errors.Internal("Failed to look up chat", err)
	}
	if existing != nil {
		if input.InitialMessage != "" {
			if _, err := uc.SendChatMessage(ctx, customerID, ws.SendMessageData{
				ChatID:  existing.ID,
				Content: input.InitialMessage,
			}); err != nil {
				return nil, err
			}
		}
		return uc.chatRepo.GetByID(ctx, existing.ID)
	}

	now := time.Now()
	chat := &entity.Chat{
		ID:         uuid.New().String(),
		Type:       chatType,
		BusinessID: input.BusinessID,
		Participants: []entity.ChatParticipant{
			{UserID: customerID, Role: entity.RoleCustomer, LastReadAt: now},
			{UserID: vendorID, Role: entity.RoleVendor, LastReadAt: now},
		},
		Status:         entity.ChatStatusActive,
		LastActivityAt: now,
		CustomerName:   customer.Username,
		CustomerAvatar: customer.AvatarURL,
		VendorName:     vendorName,
		VendorAvatar:   vendorAvatar,
		BusinessName:   businessName,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := uc.chatRepo.Create(ctx, chat); err != nil {
		return nil, errors.Internal("Failed to create chat", err)
	}

	// Both sides may already be connected; make their live connections pick
	// the new room up.
	uc.wsManager.SendToUser(customerID, ws.EventChatUpdated, ws.ChatUpdatedData{
		ChatID:       chat.ID,
		LastActivity: chat.LastActivityAt,
	})
	uc.wsManager.SendToUser(vendorID, ws.EventChatUpdated, ws.ChatUpdatedData{
		ChatID:       chat.ID,
		LastActivity: chat.LastActivityAt,
	})

	if input.InitialMessage != "" {
		if _, err := uc.SendChatMessage(ctx, customerID, ws.SendMessageData{
			ChatID:  chat.ID,
			Content: input.InitialMessage,
		}); err != nil {
			return nil, err
		}
		return uc.chatRepo.GetByID(ctx, chat.ID)
	}

	return chat, nil
}

// ChatForParticipant loads a chat and enforces that userID belongs to it.
func (uc *ChatUseCase) ChatForParticipant(ctx context.Context, userID, chatID string) (*entity.Chat, error) {
	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, errors.NotFound("Chat", err)
	}
	if !chat.IsParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant of this chat", nil)
	}
	return chat, nil
}

// ListChatIDs returns up to limit chat IDs the user participates in, most
// recently active first. Used for room auto-join at connect time.
func (uc *ChatUseCase) ListChatIDs(ctx context.Context, userID string, limit int) ([]string, error) {
	chats, _, err := uc.chatRepo.ListByUserID(ctx, userID, "", limit, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
	}
	return ids, nil
}

// GetUserChats lists the caller's chats, newest activity first, optionally
// filtered by status.
func (uc *ChatUseCase) GetUserChats(ctx context.Context, userID, status string, limit, offset int) ([]*entity.Chat, int64, error) {
	if status != "" && !entity.ValidChatStatus(status) {
		return nil, 0, errors.BadRequest(fmt.Sprintf("Invalid chat status: %s", status), nil)
	}
	chats, total, err := uc.chatRepo.ListByUserID(ctx, userID, status, limit, offset)
	if err != nil {
		return nil, 0, errors.Internal("Failed to list chats", err)
	}
	return chats, total, nil
}

// SearchChats matches the query against the denormalized participant and
// business names of the caller's chats.
func (uc *ChatUseCase) SearchChats(ctx context.Context, userID, query string, limit, offset int) ([]*entity.Chat, int64, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, errors.BadRequest("Search query is required", nil)
	}

	// Name search happens in memory over the caller's own chats; the set is
	// small and Firestore has no substring operator.
	chats, _, err := uc.chatRepo.ListByUserID(ctx, userID, "", 0, 0)
	if err != nil {
		return nil, 0, errors.Internal("Failed to search chats", err)
	}

	needle := strings.ToLower(query)
	matched := make([]*entity.Chat, 0)
	for _, c := range chats {
		if strings.Contains(strings.ToLower(c.CustomerName), needle) ||
			strings.Contains(strings.ToLower(c.VendorName), needle) ||
			strings.Contains(strings.ToLower(c.BusinessName), needle) ||
			strings.Contains(strings.ToLower(c.LastMessage), needle) {
			matched = append(matched, c)
		}
	}

	total := int64(len(matched))
	if offset >= len(matched) {
		return []*entity.Chat{}, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

// GetChatByID returns a chat for one of its participants.
func (uc *ChatUseCase) GetChatByID(ctx context.Context, userID, chatID string) (*entity.Chat, error) {
	return uc.ChatForParticipant(ctx, userID, chatID)
}

// UpdateChatStatus moves a chat between active, closed and archived.
func (uc *ChatUseCase) UpdateChatStatus(ctx context.Context, userID, chatID, status string) (*entity.Chat, error) {
	if !entity.ValidChatStatus(status) {
		return nil, errors.BadRequest(fmt.Sprintf("Invalid chat status: %s", status), nil)
	}

	chat, err := uc.ChatForParticipant(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}

	chat.Status = status
	chat.UpdatedAt = time.Now()
	if err := uc.chatRepo.Update(ctx, chat); err != nil {
		return nil, errors.Internal("Failed to update chat status", err)
	}

	// Chat-list views listen on the personal room, not the chat room.
	update := ws.ChatUpdatedData{
		ChatID:       chat.ID,
		LastMessage:  chat.LastMessage,
		LastActivity: chat.LastActivityAt,
	}
	for _, p := range chat.Participants {
		uc.wsManager.SendToUser(p.UserID, ws.EventChatUpdated, update)
	}

	return chat, nil
}

// SendChatMessage validates and persists a new message, bumps the chat's
// last-activity metadata and the recipient's unread counter, and fans the
// message out to everyone else in the room.
func (uc *ChatUseCase) SendChatMessage(ctx context.Context, userID string, in ws.SendMessageData) (*entity.Message, error) {
	if allowed, retryAfter := uc.rateLimiter.Allow(userID, "send_message"); !allowed {
		return nil, errors.TooManyRequests(fmt.Sprintf("Sending too fast, retry in %s", retryAfter.Round(time.Second)))
	}

	chat, err := uc.ChatForParticipant(ctx, userID, in.ChatID)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(in.Content)
	if content == "" && len(in.Attachments) == 0 {
		return nil, errors.BadRequest("Message content is required", nil)
	}
	if utf8.RuneCountInString(content) > entity.MaxMessageLength {
		return nil, errors.BadRequest(fmt.Sprintf("Message exceeds %d characters", entity.MaxMessageLength), nil)
	}

	msgType := in.MessageType
	if msgType == "" {
		msgType = entity.MessageTypeText
	}
	if !entity.ValidMessageType(msgType) {
		return nil, errors.BadRequest(fmt.Sprintf("Unknown message type: %s", msgType), nil)
	}

	if in.ReplyTo != "" {
		parent, err := uc.chatRepo.GetMessageByID(ctx, in.ReplyTo)
		if err != nil {
			return nil, errors.NotFound("Replied-to message", err)
		}
		if parent.ChatID != chat.ID {
			return nil, errors.BadRequest("Replied-to message belongs to another chat", nil)
		}
	}

	sender := chat.Participant(userID)
	now := time.Now()
	message := &entity.Message{
		ID:          uuid.New().String(),
		ChatID:      chat.ID,
		SenderID:    userID,
		SenderRole:  sender.Role,
		Content:     content,
		Type:        msgType,
		Attachments: in.Attachments,
		ReplyTo:     in.ReplyTo,
		// The sender has trivially read their own message.
		ReadBy:    []entity.ReadReceipt{{UserID: userID, ReadAt: now}},
		CreatedAt: now,
	}

	if err := uc.chatRepo.CreateMessage(ctx, message); err != nil {
		return nil, errors.Internal("Failed to save message", err)
	}

	other := chat.OtherParticipant(userID)
	chat.LastMessageID = message.ID
	chat.LastMessage = previewOf(message)
	chat.LastActivityAt = now
	chat.UpdatedAt = now
	if other != nil {
		chat.UnreadCount.Increment(other.Role)
	}
	if err := uc.chatRepo.Update(ctx, chat); err != nil {
		return nil, errors.Internal("Failed to update chat", err)
	}

	// The sender already holds the message; fan out to everyone else.
	uc.wsManager.BroadcastToChatExceptUser(chat.ID, ws.EventNewMessage, message, userID)

	update := ws.ChatUpdatedData{
		ChatID:       chat.ID,
		LastMessage:  chat.LastMessage,
		LastActivity: chat.LastActivityAt,
	}
	for _, p := range chat.Participants {
		uc.wsManager.SendToUser(p.UserID, ws.EventChatUpdated, update)
	}

	if other != nil && !uc.wsManager.IsOnline(other.UserID) {
		uc.notifyOffline(other.UserID, chat, message)
	}

	return message, nil
}

// EditChatMessage rewrites a message's content. Only the sender may edit, and
// deleted messages stay deleted.
func (uc *ChatUseCase) EditChatMessage(ctx context.Context, userID, messageID, newContent string) (*entity.Message, error) {
	message, err := uc.chatRepo.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, errors.NotFound("Message", err)
	}
	if message.SenderID != userID {
		return nil, errors.Forbidden("Only the sender can edit a message", nil)
	}
	if message.IsDeleted {
		return nil, errors.BadRequest("Cannot edit a deleted message", nil)
	}

	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil, errors.BadRequest("Message content is required", nil)
	}
	if utf8.RuneCountInString(newContent) > entity.MaxMessageLength {
		return nil, errors.BadRequest(fmt.Sprintf("Message exceeds %d characters", entity.MaxMessageLength), nil)
	}

	now := time.Now()
	message.Content = newContent
	message.IsEdited = true
	message.EditedAt = &now
	if err := uc.chatRepo.UpdateMessage(ctx, message); err != nil {
		return nil, errors.Internal("Failed to update message", err)
	}

	uc.wsManager.BroadcastToChat(message.ChatID, ws.EventMsgEdited, message, nil)

	if err := uc.refreshLastMessage(ctx, message); err != nil {
		logger.Warn("Failed to refresh chat preview after edit: %v", err)
	}

	return message, nil
}

// DeleteChatMessage soft-deletes a message: the content is permanently
// replaced with a placeholder and the record stays in the history.
func (uc *ChatUseCase) DeleteChatMessage(ctx context.Context, userID, messageID string) (*entity.Message, error) {
	message, err := uc.chatRepo.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, errors.NotFound("Message", err)
	}
	if message.SenderID != userID {
		return nil, errors.Forbidden("Only the sender can delete a message", nil)
	}
	if message.IsDeleted {
		return nil, errors.BadRequest("Message is already deleted", nil)
	}

	now := time.Now()
	message.Content = entity.DeletedMessagePlaceholder
	message.IsDeleted = true
	message.DeletedAt = &now
	message.Attachments = nil
	if err := uc.chatRepo.UpdateMessage(ctx, message); err != nil {
		return nil, errors.Internal("Failed to delete message", err)
	}

	uc.wsManager.BroadcastToChat(message.ChatID, ws.EventMsgDeleted, message, nil)

	if err := uc.refreshLastMessage(ctx, message); err != nil {
		logger.Warn("Failed to refresh chat preview after delete: %v", err)
	}

	return message, nil
}

// ReactToMessage sets the caller's reaction on a message, replacing any
// earlier one. Each user holds at most one reaction per message.
func (uc *ChatUseCase) ReactToMessage(ctx context.Context, userID, messageID, emoji string) (*entity.Message, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, errors.BadRequest("Reaction emoji is required", nil)
	}

	message, err := uc.chatRepo.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, errors.NotFound("Message", err)
	}
	if _, err := uc.ChatForParticipant(ctx, userID, message.ChatID); err != nil {
		return nil, err
	}
	if message.IsDeleted {
		return nil, errors.BadRequest("Cannot react to a deleted message", nil)
	}

	message.SetReaction(userID, emoji)
	if err := uc.chatRepo.UpdateMessage(ctx, message); err != nil {
		return nil, errors.Internal("Failed to save reaction", err)
	}

	uc.wsManager.BroadcastToChat(message.ChatID, ws.EventReactionAdded, message, nil)

	return message, nil
}

// RemoveReaction drops the caller's reaction from a message if present.
func (uc *ChatUseCase) RemoveReaction(ctx context.Context, userID, messageID string) (*entity.Message, error) {
	message, err := uc.chatRepo.GetMessageByID(ctx, messageID)
	if err != nil {
		return nil, errors.NotFound("Message", err)
	}
	if _, err := uc.ChatForParticipant(ctx, userID, message.ChatID); err != nil {
		return nil, err
	}

	if message.RemoveReaction(userID) {
		if err := uc.chatRepo.UpdateMessage(ctx, message); err != nil {
			return nil, errors.Internal("Failed to remove reaction", err)
		}
		uc.wsManager.BroadcastToChat(message.ChatID, ws.EventReactionAdded, message, nil)
	}

	return message, nil
}

// MarkChatRead stamps read receipts on every unread message authored by the
// other side, resets the caller's unread counter and notifies the room.
// Calling it twice is a no-op the second time.
func (uc *ChatUseCase) MarkChatRead(ctx context.Context, userID, chatID string) error {
	chat, err := uc.ChatForParticipant(ctx, userID, chatID)
	if err != nil {
		return err
	}

	now := time.Now()
	marked, err := uc.chatRepo.AppendReadReceipts(ctx, chatID, userID, now)
	if err != nil {
		return errors.Internal("Failed to mark messages read", err)
	}

	me := chat.Participant(userID)
	hadUnread := chat.UnreadCount.Get(me.Role) > 0
	me.LastReadAt = now
	chat.UnreadCount.Reset(me.Role)
	chat.UpdatedAt = now
	if err := uc.chatRepo.Update(ctx, chat); err != nil {
		return errors.Internal("Failed to update chat", err)
	}

	// The counter can drift from the receipts; announce whenever either one
	// actually changed.
	if marked > 0 || hadUnread {
		uc.wsManager.BroadcastToChat(chatID, ws.EventMessagesRead, ws.MessagesReadData{
			ChatID: chatID,
			ReadBy: userID,
		}, nil)
	}

	return nil
}

// GetChatMessages pages a chat's history. The page is fetched newest-first and
// then reversed so callers always render chronologically.
func (uc *ChatUseCase) GetChatMessages(ctx context.Context, userID, chatID string, params repository.ListMessagesParams) ([]*entity.Message, int64, error) {
	if _, err := uc.ChatForParticipant(ctx, userID, chatID); err != nil {
		return nil, 0, err
	}

	messages, total, err := uc.chatRepo.ListMessages(ctx, chatID, params)
	if err != nil {
		return nil, 0, errors.Internal("Failed to load messages", err)
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, total, nil
}

// refreshLastMessage keeps the chat's preview consistent when its newest
// message is edited or deleted.
func (uc *ChatUseCase) refreshLastMessage(ctx context.Context, message *entity.Message) error {
	chat, err := uc.chatRepo.GetByID(ctx, message.ChatID)
	if err != nil {
		return err
	}
	if chat.LastMessageID != message.ID {
		return nil
	}
	chat.LastMessage = previewOf(message)
	chat.UpdatedAt = time.Now()
	return uc.chatRepo.Update(ctx, chat)
}

// notifyOffline is the hook for push delivery to users with no live
// connection. Delivery itself is out of process; for now we only log.
func (uc *ChatUseCase) notifyOffline(userID string, chat *entity.Chat, message *entity.Message) {
	logger.Debug("User %s offline for chat %s, message %s queued for push", userID, chat.ID, message.ID)
}

func previewOf(message *entity.Message) string {
	if message.IsDeleted {
		return entity.DeletedMessagePlaceholder
	}
	if message.Content != "" {
		return message.Content
	}
	if len(message.Attachments) > 0 {
		return "[attachment]"
	}
	return ""
}
