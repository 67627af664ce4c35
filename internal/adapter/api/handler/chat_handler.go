package handler

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"localhub/internal/domain/entity"
	"localhub/internal/domain/repository"
	ws "localhub/internal/infrastructure/websocket"
	"localhub/internal/usecase"
	"localhub/pkg/errors"
	"localhub/pkg/response"
	"localhub/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type startChatRequest struct {
	Type           string `json:"type" validate:"omitempty,oneof=direct support"`
	BusinessID     string `json:"business_id"`
	VendorID       string `json:"vendor_id"`
	InitialMessage string `json:"initial_message" validate:"omitempty,max=4000"`
}

type sendMessageRequest struct {
	Content     string           `json:"content" validate:"omitempty,max=4000"`
	Type        string           `json:"type" validate:"omitempty,oneof=text image file system"`
	ReplyTo     string           `json:"reply_to"`
	Attachments []attachmentItem `json:"attachments" validate:"omitempty,dive"`
}

type attachmentItem struct {
	Type     string `json:"type" validate:"required,oneof=image file"`
	URL      string `json:"url" validate:"required,url"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}

type editMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active closed archived"`
}

type reactionRequest struct {
	Emoji string `json:"emoji" validate:"required,max=16"`
}

// StartChat opens a conversation with a business's vendor, or returns the one
// that already exists.
func (h *ChatHandler) StartChat(c echo.Context) error {
	var req startChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	chat, err := h.chatUseCase.StartChat(c.Request().Context(), userID, usecase.StartChatInput{
		Type:           req.Type,
		BusinessID:     req.BusinessID,
		VendorID:       req.VendorID,
		InitialMessage: req.InitialMessage,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, chat)
}

// GetUserChats lists the caller's chats, newest activity first.
func (h *ChatHandler) GetUserChats(c echo.Context) error {
	userID := c.Get("uid").(string)
	params := utils.GetPaginationParams(c)
	status := c.QueryParam("status")

	chats, total, err := h.chatUseCase.GetUserChats(c.Request().Context(), userID, status, params.PageSize, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, chats, total, params.Page, params.PageSize)
}

// SearchChats filters the caller's chats by participant or business name.
func (h *ChatHandler) SearchChats(c echo.Context) error {
	userID := c.Get("uid").(string)
	params := utils.GetPaginationParams(c)

	chats, total, err := h.chatUseCase.SearchChats(c.Request().Context(), userID, c.QueryParam("q"), params.PageSize, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, chats, total, params.Page, params.PageSize)
}

func (h *ChatHandler) GetChatByID(c echo.Context) error {
	userID := c.Get("uid").(string)

	chat, err := h.chatUseCase.GetChatByID(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

func (h *ChatHandler) UpdateChatStatus(c echo.Context) error {
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	chat, err := h.chatUseCase.UpdateChatStatus(c.Request().Context(), userID, c.Param("id"), req.Status)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

// MarkChatAsRead stamps read receipts and clears the caller's unread counter.
func (h *ChatHandler) MarkChatAsRead(c echo.Context) error {
	userID := c.Get("uid").(string)

	if err := h.chatUseCase.MarkChatRead(c.Request().Context(), userID, c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "read"})
}

// SendMessage posts a message over REST. The socket fan-out runs exactly as
// if the message had arrived over a connection.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	message, err := h.chatUseCase.SendChatMessage(c.Request().Context(), userID, ws.SendMessageData{
		ChatID:      c.Param("id"),
		Content:     req.Content,
		MessageType: req.Type,
		ReplyTo:     req.ReplyTo,
		Attachments: toEntityAttachments(req.Attachments),
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// GetChatMessages pages a chat's history in chronological order. Pagination
// works by page/limit or by before/after RFC3339 cursors.
func (h *ChatHandler) GetChatMessages(c echo.Context) error {
	userID := c.Get("uid").(string)

	params := repository.ListMessagesParams{Page: 1, Limit: 50}
	if page, err := strconv.Atoi(c.QueryParam("page")); err == nil && page > 0 {
		params.Page = page
	}
	if limit, err := strconv.Atoi(c.QueryParam("limit")); err == nil && limit > 0 && limit <= 100 {
		params.Limit = limit
	}
	if raw := c.QueryParam("before"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return response.Error(c, errors.BadRequest("before must be an RFC3339 timestamp", err))
		}
		params.Before = &t
	}
	if raw := c.QueryParam("after"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return response.Error(c, errors.BadRequest("after must be an RFC3339 timestamp", err))
		}
		params.After = &t
	}
	params.IncludeDeleted = c.QueryParam("include_deleted") == "true"

	messages, total, err := h.chatUseCase.GetChatMessages(c.Request().Context(), userID, c.Param("id"), params)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, messages, total, params.Page, params.Limit)
}

func (h *ChatHandler) EditMessage(c echo.Context) error {
	var req editMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	message, err := h.chatUseCase.EditChatMessage(c.Request().Context(), userID, c.Param("id"), req.Content)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

func (h *ChatHandler) DeleteMessage(c echo.Context) error {
	userID := c.Get("uid").(string)

	message, err := h.chatUseCase.DeleteChatMessage(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

func (h *ChatHandler) AddReaction(c echo.Context) error {
	var req reactionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	message, err := h.chatUseCase.ReactToMessage(c.Request().Context(), userID, c.Param("id"), req.Emoji)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

func (h *ChatHandler) RemoveReaction(c echo.Context) error {
	userID := c.Get("uid").(string)

	message, err := h.chatUseCase.RemoveReaction(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, message)
}

func toEntityAttachments(items []attachmentItem) []entity.Attachment {
	if len(items) == 0 {
		return nil
	}
	attachments := make([]entity.Attachment, 0, len(items))
	for _, item := range items {
		attachments = append(attachments, entity.Attachment{
			Type:     item.Type,
			URL:      item.URL,
			Filename: item.Filename,
			Size:     item.Size,
			MimeType: item.MimeType,
		})
	}
	return attachments
}
