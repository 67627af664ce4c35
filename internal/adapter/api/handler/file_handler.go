package handler

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"localhub/internal/domain/entity"
	"localhub/internal/domain/repository"
	"localhub/internal/infrastructure/storage"
	"localhub/internal/usecase"
	"localhub/pkg/errors"
	"localhub/pkg/response"
)

// maxUploadSize bounds attachment uploads at 10 MB.
const maxUploadSize = 10 << 20

type FileHandler struct {
	storage          *storage.CloudStorageClient
	fileMetadataRepo repository.FileMetadataRepository
	chatUseCase      *usecase.ChatUseCase
}

var fileHandler *FileHandler

func NewFileHandler(storageClient *storage.CloudStorageClient, fileMetadataRepo repository.FileMetadataRepository, chatUseCase *usecase.ChatUseCase) *FileHandler {
	return &FileHandler{
		storage:          storageClient,
		fileMetadataRepo: fileMetadataRepo,
		chatUseCase:      chatUseCase,
	}
}

func SetupFileHandler(storageClient *storage.CloudStorageClient, fileMetadataRepo repository.FileMetadataRepository, chatUseCase *usecase.ChatUseCase) {
	fileHandler = NewFileHandler(storageClient, fileMetadataRepo, chatUseCase)
}

func GetFileHandler() *FileHandler {
	return fileHandler
}

var allowedUploadTypes = map[string]bool{
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// UploadAttachment stores a file for use as a chat attachment and returns its
// metadata. The caller must be a participant of the target chat.
func (h *FileHandler) UploadAttachment(c echo.Context) error {
	userID := c.Get("uid").(string)

	chatID := c.FormValue("chat_id")
	if chatID == "" {
		return response.Error(c, errors.BadRequest("chat_id is required", nil))
	}
	if _, err := h.chatUseCase.GetChatByID(c.Request().Context(), userID, chatID); err != nil {
		return response.Error(c, err)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, errors.BadRequest("file is required", err))
	}
	if fileHeader.Size > maxUploadSize {
		return response.Error(c, errors.BadRequest("File exceeds the 10MB limit", nil))
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if !allowedUploadTypes[mimeType] {
		return response.Error(c, errors.BadRequest("Unsupported file type: "+mimeType, nil))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return response.Error(c, errors.Internal("Failed to read uploaded file", err))
	}
	defer src.Close()

	url, err := h.storage.UploadAttachment(c.Request().Context(), src, mimeType, chatID)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to store file", err))
	}

	metadata := &entity.FileMetadata{
		ID:         uuid.New().String(),
		URL:        url,
		Filename:   fileHeader.Filename,
		Size:       fileHeader.Size,
		MimeType:   mimeType,
		UploadedBy: userID,
		CreatedAt:  time.Now(),
	}
	if err := h.fileMetadataRepo.Create(c.Request().Context(), metadata); err != nil {
		return response.Error(c, errors.Internal("Failed to save file metadata", err))
	}

	return response.Created(c, metadata)
}
