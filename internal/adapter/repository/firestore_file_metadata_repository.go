package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"localhub/internal/domain/entity"
	"localhub/internal/domain/repository"
	"localhub/pkg/errors"
)

type firestoreFileMetadataRepository struct {
	client *firestore.Client
}

func NewFirestoreFileMetadataRepository(client *firestore.Client) repository.FileMetadataRepository {
	return &firestoreFileMetadataRepository{
		client: client,
	}
}

func (r *firestoreFileMetadataRepository) Create(ctx context.Context, metadata *entity.FileMetadata) error {
	if metadata.ID == "" {
		metadata.ID = uuid.New().String()
	}
	metadata.CreatedAt = time.Now()

	_, err := r.client.Collection("files").Doc(metadata.ID).Set(ctx, metadata)
	if err != nil {
		return errors.Internal("Failed to store file metadata", err)
	}

	return nil
}

func (r *firestoreFileMetadataRepository) GetByID(ctx context.Context, id string) (*entity.FileMetadata, error) {
	doc, err := r.client.Collection("files").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("File", err)
		}
		return nil, errors.Internal("Failed to get file metadata", err)
	}

	var metadata entity.FileMetadata
	if err := doc.DataTo(&metadata); err != nil {
		return nil, errors.Internal("Failed to parse file metadata", err)
	}

	return &metadata, nil
}
