package repository

import (
	"context"

	"localhub/internal/domain/entity"
)

type FileMetadataRepository interface {
	Create(ctx context.Context, metadata *entity.FileMetadata) error
	GetByID(ctx context.Context, id string) (*entity.FileMetadata, error)
}
