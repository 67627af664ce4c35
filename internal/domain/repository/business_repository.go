package repository

import (
	"context"

	"localhub/internal/domain/entity"
)

type BusinessRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Business, error)
}
