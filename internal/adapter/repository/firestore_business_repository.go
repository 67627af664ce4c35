package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"localhub/internal/domain/entity"
	"localhub/internal/domain/repository"
	"localhub/pkg/errors"
)

type firestoreBusinessRepository struct {
	client *firestore.Client
}

func NewFirestoreBusinessRepository(client *firestore.Client) repository.BusinessRepository {
	return &firestoreBusinessRepository{
		client: client,
	}
}

func (r *firestoreBusinessRepository) GetByID(ctx context.Context, id string) (*entity.Business, error) {
	doc, err := r.client.Collection("businesses").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Business", err)
		}
		return nil, errors.Internal("Failed to get business", err)
	}

	var business entity.Business
	if err := doc.DataTo(&business); err != nil {
		return nil, errors.Internal("Failed to parse business data", err)
	}
	business.ID = doc.Ref.ID

	return &business, nil
}
