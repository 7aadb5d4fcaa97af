package repositories

import (
	"context"

	"github.com/careref/backend/internal/domain/entities"
)

// PromotionFilter narrows promotion request listings
type PromotionFilter struct {
	Status entities.PromotionStatus
	Limit  int
	Offset int
}

// PromotionRepository stores promotion workflow requests
type PromotionRepository interface {
	Create(ctx context.Context, request *entities.PromotionRequest) error
	Update(ctx context.Context, request *entities.PromotionRequest) error
	GetByID(ctx context.Context, requestID string) (*entities.PromotionRequest, error)

	// GetOpenByReferenceID returns the pending or assigned request for a
	// reference entry, or a NOT_FOUND error. Creation dedupes through this.
	GetOpenByReferenceID(ctx context.Context, referenceID string) (*entities.PromotionRequest, error)

	List(ctx context.Context, filter PromotionFilter) ([]*entities.PromotionRequest, error)
}
