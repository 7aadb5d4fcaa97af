package repositories

import (
	"context"

	"github.com/careref/backend/internal/domain/entities"
)

// CuratedConditionRepository stores the tier 1 curated clinical records
type CuratedConditionRepository interface {
	Create(ctx context.Context, condition *entities.CuratedCondition) error
	Update(ctx context.Context, condition *entities.CuratedCondition) error

	// GetByCode matches primary or secondary code
	GetByCode(ctx context.Context, code string) (*entities.CuratedCondition, error)

	// FindByTerm matches the normalized term against display name and aliases
	FindByTerm(ctx context.Context, term string) ([]*entities.CuratedCondition, error)

	List(ctx context.Context, limit, offset int) ([]*entities.CuratedCondition, error)
}

// ReferenceConditionRepository stores the tier 2 lightweight reference records
type ReferenceConditionRepository interface {
	Create(ctx context.Context, condition *entities.ReferenceCondition) error
	GetByID(ctx context.Context, referenceID string) (*entities.ReferenceCondition, error)

	// FindByTerm matches the normalized term against name, synonyms and codes
	FindByTerm(ctx context.Context, term string) ([]*entities.ReferenceCondition, error)

	// IncrementSearchCount bumps the bucket counter and the lifetime total for
	// the entry and stamps last_searched_at. Best effort; callers may run it
	// outside the request path.
	IncrementSearchCount(ctx context.Context, referenceID string, bucket string) error

	// MarkPromoted flips the promoted flag and records the promotion date
	MarkPromoted(ctx context.Context, referenceID string) error

	List(ctx context.Context, limit, offset int) ([]*entities.ReferenceCondition, error)
}
