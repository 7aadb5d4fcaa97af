package providers

import (
	"context"

	"github.com/careref/backend/internal/domain/entities"
)

// SuggestionProvider serves near-match suggestions for queries neither
// knowledge base tier answered, backed by a fuzzy search index.
type SuggestionProvider interface {
	// Suggest returns up to limit candidate names close to the query
	Suggest(ctx context.Context, query string, limit int) ([]string, error)

	// Index adds or updates a reference condition in the suggestion index
	Index(ctx context.Context, condition *entities.ReferenceCondition) error
}
