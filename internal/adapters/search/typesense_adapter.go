package search

import (
	"context"
	"fmt"

	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/careref/backend/internal/domain/entities"
	"github.com/careref/backend/internal/domain/providers"
	tsclient "github.com/careref/backend/internal/infrastructure/clients/typesense"
)

// TypesenseAdapter serves near-match suggestions over the reference
// condition names using Typesense's typo-tolerant search.
type TypesenseAdapter struct {
	client *tsclient.Client
}

var _ providers.SuggestionProvider = (*TypesenseAdapter)(nil)

// NewTypesenseAdapter creates a new Typesense suggestion adapter
func NewTypesenseAdapter(client *tsclient.Client) *TypesenseAdapter {
	return &TypesenseAdapter{client: client}
}

// InitSchema ensures the collection exists
func (a *TypesenseAdapter) InitSchema(ctx context.Context) error {
	_, err := a.client.Client().Collection(tsclient.ReferenceConditionsCollection).Retrieve(ctx)
	if err == nil {
		return nil // Collection exists
	}

	schema := &api.CollectionSchema{
		Name: tsclient.ReferenceConditionsCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "name", Type: "string"},
			{Name: "synonyms", Type: "string[]"},
			{Name: "category", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "promoted", Type: "bool"},
			{Name: "lifetime_searches", Type: "int32"},
		},
		DefaultSortingField: pointer.String("lifetime_searches"),
	}

	_, err = a.client.Client().Collections().Create(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to create typesense collection: %w", err)
	}

	return nil
}

// Index adds or updates a reference condition in the suggestion index
func (a *TypesenseAdapter) Index(ctx context.Context, condition *entities.ReferenceCondition) error {
	synonyms := condition.Synonyms
	if synonyms == nil {
		synonyms = []string{}
	}

	document := map[string]interface{}{
		"id":                condition.ReferenceID,
		"name":              condition.Name,
		"synonyms":          synonyms,
		"category":          condition.Category,
		"promoted":          condition.Promoted,
		"lifetime_searches": condition.LifetimeSearches,
	}

	_, err := a.client.Client().Collection(tsclient.ReferenceConditionsCollection).Documents().Upsert(ctx, document)
	if err != nil {
		return fmt.Errorf("failed to index reference condition: %w", err)
	}

	return nil
}

// Suggest returns up to limit names close to the query, most searched first
func (a *TypesenseAdapter) Suggest(ctx context.Context, query string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 5
	}

	searchParams := &api.SearchCollectionParams{
		Q:       pointer.String(query),
		QueryBy: pointer.String("name,synonyms"),
		SortBy:  pointer.String("_text_match:desc,lifetime_searches:desc"),
		PerPage: pointer.Int(limit),
	}

	result, err := a.client.Client().Collection(tsclient.ReferenceConditionsCollection).Documents().Search(ctx, searchParams)
	if err != nil {
		return nil, fmt.Errorf("failed to search suggestions: %w", err)
	}

	var suggestions []string
	if result.Hits == nil {
		return suggestions, nil
	}

	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		doc := *hit.Document
		if name, ok := doc["name"].(string); ok {
			suggestions = append(suggestions, name)
		}
	}

	return suggestions, nil
}
