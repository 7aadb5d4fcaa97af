package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/careref/backend/internal/domain/entities"
	"github.com/careref/backend/internal/domain/repositories"
	"github.com/careref/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/careref/backend/pkg/errors"
)

var referenceColumns = []interface{}{
	"reference_id", "name", "synonyms", "codes", "short_description",
	"category", "external_links", "search_counts", "lifetime_searches",
	"last_searched_at", "promoted", "promotion_date", "created_at", "updated_at",
}

// ReferenceConditionAdapter implements ReferenceConditionRepository
type ReferenceConditionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewReferenceConditionAdapter creates a new reference condition adapter
func NewReferenceConditionAdapter(client *postgres.Client) repositories.ReferenceConditionRepository {
	return &ReferenceConditionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new reference condition
func (a *ReferenceConditionAdapter) Create(ctx context.Context, condition *entities.ReferenceCondition) error {
	now := time.Now()
	if condition.CreatedAt.IsZero() {
		condition.CreatedAt = now
	}
	condition.UpdatedAt = now

	links, err := json.Marshal(condition.ExternalLinks)
	if err != nil {
		return apperrors.NewInternalError("failed to marshal external links", err)
	}
	counts, err := json.Marshal(condition.SearchCounts)
	if err != nil {
		return apperrors.NewInternalError("failed to marshal search counts", err)
	}

	record := goqu.Record{
		"reference_id":      condition.ReferenceID,
		"name":              condition.Name,
		"synonyms":          pq.Array(condition.Synonyms),
		"codes":             pq.Array(condition.Codes),
		"short_description": condition.ShortDescription,
		"category":          sql.NullString{String: condition.Category, Valid: condition.Category != ""},
		"external_links":    string(links),
		"search_counts":     string(counts),
		"lifetime_searches": condition.LifetimeSearches,
		"last_searched_at":  condition.LastSearchedAt,
		"promoted":          condition.Promoted,
		"promotion_date":    condition.PromotionDate,
		"created_at":        condition.CreatedAt,
		"updated_at":        condition.UpdatedAt,
	}

	query, args, err := a.db.Insert("reference_conditions").Rows(record).ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("reference condition %s already exists", condition.ReferenceID))
		}
		return apperrors.NewInternalError("failed to create reference condition", err)
	}

	return nil
}

// GetByID retrieves a reference condition by its identifier
func (a *ReferenceConditionAdapter) GetByID(ctx context.Context, referenceID string) (*entities.ReferenceCondition, error) {
	query, args, err := a.db.Select(referenceColumns...).
		From("reference_conditions").
		Where(goqu.Ex{"reference_id": referenceID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	conditions, err := a.scanMany(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if len(conditions) == 0 {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("reference condition %s not found", referenceID))
	}
	return conditions[0], nil
}

// FindByTerm matches a normalized term against name, synonyms and codes
func (a *ReferenceConditionAdapter) FindByTerm(ctx context.Context, term string) ([]*entities.ReferenceCondition, error) {
	code := strings.ToUpper(term)

	query, args, err := a.db.Select(referenceColumns...).
		From("reference_conditions").
		Where(goqu.Or(
			goqu.L("lower(name) = ?", term),
			goqu.L("? = ANY(ARRAY(SELECT lower(unnest(synonyms))))", term),
			goqu.L("? = ANY(ARRAY(SELECT upper(unnest(codes))))", code),
			goqu.L("name ILIKE ?", "%"+term+"%"),
		)).
		Order(goqu.L("lower(name) = ?", term).Desc(), goqu.I("name").Asc()).
		Limit(20).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build search query", err)
	}

	return a.scanMany(ctx, query, args...)
}

// IncrementSearchCount bumps the month bucket and lifetime counters in a
// single statement so concurrent searches never lose an update.
func (a *ReferenceConditionAdapter) IncrementSearchCount(ctx context.Context, referenceID string, bucket string) error {
	query := `
		UPDATE reference_conditions
		SET search_counts = jsonb_set(
				COALESCE(search_counts, '{}'::jsonb),
				ARRAY[$2],
				(COALESCE((search_counts ->> $2)::int, 0) + 1)::text::jsonb
			),
			lifetime_searches = lifetime_searches + 1,
			last_searched_at = NOW(),
			updated_at = NOW()
		WHERE reference_id = $1
	`

	result, err := a.client.DB().ExecContext(ctx, query, referenceID, bucket)
	if err != nil {
		return apperrors.NewInternalError("failed to increment search count", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("reference condition %s not found", referenceID))
	}

	return nil
}

// MarkPromoted flips the promoted flag and records the promotion date
func (a *ReferenceConditionAdapter) MarkPromoted(ctx context.Context, referenceID string) error {
	query, args, err := a.db.Update("reference_conditions").
		Set(goqu.Record{
			"promoted":       true,
			"promotion_date": time.Now(),
			"updated_at":     time.Now(),
		}).
		Where(goqu.Ex{"reference_id": referenceID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build promote query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to mark reference condition promoted", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("reference condition %s not found", referenceID))
	}

	return nil
}

// List retrieves reference conditions ordered by name
func (a *ReferenceConditionAdapter) List(ctx context.Context, limit, offset int) ([]*entities.ReferenceCondition, error) {
	ds := a.db.Select(referenceColumns...).
		From("reference_conditions").
		Order(goqu.I("name").Asc())

	if limit > 0 {
		ds = ds.Limit(uint(limit))
	}
	if offset > 0 {
		ds = ds.Offset(uint(offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	return a.scanMany(ctx, query, args...)
}

func (a *ReferenceConditionAdapter) scanMany(ctx context.Context, query string, args ...interface{}) ([]*entities.ReferenceCondition, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query reference conditions", err)
	}
	defer rows.Close()

	var conditions []*entities.ReferenceCondition
	for rows.Next() {
		condition := &entities.ReferenceCondition{}
		var category sql.NullString
		var links, counts []byte
		var lastSearchedAt, promotionDate sql.NullTime

		err := rows.Scan(
			&condition.ReferenceID,
			&condition.Name,
			pq.Array(&condition.Synonyms),
			pq.Array(&condition.Codes),
			&condition.ShortDescription,
			&category,
			&links,
			&counts,
			&condition.LifetimeSearches,
			&lastSearchedAt,
			&condition.Promoted,
			&promotionDate,
			&condition.CreatedAt,
			&condition.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan reference condition", err)
		}

		condition.Category = category.String
		if lastSearchedAt.Valid {
			t := lastSearchedAt.Time
			condition.LastSearchedAt = &t
		}
		if promotionDate.Valid {
			t := promotionDate.Time
			condition.PromotionDate = &t
		}
		if len(links) > 0 {
			if err := json.Unmarshal(links, &condition.ExternalLinks); err != nil {
				return nil, apperrors.NewInternalError("failed to unmarshal external links", err)
			}
		}
		if len(counts) > 0 {
			if err := json.Unmarshal(counts, &condition.SearchCounts); err != nil {
				return nil, apperrors.NewInternalError("failed to unmarshal search counts", err)
			}
		}

		conditions = append(conditions, condition)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating reference conditions", err)
	}

	return conditions, nil
}
