package database

import (
	"context"
	"database/sql"
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

var curatedColumns = []interface{}{
	"primary_code", "secondary_code", "display_name", "aliases",
	"warning_signs", "standard_medications", "activity_restrictions",
	"diet_instructions", "followup_instructions", "is_chronic",
	"requires_specialist", "typical_followup_days", "created_at", "updated_at",
}

// CuratedConditionAdapter implements CuratedConditionRepository
type CuratedConditionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewCuratedConditionAdapter creates a new curated condition adapter
func NewCuratedConditionAdapter(client *postgres.Client) repositories.CuratedConditionRepository {
	return &CuratedConditionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new curated condition
func (a *CuratedConditionAdapter) Create(ctx context.Context, condition *entities.CuratedCondition) error {
	now := time.Now()
	if condition.CreatedAt.IsZero() {
		condition.CreatedAt = now
	}
	condition.UpdatedAt = now

	query, args, err := a.db.Insert("curated_conditions").
		Rows(a.toRecord(condition)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("curated condition %s already exists", condition.PrimaryCode))
		}
		return apperrors.NewInternalError("failed to create curated condition", err)
	}

	return nil
}

// Update updates a curated condition
func (a *CuratedConditionAdapter) Update(ctx context.Context, condition *entities.CuratedCondition) error {
	condition.UpdatedAt = time.Now()

	record := a.toRecord(condition)
	delete(record, "primary_code")
	delete(record, "created_at")

	query, args, err := a.db.Update("curated_conditions").
		Set(record).
		Where(goqu.Ex{"primary_code": condition.PrimaryCode}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update curated condition", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("curated condition %s not found", condition.PrimaryCode))
	}

	return nil
}

// GetByCode matches the primary or secondary code, case-insensitively
func (a *CuratedConditionAdapter) GetByCode(ctx context.Context, code string) (*entities.CuratedCondition, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	query, args, err := a.db.Select(curatedColumns...).
		From("curated_conditions").
		Where(goqu.Or(
			goqu.L("upper(primary_code) = ?", normalized),
			goqu.L("upper(secondary_code) = ?", normalized),
		)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	condition, err := a.scanOne(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return condition, nil
}

// FindByTerm matches a normalized term against display name and aliases.
// Exact matches sort before substring matches.
func (a *CuratedConditionAdapter) FindByTerm(ctx context.Context, term string) ([]*entities.CuratedCondition, error) {
	query, args, err := a.db.Select(curatedColumns...).
		From("curated_conditions").
		Where(goqu.Or(
			goqu.L("lower(display_name) = ?", term),
			goqu.L("? = ANY(ARRAY(SELECT lower(unnest(aliases))))", term),
			goqu.L("display_name ILIKE ?", "%"+term+"%"),
		)).
		Order(goqu.L("lower(display_name) = ?", term).Desc(), goqu.I("display_name").Asc()).
		Limit(20).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build search query", err)
	}

	return a.scanMany(ctx, query, args...)
}

// List retrieves curated conditions ordered by display name
func (a *CuratedConditionAdapter) List(ctx context.Context, limit, offset int) ([]*entities.CuratedCondition, error) {
	ds := a.db.Select(curatedColumns...).
		From("curated_conditions").
		Order(goqu.I("display_name").Asc())

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

func (a *CuratedConditionAdapter) toRecord(condition *entities.CuratedCondition) goqu.Record {
	return goqu.Record{
		"primary_code":          condition.PrimaryCode,
		"secondary_code":        sql.NullString{String: condition.SecondaryCode, Valid: condition.SecondaryCode != ""},
		"display_name":          condition.DisplayName,
		"aliases":               pq.Array(condition.Aliases),
		"warning_signs":         pq.Array(condition.WarningSigns),
		"standard_medications":  pq.Array(condition.StandardMedications),
		"activity_restrictions": pq.Array(condition.ActivityRestrictions),
		"diet_instructions":     pq.Array(condition.DietInstructions),
		"followup_instructions": pq.Array(condition.FollowupInstructions),
		"is_chronic":            condition.IsChronic,
		"requires_specialist":   condition.RequiresSpecialist,
		"typical_followup_days": condition.TypicalFollowupDays,
		"created_at":            condition.CreatedAt,
		"updated_at":            condition.UpdatedAt,
	}
}

func (a *CuratedConditionAdapter) scanOne(ctx context.Context, query string, args ...interface{}) (*entities.CuratedCondition, error) {
	condition := &entities.CuratedCondition{}
	var secondaryCode sql.NullString

	err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&condition.PrimaryCode,
		&secondaryCode,
		&condition.DisplayName,
		pq.Array(&condition.Aliases),
		pq.Array(&condition.WarningSigns),
		pq.Array(&condition.StandardMedications),
		pq.Array(&condition.ActivityRestrictions),
		pq.Array(&condition.DietInstructions),
		pq.Array(&condition.FollowupInstructions),
		&condition.IsChronic,
		&condition.RequiresSpecialist,
		&condition.TypicalFollowupDays,
		&condition.CreatedAt,
		&condition.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("curated condition not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get curated condition", err)
	}

	condition.SecondaryCode = secondaryCode.String
	return condition, nil
}

func (a *CuratedConditionAdapter) scanMany(ctx context.Context, query string, args ...interface{}) ([]*entities.CuratedCondition, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query curated conditions", err)
	}
	defer rows.Close()

	var conditions []*entities.CuratedCondition
	for rows.Next() {
		condition := &entities.CuratedCondition{}
		var secondaryCode sql.NullString

		err := rows.Scan(
			&condition.PrimaryCode,
			&secondaryCode,
			&condition.DisplayName,
			pq.Array(&condition.Aliases),
			pq.Array(&condition.WarningSigns),
			pq.Array(&condition.StandardMedications),
			pq.Array(&condition.ActivityRestrictions),
			pq.Array(&condition.DietInstructions),
			pq.Array(&condition.FollowupInstructions),
			&condition.IsChronic,
			&condition.RequiresSpecialist,
			&condition.TypicalFollowupDays,
			&condition.CreatedAt,
			&condition.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan curated condition", err)
		}

		condition.SecondaryCode = secondaryCode.String
		conditions = append(conditions, condition)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating curated conditions", err)
	}

	return conditions, nil
}

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}
