package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"

	"github.com/careref/backend/internal/domain/entities"
	"github.com/careref/backend/internal/domain/repositories"
	"github.com/careref/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/careref/backend/pkg/errors"
)

var promotionColumns = []interface{}{
	"request_id", "reference_id", "requested_by", "reason", "status",
	"assigned_to", "review_notes", "requested_at", "reviewed_at", "completed_at",
}

// PromotionAdapter implements PromotionRepository
type PromotionAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewPromotionAdapter creates a new promotion request adapter
func NewPromotionAdapter(client *postgres.Client) repositories.PromotionRepository {
	return &PromotionAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Create creates a new promotion request. A partial unique index on open
// requests per reference entry backs the dedupe invariant; a violation maps
// to a conflict error so the service can return the existing request.
func (a *PromotionAdapter) Create(ctx context.Context, request *entities.PromotionRequest) error {
	if request.RequestedAt.IsZero() {
		request.RequestedAt = time.Now()
	}

	query, args, err := a.db.Insert("promotion_requests").
		Rows(a.toRecord(request)).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build insert query", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return apperrors.NewConflictError(fmt.Sprintf("open promotion request already exists for %s", request.ReferenceID))
		}
		return apperrors.NewInternalError("failed to create promotion request", err)
	}

	return nil
}

// Update updates a promotion request
func (a *PromotionAdapter) Update(ctx context.Context, request *entities.PromotionRequest) error {
	record := a.toRecord(request)
	delete(record, "request_id")
	delete(record, "requested_at")

	query, args, err := a.db.Update("promotion_requests").
		Set(record).
		Where(goqu.Ex{"request_id": request.RequestID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update promotion request", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("promotion request %s not found", request.RequestID))
	}

	return nil
}

// GetByID retrieves a promotion request by ID
func (a *PromotionAdapter) GetByID(ctx context.Context, requestID string) (*entities.PromotionRequest, error) {
	query, args, err := a.db.Select(promotionColumns...).
		From("promotion_requests").
		Where(goqu.Ex{"request_id": requestID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.scanOne(ctx, query, fmt.Sprintf("promotion request %s not found", requestID), args...)
}

// GetOpenByReferenceID returns the pending or assigned request for a reference entry
func (a *PromotionAdapter) GetOpenByReferenceID(ctx context.Context, referenceID string) (*entities.PromotionRequest, error) {
	query, args, err := a.db.Select(promotionColumns...).
		From("promotion_requests").
		Where(goqu.Ex{
			"reference_id": referenceID,
			"status": []string{
				string(entities.PromotionStatusPending),
				string(entities.PromotionStatusAssigned),
			},
		}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.scanOne(ctx, query, fmt.Sprintf("no open promotion request for %s", referenceID), args...)
}

// List retrieves promotion requests with filters, newest first
func (a *PromotionAdapter) List(ctx context.Context, filter repositories.PromotionFilter) ([]*entities.PromotionRequest, error) {
	ds := a.db.Select(promotionColumns...).
		From("promotion_requests").
		Order(goqu.I("requested_at").Desc())

	if filter.Status != "" {
		ds = ds.Where(goqu.Ex{"status": string(filter.Status)})
	}
	if filter.Limit > 0 {
		ds = ds.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		ds = ds.Offset(uint(filter.Offset))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build list query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list promotion requests", err)
	}
	defer rows.Close()

	var requests []*entities.PromotionRequest
	for rows.Next() {
		request, err := scanPromotion(rows.Scan)
		if err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating promotion requests", err)
	}

	return requests, nil
}

func (a *PromotionAdapter) toRecord(request *entities.PromotionRequest) goqu.Record {
	return goqu.Record{
		"request_id":   request.RequestID,
		"reference_id": request.ReferenceID,
		"requested_by": request.RequestedBy,
		"reason":       request.Reason,
		"status":       string(request.Status),
		"assigned_to":  sql.NullString{String: request.AssignedTo, Valid: request.AssignedTo != ""},
		"review_notes": sql.NullString{String: request.ReviewNotes, Valid: request.ReviewNotes != ""},
		"requested_at": request.RequestedAt,
		"reviewed_at":  request.ReviewedAt,
		"completed_at": request.CompletedAt,
	}
}

func (a *PromotionAdapter) scanOne(ctx context.Context, query, notFoundMsg string, args ...interface{}) (*entities.PromotionRequest, error) {
	row := a.client.DB().QueryRowContext(ctx, query, args...)
	request, err := scanPromotion(row.Scan)
	if err != nil {
		if appErr, ok := err.(*apperrors.AppError); ok && appErr.Type == apperrors.ErrorTypeNotFound {
			return nil, apperrors.NewNotFoundError(notFoundMsg)
		}
		return nil, err
	}
	return request, nil
}

func scanPromotion(scan func(dest ...interface{}) error) (*entities.PromotionRequest, error) {
	request := &entities.PromotionRequest{}
	var status string
	var assignedTo, reviewNotes sql.NullString
	var reviewedAt, completedAt sql.NullTime

	err := scan(
		&request.RequestID,
		&request.ReferenceID,
		&request.RequestedBy,
		&request.Reason,
		&status,
		&assignedTo,
		&reviewNotes,
		&request.RequestedAt,
		&reviewedAt,
		&completedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("promotion request not found")
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to scan promotion request", err)
	}

	request.Status = entities.PromotionStatus(status)
	request.AssignedTo = assignedTo.String
	request.ReviewNotes = reviewNotes.String
	if reviewedAt.Valid {
		t := reviewedAt.Time
		request.ReviewedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		request.CompletedAt = &t
	}

	return request, nil
}
