package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"

	"github.com/careref/backend/internal/domain/entities"
	"github.com/careref/backend/internal/domain/repositories"
	"github.com/careref/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/careref/backend/pkg/errors"
)

// SnapshotAdapter implements SnapshotRepository
type SnapshotAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewSnapshotAdapter creates a new snapshot adapter
func NewSnapshotAdapter(client *postgres.Client) repositories.SnapshotRepository {
	return &SnapshotAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// Save replaces the stored snapshot for a dataset. The upsert is a single
// statement so readers never observe a half-written row.
func (a *SnapshotAdapter) Save(ctx context.Context, datasetID string, items []string, source entities.SnapshotSource) error {
	now := time.Now()

	record := goqu.Record{
		"dataset_id": datasetID,
		"items":      pq.Array(items),
		"source":     string(source),
		"count":      len(items),
		"created_at": now,
		"updated_at": now,
	}

	query, args, err := a.db.Insert("dataset_snapshots").
		Rows(record).
		OnConflict(goqu.DoUpdate("dataset_id", goqu.Record{
			"items":      pq.Array(items),
			"source":     string(source),
			"count":      len(items),
			"updated_at": now,
		})).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build snapshot upsert", err)
	}

	if _, err := a.client.DB().ExecContext(ctx, query, args...); err != nil {
		return apperrors.NewInternalError("failed to save dataset snapshot", err)
	}

	return nil
}

// Load returns the stored snapshot for a dataset
func (a *SnapshotAdapter) Load(ctx context.Context, datasetID string) (*entities.DatasetSnapshot, error) {
	query, args, err := a.db.Select(
		"dataset_id", "items", "source", "count", "created_at", "updated_at",
	).From("dataset_snapshots").
		Where(goqu.Ex{"dataset_id": datasetID}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build snapshot query", err)
	}

	snapshot := &entities.DatasetSnapshot{}
	var source string

	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&snapshot.DatasetID,
		pq.Array(&snapshot.Items),
		&source,
		&snapshot.Count,
		&snapshot.CreatedAt,
		&snapshot.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("no snapshot for dataset %s", datasetID))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to load dataset snapshot", err)
	}

	snapshot.Source = entities.SnapshotSource(source)
	return snapshot, nil
}
