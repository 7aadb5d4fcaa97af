package repositories

import (
	"context"

	"github.com/careref/backend/internal/domain/entities"
)

// SnapshotRepository persists the last-known-good copy of each dataset.
// Save is an atomic full replace; partial merges are never performed.
type SnapshotRepository interface {
	// Save replaces the snapshot for datasetID with items in one transaction
	Save(ctx context.Context, datasetID string, items []string, source entities.SnapshotSource) error

	// Load returns the stored snapshot, or a NOT_FOUND error when none exists
	Load(ctx context.Context, datasetID string) (*entities.DatasetSnapshot, error)
}
