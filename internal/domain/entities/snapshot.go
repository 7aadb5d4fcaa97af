package entities

import (
	"time"
)

// SnapshotSource identifies where the currently served copy of a dataset came from
type SnapshotSource string

const (
	// SnapshotSourceLive means the last refresh fetched from the upstream source
	SnapshotSourceLive SnapshotSource = "live"

	// SnapshotSourceDurable means the upstream failed and the stored snapshot is served
	SnapshotSourceDurable SnapshotSource = "durable_fallback"

	// SnapshotSourceSeed means no stored snapshot exists and the bundled list is served
	SnapshotSourceSeed SnapshotSource = "seed"
)

// DatasetSnapshot is the last-known-good copy of an externally sourced
// enumerable dataset. One row per dataset; replaced only by a successful
// live fetch, never shrunk by a failure.
type DatasetSnapshot struct {
	DatasetID string         `json:"dataset_id" db:"dataset_id"`
	Items     []string       `json:"items" db:"items"`
	Source    SnapshotSource `json:"source" db:"source"`
	Count     int            `json:"count" db:"count"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at"`
}

// RefreshStatus mirrors the in-memory state of one dataset's refresh job.
// NetworkWarning is derived: true exactly when the last attempt did not
// serve live data.
type RefreshStatus struct {
	DatasetID           string         `json:"dataset_id"`
	IsRunning           bool           `json:"is_running"`
	LastSuccessAt       *time.Time     `json:"last_success_at,omitempty"`
	LastAttemptSource   SnapshotSource `json:"last_attempt_source"`
	ConsecutiveFailures int            `json:"consecutive_failures"`
	NetworkWarning      bool           `json:"network_warning"`
	ItemCount           int            `json:"item_count"`
}
