package providers

import (
	"context"
)

// SourceProvider is the per-dataset strategy consumed by the refresh service.
// Implementations call one upstream authority and carry a bundled static
// fallback so reads never return empty data.
type SourceProvider interface {
	// Fetch retrieves the full enumerable list from the live upstream source.
	// It must honor ctx cancellation; the caller bounds it with a timeout.
	Fetch(ctx context.Context) ([]string, error)

	// Seed returns the bundled static fallback list
	Seed() []string

	// Name identifies the dataset, e.g. "drugs" or "diseases"
	Name() string
}
