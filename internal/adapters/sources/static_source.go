package sources

import (
	"context"

	"github.com/careref/backend/internal/domain/providers"
)

// StaticSource serves the bundled seed list as if it were the live upstream.
// Used for local development and environments without outbound network.
type StaticSource struct {
	name  string
	items []string
}

var _ providers.SourceProvider = (*StaticSource)(nil)

// NewStaticSource creates a source that always returns the given items
func NewStaticSource(name string, items []string) *StaticSource {
	return &StaticSource{name: name, items: items}
}

// NewStaticDrugSource returns a static source over the bundled drug list
func NewStaticDrugSource() *StaticSource {
	return NewStaticSource("drugs", seedDrugs())
}

// NewStaticDiseaseSource returns a static source over the bundled disease list
func NewStaticDiseaseSource() *StaticSource {
	return NewStaticSource("diseases", seedDiseases())
}

// Name identifies the dataset
func (s *StaticSource) Name() string {
	return s.name
}

// Fetch returns the bundled list
func (s *StaticSource) Fetch(ctx context.Context) ([]string, error) {
	items := make([]string, len(s.items))
	copy(items, s.items)
	return items, nil
}

// Seed returns the bundled list
func (s *StaticSource) Seed() []string {
	items := make([]string, len(s.items))
	copy(items, s.items)
	return items
}
