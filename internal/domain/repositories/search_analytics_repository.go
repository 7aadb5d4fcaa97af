package repositories

import (
	"context"

	"github.com/careref/backend/internal/domain/entities"
)

// SearchAnalyticsRepository logs search events for later analysis
type SearchAnalyticsRepository interface {
	LogEvent(ctx context.Context, event *entities.SearchEvent) error
	GetZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchEvent, error)
}
