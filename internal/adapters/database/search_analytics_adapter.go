package database

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/careref/backend/internal/domain/entities"
	"github.com/careref/backend/internal/domain/repositories"
	"github.com/careref/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/careref/backend/pkg/errors"
)

type SearchAnalyticsAdapter struct {
	client *postgres.Client
}

func NewSearchAnalyticsAdapter(client *postgres.Client) repositories.SearchAnalyticsRepository {
	return &SearchAnalyticsAdapter{client: client}
}

func (a *SearchAnalyticsAdapter) LogEvent(ctx context.Context, event *entities.SearchEvent) error {
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO search_analytics
		(id, query, normalized_query, tier, result_count, latency_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := a.client.DB().ExecContext(ctx, query,
		event.ID,
		event.Query,
		event.NormalizedQuery,
		event.Tier,
		event.ResultCount,
		event.LatencyMs,
		event.CreatedAt,
	)

	if err != nil {
		return apperrors.NewInternalError("failed to log search event", err)
	}

	return nil
}

func (a *SearchAnalyticsAdapter) GetZeroResultQueries(ctx context.Context, limit int) ([]*entities.SearchEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, query, normalized_query, tier, result_count, latency_ms, created_at
		FROM search_analytics
		WHERE result_count = 0
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := a.client.DB().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get zero result queries", err)
	}
	defer rows.Close()

	var events []*entities.SearchEvent
	for rows.Next() {
		e := &entities.SearchEvent{}
		err := rows.Scan(
			&e.ID,
			&e.Query,
			&e.NormalizedQuery,
			&e.Tier,
			&e.ResultCount,
			&e.LatencyMs,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan search event", err)
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("error iterating search events", err)
	}

	return events, nil
}
