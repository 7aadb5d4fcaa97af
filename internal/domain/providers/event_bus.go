package providers

import (
	"context"

	"github.com/careref/backend/internal/domain/entities"
)

// EventBus distributes dataset and promotion events between components
type EventBus interface {
	// Publish publishes an event to all subscribers of a channel
	Publish(ctx context.Context, channel string, event *entities.DatasetEvent) error

	// Subscribe subscribes to events on a channel; the returned channel is
	// closed when ctx is cancelled
	Subscribe(ctx context.Context, channel string) (<-chan *entities.DatasetEvent, error)

	// Close shuts down the bus and all subscriptions
	Close() error
}
