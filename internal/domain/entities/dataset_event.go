package entities

import (
	"time"
)

// DatasetEventType classifies events on the internal bus
type DatasetEventType string

const (
	// EventDatasetRefreshed fires after a successful live fetch replaced a snapshot
	EventDatasetRefreshed DatasetEventType = "dataset.refreshed"

	// EventPromotionCompleted fires when a reference entry enters the curated tier
	EventPromotionCompleted DatasetEventType = "promotion.completed"
)

// Channel names for the event bus
const (
	ChannelDatasets   = "careref:datasets"
	ChannelPromotions = "careref:promotions"
)

// DatasetEvent is published on snapshot refreshes and promotion completions
// so caches over derived results can be invalidated.
type DatasetEvent struct {
	ID        string           `json:"id"`
	Type      DatasetEventType `json:"type"`
	DatasetID string           `json:"dataset_id,omitempty"`
	Subject   string           `json:"subject,omitempty"`
	Count     int              `json:"count,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
