package entities

import (
	"time"
)

// SearchEvent represents a single knowledge base search for analytics.
type SearchEvent struct {
	ID              string    `json:"id" db:"id"`
	Query           string    `json:"query" db:"query"`
	NormalizedQuery string    `json:"normalized_query" db:"normalized_query"`
	Tier            int       `json:"tier" db:"tier"`
	ResultCount     int       `json:"result_count" db:"result_count"`
	LatencyMs       int       `json:"latency_ms" db:"latency_ms"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}
