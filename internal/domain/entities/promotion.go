package entities

import (
	"time"
)

// PromotionStatus is the state of a promotion request
type PromotionStatus string

const (
	PromotionStatusPending   PromotionStatus = "pending"
	PromotionStatusAssigned  PromotionStatus = "assigned"
	PromotionStatusCompleted PromotionStatus = "completed"
	PromotionStatusRejected  PromotionStatus = "rejected"
)

// IsOpen reports whether the status still allows transitions
func (s PromotionStatus) IsOpen() bool {
	return s == PromotionStatusPending || s == PromotionStatusAssigned
}

// CanTransitionTo enforces the promotion state machine:
// pending -> assigned -> {completed, rejected}, with assigned -> pending
// permitted for reassignment. Completed and rejected are terminal.
func (s PromotionStatus) CanTransitionTo(next PromotionStatus) bool {
	switch s {
	case PromotionStatusPending:
		return next == PromotionStatusAssigned
	case PromotionStatusAssigned:
		return next == PromotionStatusPending ||
			next == PromotionStatusCompleted ||
			next == PromotionStatusRejected
	default:
		return false
	}
}

// PromotionRequest tracks a candidate for moving a reference condition into
// the curated tier. At most one open request may exist per reference entry.
type PromotionRequest struct {
	RequestID   string          `json:"request_id" db:"request_id"`
	ReferenceID string          `json:"reference_id" db:"reference_id"`
	RequestedBy string          `json:"requested_by" db:"requested_by"`
	Reason      string          `json:"reason" db:"reason"`
	Status      PromotionStatus `json:"status" db:"status"`
	AssignedTo  string          `json:"assigned_to,omitempty" db:"assigned_to"`
	ReviewNotes string          `json:"review_notes,omitempty" db:"review_notes"`
	RequestedAt time.Time       `json:"requested_at" db:"requested_at"`
	ReviewedAt  *time.Time      `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty" db:"completed_at"`
}
