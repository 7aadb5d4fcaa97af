package entities

import (
	"time"
)

// CuratedCondition is a tier 1 knowledge base entry: a small curated record
// with full clinical content, directly consumable by document generation.
type CuratedCondition struct {
	PrimaryCode          string    `json:"primary_code" db:"primary_code"`
	SecondaryCode        string    `json:"secondary_code,omitempty" db:"secondary_code"`
	DisplayName          string    `json:"display_name" db:"display_name"`
	Aliases              []string  `json:"aliases" db:"aliases"`
	WarningSigns         []string  `json:"warning_signs" db:"warning_signs"`
	StandardMedications  []string  `json:"standard_medications" db:"standard_medications"`
	ActivityRestrictions []string  `json:"activity_restrictions" db:"activity_restrictions"`
	DietInstructions     []string  `json:"diet_instructions" db:"diet_instructions"`
	FollowupInstructions []string  `json:"followup_instructions" db:"followup_instructions"`
	IsChronic            bool      `json:"is_chronic" db:"is_chronic"`
	RequiresSpecialist   bool      `json:"requires_specialist" db:"requires_specialist"`
	TypicalFollowupDays  int       `json:"typical_followup_days" db:"typical_followup_days"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// ReferenceCondition is a tier 2 knowledge base entry: a lightweight lookup
// record with names, codes and external links only. Search hits increment the
// per-month counters that drive the promotion heuristic.
type ReferenceCondition struct {
	ReferenceID      string            `json:"reference_id" db:"reference_id"`
	Name             string            `json:"name" db:"name"`
	Synonyms         []string          `json:"synonyms" db:"synonyms"`
	Codes            []string          `json:"codes" db:"codes"`
	ShortDescription string            `json:"short_description" db:"short_description"`
	Category         string            `json:"category" db:"category"`
	ExternalLinks    map[string]string `json:"external_links" db:"external_links"`
	SearchCounts     map[string]int    `json:"search_counts" db:"search_counts"`
	LifetimeSearches int               `json:"lifetime_searches" db:"lifetime_searches"`
	LastSearchedAt   *time.Time        `json:"last_searched_at,omitempty" db:"last_searched_at"`
	Promoted         bool              `json:"promoted" db:"promoted"`
	PromotionDate    *time.Time        `json:"promotion_date,omitempty" db:"promotion_date"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" db:"updated_at"`
}

// SearchBucket returns the calendar-month counter key for t, e.g. "2026-08"
func SearchBucket(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// PeriodSearches returns the counter for the bucket containing now
func (c *ReferenceCondition) PeriodSearches(now time.Time) int {
	if c.SearchCounts == nil {
		return 0
	}
	return c.SearchCounts[SearchBucket(now)]
}
