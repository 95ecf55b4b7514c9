// Package domain defines the core entities shared across the pipeline.
package domain

import "time"

// SeedStory is the original headline a candidate set is trying to corroborate.
type SeedStory struct {
	ID        string          `db:"id"         json:"id"`
	Headline  string          `db:"headline"   json:"headline"`
	Summary   string          `db:"summary"    json:"summary"`
	Embedding Float64Vector   `db:"embedding"  json:"embedding,omitempty"`
	Status    SeedStoryStatus `db:"status"     json:"status"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// SeedStoryStatus tracks where a seed story is in the pipeline.
type SeedStoryStatus string

// Seed story statuses.
const (
	SeedStatusPending   SeedStoryStatus = "pending"
	SeedStatusAccepted  SeedStoryStatus = "accepted"
	SeedStatusExhausted SeedStoryStatus = "exhausted"
)

// Candidate is one resolved URL proposed as evidence for a seed story,
// produced by the upstream resolver stage. The gate never mutates its
// structural fields, only the associated CrawlOutcome.
type Candidate struct {
	ID              string    `db:"id"               json:"id"`
	SeedID          string    `db:"seed_id"          json:"seed_id"`
	URL             string    `db:"url"              json:"url"`
	Domain          string    `db:"domain"           json:"domain"`
	SimilarityScore float64   `db:"similarity_score" json:"similarity_score"`
	PriorityRank    int       `db:"priority_rank"    json:"priority_rank"`
	CreatedAt       time.Time `db:"created_at"       json:"created_at"`
}
