package domain

import (
	"time"

	"github.com/lib/pq"
)

// Float64Vector stores an embedding as a PostgreSQL double precision array.
type Float64Vector = pq.Float64Array

// Article is an accepted crawl outcome promoted to pipeline evidence,
// carrying the embedding and weight the threading engine consumes.
type Article struct {
	ID        string `db:"id"         json:"id"`
	SeedID    string `db:"seed_id"    json:"seed_id"`
	OutcomeID string `db:"outcome_id" json:"outcome_id"`

	Title  string `db:"title"  json:"title"`
	URL    string `db:"url"    json:"url"`
	Domain string `db:"domain" json:"domain"`
	Text   string `db:"text"   json:"text"`

	Embedding        Float64Vector `db:"embedding"         json:"embedding,omitempty"`
	ImportanceWeight float64       `db:"importance_weight" json:"importance_weight"`

	// IsRoundup flags periodic multi-topic digest pieces. Roundups are
	// excluded from thread matching and centroid updates entirely.
	IsRoundup bool `db:"is_roundup" json:"is_roundup"`

	PublishedAt time.Time `db:"published_at" json:"published_at"`
	CreatedAt   time.Time `db:"created_at"   json:"created_at"`
}
