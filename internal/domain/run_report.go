package domain

import "time"

// RunReport summarizes one batch run for operators.
type RunReport struct {
	ID         string    `db:"id"          json:"id"`
	StartedAt  time.Time `db:"started_at"  json:"started_at"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`

	SeedsProcessed int `db:"seeds_processed" json:"seeds_processed"`
	SeedsAccepted  int `db:"seeds_accepted"  json:"seeds_accepted"`
	SeedsExhausted int `db:"seeds_exhausted" json:"seeds_exhausted"`

	// Per-status candidate outcome counts for this run.
	OutcomeCounts JSONBMap `db:"outcome_counts" json:"outcome_counts"`

	DomainsBlocked int `db:"domains_blocked" json:"domains_blocked"`

	ThreadsCreated  int `db:"threads_created"  json:"threads_created"`
	ThreadsJoined   int `db:"threads_joined"   json:"threads_joined"`
	ThreadsMerged   int `db:"threads_merged"   json:"threads_merged"`
	ThreadsArchived int `db:"threads_archived" json:"threads_archived"`
}
