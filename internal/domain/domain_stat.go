package domain

import "time"

// Domain statuses.
const (
	DomainStatusActive  = "active"
	DomainStatusBlocked = "blocked"
)

// DomainStat is the aggregated reliability record for one source domain.
// It is recomputed wholesale from the full crawl-outcome history on every
// run; nothing increments it in place.
type DomainStat struct {
	Domain string `db:"domain" json:"domain"`

	SuccessCount      int `db:"success_count"       json:"success_count"`
	BlockableCount    int `db:"blockable_count"     json:"blockable_count"`
	NonBlockableCount int `db:"non_blockable_count" json:"non_blockable_count"`

	// FailureReasons maps reason -> count across the whole history.
	FailureReasons JSONBMap `db:"failure_reasons" json:"failure_reasons"`

	// WilsonScore is the 95% Wilson lower bound over
	// (SuccessCount, SuccessCount+BlockableCount). Non-blockable failures
	// never enter this computation.
	WilsonScore float64 `db:"wilson_score" json:"wilson_score"`

	Status      string `db:"status"      json:"status"`
	Allowlisted bool   `db:"allowlisted" json:"allowlisted"`

	LastSuccessAt *time.Time `db:"last_success_at" json:"last_success_at,omitempty"`
	LastFailureAt *time.Time `db:"last_failure_at" json:"last_failure_at,omitempty"`
	UpdatedAt     time.Time  `db:"updated_at"      json:"updated_at"`
}

// ObservedTotal is the sample size relevant for blocking decisions.
func (d *DomainStat) ObservedTotal() int {
	return d.SuccessCount + d.BlockableCount
}

// SuccessRate returns the raw success rate over blockable-relevant attempts.
// Returns neutral when there is no history, so unproven domains are neither
// boosted nor buried during candidate ordering.
func (d *DomainStat) SuccessRate(neutral float64) float64 {
	total := d.ObservedTotal()
	if total == 0 {
		return neutral
	}
	return float64(d.SuccessCount) / float64(total)
}
