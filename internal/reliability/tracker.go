package reliability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jonesrussell/newsthreader/internal/domain"
	"github.com/jonesrussell/newsthreader/internal/logger"
)

// Config holds the blocking policy knobs.
type Config struct {
	// BlockThreshold is the Wilson lower bound below which a domain is blocked.
	BlockThreshold float64
	// MinSampleSize is the minimum number of blockable failures before a
	// domain can be blocked, regardless of its score.
	MinSampleSize int
	// NeutralPrior is the success rate assumed for domains with no history.
	NeutralPrior float64
	// WilsonZ is the z-value for the confidence interval.
	WilsonZ float64
}

// OutcomeLister supplies the full crawl-outcome history.
type OutcomeLister interface {
	ListAll(ctx context.Context) ([]domain.CrawlOutcome, error)
}

// StatStore persists recomputed domain stats.
type StatStore interface {
	ListAll(ctx context.Context) ([]*domain.DomainStat, error)
	ReplaceAll(ctx context.Context, stats []*domain.DomainStat) error
}

// Tracker recomputes per-domain reliability from the outcome history.
// It never increments counters in place: each Recompute folds the entire
// history into fresh stats, so a bug in one run cannot corrupt the next.
type Tracker struct {
	outcomes OutcomeLister
	stats    StatStore
	cfg      Config
	logger   logger.Interface
	now      func() time.Time
}

// NewTracker creates a reliability tracker.
func NewTracker(outcomes OutcomeLister, stats StatStore, cfg Config, log logger.Interface) *Tracker {
	if cfg.WilsonZ <= 0 {
		cfg.WilsonZ = DefaultZ
	}
	return &Tracker{
		outcomes: outcomes,
		stats:    stats,
		cfg:      cfg,
		logger:   log,
		now:      time.Now,
	}
}

// Recompute rebuilds every domain stat from the outcome history, applies
// the blocking rule, and persists the result. Allowlisted domains keep
// their score but are never marked blocked.
func (t *Tracker) Recompute(ctx context.Context) ([]*domain.DomainStat, error) {
	history, err := t.outcomes.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load outcome history: %w", err)
	}

	existing, err := t.stats.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load domain stats: %w", err)
	}
	allowlisted := make(map[string]bool, len(existing))
	for _, stat := range existing {
		if stat.Allowlisted {
			allowlisted[stat.Domain] = true
		}
	}

	stats := t.fold(history, allowlisted)
	if err := t.stats.ReplaceAll(ctx, stats); err != nil {
		return nil, fmt.Errorf("failed to persist domain stats: %w", err)
	}

	blocked := 0
	for _, stat := range stats {
		if stat.Status == domain.DomainStatusBlocked {
			blocked++
		}
	}
	t.logger.Info("Recomputed domain reliability",
		"domains", len(stats),
		"blocked", blocked,
		"outcomes", len(history))

	return stats, nil
}

// fold aggregates outcomes into per-domain stats and applies the block rule.
func (t *Tracker) fold(history []domain.CrawlOutcome, allowlisted map[string]bool) []*domain.DomainStat {
	byDomain := make(map[string]*domain.DomainStat)
	now := t.now()

	for i := range history {
		outcome := &history[i]
		if !countsForReliability(outcome) {
			continue
		}

		key := normalizeDomain(outcome.Domain)
		stat, ok := byDomain[key]
		if !ok {
			stat = &domain.DomainStat{
				Domain:         key,
				FailureReasons: domain.JSONBMap{},
				Status:         domain.DomainStatusActive,
				Allowlisted:    allowlisted[key],
				UpdatedAt:      now,
			}
			byDomain[key] = stat
		}

		switch {
		case outcome.Status == domain.OutcomeSuccess:
			stat.SuccessCount++
			stat.LastSuccessAt = laterOf(stat.LastSuccessAt, outcome.FetchedAt, outcome.CreatedAt)
		case outcome.Reason.Blockable():
			stat.BlockableCount++
			stat.FailureReasons.Increment(string(outcome.Reason))
			stat.LastFailureAt = laterOf(stat.LastFailureAt, outcome.FetchedAt, outcome.CreatedAt)
		default:
			stat.NonBlockableCount++
			stat.FailureReasons.Increment(string(outcome.Reason))
		}
	}

	stats := make([]*domain.DomainStat, 0, len(byDomain))
	for _, stat := range byDomain {
		stat.WilsonScore = WilsonLowerBound(stat.SuccessCount, stat.ObservedTotal(), t.cfg.WilsonZ)
		if t.shouldBlock(stat) {
			stat.Status = domain.DomainStatusBlocked
		}
		stats = append(stats, stat)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Domain < stats[j].Domain })
	return stats
}

// shouldBlock applies the blocking rule. The minimum-sample guard is on
// blockable failures, not total attempts: a domain that has only ever
// succeeded is never blocked no matter how few samples exist.
func (t *Tracker) shouldBlock(stat *domain.DomainStat) bool {
	if stat.Allowlisted {
		return false
	}
	if stat.BlockableCount < t.cfg.MinSampleSize {
		return false
	}
	return stat.WilsonScore < t.cfg.BlockThreshold
}

// Snapshot builds an immutable blocklist view from persisted stats.
func (t *Tracker) Snapshot(ctx context.Context) (*Snapshot, error) {
	stats, err := t.stats.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load domain stats: %w", err)
	}

	views := make([]DomainView, 0, len(stats))
	for _, stat := range stats {
		views = append(views, DomainView{
			Domain:      stat.Domain,
			Blocked:     stat.Status == domain.DomainStatusBlocked,
			SuccessRate: stat.SuccessRate(t.cfg.NeutralPrior),
		})
	}
	return NewSnapshot(views, t.cfg.NeutralPrior), nil
}

// countsForReliability filters the history down to attempts that say
// something about the domain. Pending rows have not finished; skipped rows
// and blocked-domain rows never touched the network.
func countsForReliability(o *domain.CrawlOutcome) bool {
	switch o.Status {
	case domain.OutcomePending, domain.OutcomeSkipped, domain.OutcomeResolveFailed:
		return false
	}
	switch o.Reason {
	case domain.ReasonDomainBlocked, domain.ReasonEmbeddingDown:
		return false
	}
	return true
}

func laterOf(current *time.Time, fetched *time.Time, created time.Time) *time.Time {
	at := created
	if fetched != nil {
		at = *fetched
	}
	if current == nil || at.After(*current) {
		return &at
	}
	return current
}
