package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/newsthreader/internal/domain"
)

// domainStatSelectColumns lists columns for SELECT queries on domain_stats.
const domainStatSelectColumns = `domain, success_count, blockable_count, non_blockable_count,
	failure_reasons, wilson_score, status, allowlisted,
	last_success_at, last_failure_at, updated_at`

// DomainStatRepository handles database operations for domain reliability
// stats.
type DomainStatRepository struct {
	db *sqlx.DB
}

// NewDomainStatRepository creates a new domain stat repository.
func NewDomainStatRepository(db *sqlx.DB) *DomainStatRepository {
	return &DomainStatRepository{db: db}
}

// ReplaceAll upserts the recomputed stats in one transaction. The tracker
// recomputes from scratch each run, so this overwrites derived fields while
// preserving the operator-managed allowlist flag.
func (r *DomainStatRepository) ReplaceAll(ctx context.Context, stats []*domain.DomainStat) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO domain_stats (
			domain, success_count, blockable_count, non_blockable_count,
			failure_reasons, wilson_score, status,
			last_success_at, last_failure_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (domain) DO UPDATE SET
			success_count = EXCLUDED.success_count,
			blockable_count = EXCLUDED.blockable_count,
			non_blockable_count = EXCLUDED.non_blockable_count,
			failure_reasons = EXCLUDED.failure_reasons,
			wilson_score = EXCLUDED.wilson_score,
			status = CASE WHEN domain_stats.allowlisted THEN 'active' ELSE EXCLUDED.status END,
			last_success_at = EXCLUDED.last_success_at,
			last_failure_at = EXCLUDED.last_failure_at,
			updated_at = NOW()
	`

	for _, s := range stats {
		if _, execErr := tx.ExecContext(ctx, query,
			s.Domain, s.SuccessCount, s.BlockableCount, s.NonBlockableCount,
			&s.FailureReasons, s.WilsonScore, s.Status,
			s.LastSuccessAt, s.LastFailureAt,
		); execErr != nil {
			return fmt.Errorf("failed to upsert domain stat %s: %w", s.Domain, execErr)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("failed to commit domain stats: %w", commitErr)
	}
	return nil
}

// ListAll returns all domain stats.
func (r *DomainStatRepository) ListAll(ctx context.Context) ([]*domain.DomainStat, error) {
	query := `SELECT ` + domainStatSelectColumns + ` FROM domain_stats ORDER BY domain`

	var stats []*domain.DomainStat
	if err := r.db.SelectContext(ctx, &stats, query); err != nil {
		return nil, fmt.Errorf("failed to list domain stats: %w", err)
	}
	return stats, nil
}

// ListByStatus returns domain stats filtered by status.
func (r *DomainStatRepository) ListByStatus(ctx context.Context, status string) ([]*domain.DomainStat, error) {
	query := `SELECT ` + domainStatSelectColumns + ` FROM domain_stats WHERE status = $1 ORDER BY wilson_score`

	var stats []*domain.DomainStat
	if err := r.db.SelectContext(ctx, &stats, query, status); err != nil {
		return nil, fmt.Errorf("failed to list %s domains: %w", status, err)
	}
	return stats, nil
}

// Get returns one domain's stats.
func (r *DomainStatRepository) Get(ctx context.Context, dom string) (*domain.DomainStat, error) {
	query := `SELECT ` + domainStatSelectColumns + ` FROM domain_stats WHERE domain = $1`

	var stat domain.DomainStat
	if err := r.db.GetContext(ctx, &stat, query, dom); err != nil {
		return nil, fmt.Errorf("failed to get domain stat %s: %w", dom, err)
	}
	return &stat, nil
}

// SetAllowlisted flips the allowlist flag. Allowlisted domains are forced
// active immediately; the next recompute keeps them active regardless of
// score.
func (r *DomainStatRepository) SetAllowlisted(ctx context.Context, dom string, allowlisted bool) error {
	query := `
		INSERT INTO domain_stats (domain, allowlisted, status)
		VALUES ($1, $2, 'active')
		ON CONFLICT (domain) DO UPDATE SET
			allowlisted = EXCLUDED.allowlisted,
			status = CASE WHEN EXCLUDED.allowlisted THEN 'active' ELSE domain_stats.status END,
			updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, dom, allowlisted); err != nil {
		return fmt.Errorf("failed to set allowlist for %s: %w", dom, err)
	}
	return nil
}
