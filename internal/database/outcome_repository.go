package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/newsthreader/internal/domain"
)

// outcomeSelectColumns lists columns for SELECT queries on crawl_outcomes.
const outcomeSelectColumns = `id, seed_id, candidate_id, url, domain, status, reason,
	extracted_title, extracted_text, relevance_score,
	judge_same_event, judge_score, judge_confidence,
	fetched_at, created_at, updated_at`

// OutcomeRepository handles database operations for crawl outcomes.
type OutcomeRepository struct {
	db *sqlx.DB
}

// NewOutcomeRepository creates a new outcome repository.
func NewOutcomeRepository(db *sqlx.DB) *OutcomeRepository {
	return &OutcomeRepository{db: db}
}

// Record inserts a terminal crawl outcome.
func (r *OutcomeRepository) Record(ctx context.Context, o *domain.CrawlOutcome) error {
	query := `
		INSERT INTO crawl_outcomes (
			id, seed_id, candidate_id, url, domain, status, reason,
			extracted_title, extracted_text, relevance_score,
			judge_same_event, judge_score, judge_confidence, fetched_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		o.ID, o.SeedID, o.CandidateID, o.URL, o.Domain, o.Status, o.Reason,
		o.ExtractedTitle, o.ExtractedText, o.RelevanceScore,
		o.JudgeSameEvent, o.JudgeScore, o.JudgeConfidence, o.FetchedAt,
	).Scan(&o.CreatedAt, &o.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// SkipSiblings forces every non-terminal sibling candidate for the seed to
// skipped once one candidate has been accepted. Already-terminal outcomes
// are untouched; candidates without an outcome row get a skipped row.
func (r *OutcomeRepository) SkipSiblings(ctx context.Context, seedID, acceptedCandidateID string) error {
	query := `
		INSERT INTO crawl_outcomes (id, seed_id, candidate_id, url, domain, status, reason)
		SELECT gen_random_uuid()::text, c.seed_id, c.id, c.url, c.domain, $3, ''
		FROM candidates c
		WHERE c.seed_id = $1
		  AND c.id != $2
		  AND NOT EXISTS (
			SELECT 1 FROM crawl_outcomes o WHERE o.candidate_id = c.id
		  )
	`

	if _, err := r.db.ExecContext(ctx, query, seedID, acceptedCandidateID, domain.OutcomeSkipped); err != nil {
		return fmt.Errorf("failed to skip siblings for seed %s: %w", seedID, err)
	}

	update := `
		UPDATE crawl_outcomes
		SET status = $3, updated_at = NOW()
		WHERE seed_id = $1 AND candidate_id != $2 AND status = $4
	`

	if _, err := r.db.ExecContext(ctx, update, seedID, acceptedCandidateID,
		domain.OutcomeSkipped, domain.OutcomePending); err != nil {
		return fmt.Errorf("failed to update pending siblings for seed %s: %w", seedID, err)
	}
	return nil
}

// ListAll returns the full outcome history, oldest first. The reliability
// tracker consumes this in one batch; history is bounded by daily volume.
func (r *OutcomeRepository) ListAll(ctx context.Context) ([]domain.CrawlOutcome, error) {
	query := `SELECT ` + outcomeSelectColumns + ` FROM crawl_outcomes ORDER BY created_at`

	var outcomes []domain.CrawlOutcome
	if err := r.db.SelectContext(ctx, &outcomes, query); err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	return outcomes, nil
}

// GetAccepted returns the single successful outcome for a seed, if any.
func (r *OutcomeRepository) GetAccepted(ctx context.Context, seedID string) (*domain.CrawlOutcome, error) {
	query := `SELECT ` + outcomeSelectColumns + ` FROM crawl_outcomes WHERE seed_id = $1 AND status = $2`

	var outcome domain.CrawlOutcome
	if err := r.db.GetContext(ctx, &outcome, query, seedID, domain.OutcomeSuccess); err != nil {
		return nil, fmt.Errorf("failed to get accepted outcome for seed %s: %w", seedID, err)
	}
	return &outcome, nil
}
