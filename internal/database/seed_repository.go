package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/newsthreader/internal/domain"
)

// seedSelectColumns lists columns for SELECT queries on seed_stories.
const seedSelectColumns = `id, headline, summary, embedding, status, created_at`

// SeedRepository handles database operations for seed stories and their
// candidate lists.
type SeedRepository struct {
	db *sqlx.DB
}

// NewSeedRepository creates a new seed repository.
func NewSeedRepository(db *sqlx.DB) *SeedRepository {
	return &SeedRepository{db: db}
}

// ListPending returns seed stories that have not yet been resolved this run.
func (r *SeedRepository) ListPending(ctx context.Context) ([]*domain.SeedStory, error) {
	query := `SELECT ` + seedSelectColumns + ` FROM seed_stories WHERE status = $1 ORDER BY created_at`

	var seeds []*domain.SeedStory
	if err := r.db.SelectContext(ctx, &seeds, query, domain.SeedStatusPending); err != nil {
		return nil, fmt.Errorf("failed to list pending seeds: %w", err)
	}
	return seeds, nil
}

// Get returns one seed story by ID.
func (r *SeedRepository) Get(ctx context.Context, id string) (*domain.SeedStory, error) {
	query := `SELECT ` + seedSelectColumns + ` FROM seed_stories WHERE id = $1`

	var seed domain.SeedStory
	if err := r.db.GetContext(ctx, &seed, query, id); err != nil {
		return nil, fmt.Errorf("failed to get seed %s: %w", id, err)
	}
	return &seed, nil
}

// UpdateStatus records the seed story's pipeline status.
func (r *SeedRepository) UpdateStatus(ctx context.Context, id string, status domain.SeedStoryStatus) error {
	query := `UPDATE seed_stories SET status = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	return execRequireRows(result, err, fmt.Errorf("seed story not found: %s", id))
}

// ListCandidates returns all candidates for a seed story, resolver order.
func (r *SeedRepository) ListCandidates(ctx context.Context, seedID string) ([]domain.Candidate, error) {
	query := `
		SELECT id, seed_id, url, domain, similarity_score, priority_rank, created_at
		FROM candidates
		WHERE seed_id = $1
		ORDER BY priority_rank
	`

	var candidates []domain.Candidate
	if err := r.db.SelectContext(ctx, &candidates, query, seedID); err != nil {
		return nil, fmt.Errorf("failed to list candidates for seed %s: %w", seedID, err)
	}
	return candidates, nil
}
