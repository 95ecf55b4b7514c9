package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/newsthreader/internal/domain"
)

// threadSelectColumns lists columns for SELECT queries on story_threads.
const threadSelectColumns = `id, title, centroid, member_count, active, created_at, last_seen_at`

// ThreadRepository handles database operations for story threads and
// memberships.
type ThreadRepository struct {
	db *sqlx.DB
}

// NewThreadRepository creates a new thread repository.
func NewThreadRepository(db *sqlx.DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

// ListActive returns all active threads. The matching step needs every
// active centroid in memory at once.
func (r *ThreadRepository) ListActive(ctx context.Context) ([]*domain.StoryThread, error) {
	query := `SELECT ` + threadSelectColumns + ` FROM story_threads WHERE active ORDER BY created_at`

	var threads []*domain.StoryThread
	if err := r.db.SelectContext(ctx, &threads, query); err != nil {
		return nil, fmt.Errorf("failed to list active threads: %w", err)
	}
	return threads, nil
}

// ListAll returns every thread, active or archived.
func (r *ThreadRepository) ListAll(ctx context.Context) ([]*domain.StoryThread, error) {
	query := `SELECT ` + threadSelectColumns + ` FROM story_threads ORDER BY last_seen_at DESC`

	var threads []*domain.StoryThread
	if err := r.db.SelectContext(ctx, &threads, query); err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	return threads, nil
}

// Get returns one thread by ID.
func (r *ThreadRepository) Get(ctx context.Context, id string) (*domain.StoryThread, error) {
	query := `SELECT ` + threadSelectColumns + ` FROM story_threads WHERE id = $1`

	var thread domain.StoryThread
	if err := r.db.GetContext(ctx, &thread, query, id); err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", id, err)
	}
	return &thread, nil
}

// Create inserts a new thread.
func (r *ThreadRepository) Create(ctx context.Context, t *domain.StoryThread) error {
	query := `
		INSERT INTO story_threads (id, title, centroid, member_count, active, created_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := r.db.ExecContext(ctx, query,
		t.ID, t.Title, t.Centroid, t.MemberCount, t.Active, t.CreatedAt, t.LastSeenAt); err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}
	return nil
}

// Update persists centroid, member count, activity and recency state.
func (r *ThreadRepository) Update(ctx context.Context, t *domain.StoryThread) error {
	query := `
		UPDATE story_threads
		SET centroid = $2, member_count = $3, active = $4, last_seen_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, t.ID, t.Centroid, t.MemberCount, t.Active, t.LastSeenAt)
	return execRequireRows(result, err, fmt.Errorf("thread not found: %s", t.ID))
}

// AddMembership inserts the write-once membership record.
func (r *ThreadRepository) AddMembership(ctx context.Context, m *domain.ThreadMembership) error {
	query := `
		INSERT INTO thread_memberships (thread_id, article_id, similarity, joined_at)
		VALUES ($1, $2, $3, $4)
	`

	if _, err := r.db.ExecContext(ctx, query, m.ThreadID, m.ArticleID, m.Similarity, m.JoinedAt); err != nil {
		return fmt.Errorf("failed to add membership: %w", err)
	}
	return nil
}

// MoveMemberships repoints all memberships from one thread to another,
// used when two threads merge.
func (r *ThreadRepository) MoveMemberships(ctx context.Context, fromThreadID, toThreadID string) error {
	query := `UPDATE thread_memberships SET thread_id = $2 WHERE thread_id = $1`

	if _, err := r.db.ExecContext(ctx, query, fromThreadID, toThreadID); err != nil {
		return fmt.Errorf("failed to move memberships %s -> %s: %w", fromThreadID, toThreadID, err)
	}
	return nil
}

// ListMemberships returns membership records for a thread.
func (r *ThreadRepository) ListMemberships(ctx context.Context, threadID string) ([]domain.ThreadMembership, error) {
	query := `
		SELECT thread_id, article_id, similarity, joined_at
		FROM thread_memberships
		WHERE thread_id = $1
		ORDER BY joined_at
	`

	var memberships []domain.ThreadMembership
	if err := r.db.SelectContext(ctx, &memberships, query, threadID); err != nil {
		return nil, fmt.Errorf("failed to list memberships for thread %s: %w", threadID, err)
	}
	return memberships, nil
}

// qualifyColumns prefixes each column in a comma-separated list with a
// table alias for use in JOIN queries.
func qualifyColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
