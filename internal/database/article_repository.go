package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/newsthreader/internal/domain"
)

// articleSelectColumns lists columns for SELECT queries on articles.
const articleSelectColumns = `id, seed_id, outcome_id, title, url, domain, text,
	embedding, importance_weight, is_roundup, published_at, created_at`

// ArticleRepository handles database operations for accepted articles.
type ArticleRepository struct {
	db *sqlx.DB
}

// NewArticleRepository creates a new article repository.
func NewArticleRepository(db *sqlx.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Create inserts an accepted article.
func (r *ArticleRepository) Create(ctx context.Context, a *domain.Article) error {
	query := `
		INSERT INTO articles (
			id, seed_id, outcome_id, title, url, domain, text,
			embedding, importance_weight, is_roundup, published_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(
		ctx,
		query,
		a.ID, a.SeedID, a.OutcomeID, a.Title, a.URL, a.Domain, a.Text,
		a.Embedding, a.ImportanceWeight, a.IsRoundup, a.PublishedAt,
	).Scan(&a.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create article: %w", err)
	}
	return nil
}

// ListUnthreaded returns accepted articles not yet assigned to a thread,
// ordered by published date. The threading engine depends on this ordering:
// earlier-published articles decide which threads exist first.
func (r *ArticleRepository) ListUnthreaded(ctx context.Context) ([]domain.Article, error) {
	query := `
		SELECT ` + articleSelectColumns + `
		FROM articles a
		WHERE NOT a.is_roundup
		  AND NOT EXISTS (SELECT 1 FROM thread_memberships m WHERE m.article_id = a.id)
		ORDER BY a.published_at, a.created_at
	`

	var articles []domain.Article
	if err := r.db.SelectContext(ctx, &articles, query); err != nil {
		return nil, fmt.Errorf("failed to list unthreaded articles: %w", err)
	}
	return articles, nil
}

// ListByThread returns the member articles of a thread joined with their
// membership records, oldest first.
func (r *ArticleRepository) ListByThread(ctx context.Context, threadID string) ([]domain.Article, error) {
	query := `
		SELECT ` + qualifyColumns("a", articleSelectColumns) + `
		FROM articles a
		JOIN thread_memberships m ON m.article_id = a.id
		WHERE m.thread_id = $1
		ORDER BY a.published_at
	`

	var articles []domain.Article
	if err := r.db.SelectContext(ctx, &articles, query, threadID); err != nil {
		return nil, fmt.Errorf("failed to list articles for thread %s: %w", threadID, err)
	}
	return articles, nil
}
