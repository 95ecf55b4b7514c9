package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/newsthreader/internal/domain"
)

// runReportSelectColumns lists columns for SELECT queries on run_reports.
const runReportSelectColumns = `id, started_at, finished_at,
	seeds_processed, seeds_accepted, seeds_exhausted,
	outcome_counts, domains_blocked,
	threads_created, threads_joined, threads_merged, threads_archived`

// ErrNoRunReport indicates no run has completed yet.
var ErrNoRunReport = errors.New("no run report recorded")

// RunReportRepository handles database operations for per-run reports.
type RunReportRepository struct {
	db *sqlx.DB
}

// NewRunReportRepository creates a new run report repository.
func NewRunReportRepository(db *sqlx.DB) *RunReportRepository {
	return &RunReportRepository{db: db}
}

// Create inserts a finished run report.
func (r *RunReportRepository) Create(ctx context.Context, report *domain.RunReport) error {
	query := `
		INSERT INTO run_reports (
			id, started_at, finished_at,
			seeds_processed, seeds_accepted, seeds_exhausted,
			outcome_counts, domains_blocked,
			threads_created, threads_joined, threads_merged, threads_archived
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	if _, err := r.db.ExecContext(ctx, query,
		report.ID, report.StartedAt, report.FinishedAt,
		report.SeedsProcessed, report.SeedsAccepted, report.SeedsExhausted,
		&report.OutcomeCounts, report.DomainsBlocked,
		report.ThreadsCreated, report.ThreadsJoined, report.ThreadsMerged, report.ThreadsArchived,
	); err != nil {
		return fmt.Errorf("failed to create run report: %w", err)
	}
	return nil
}

// Latest returns the most recent run report.
func (r *RunReportRepository) Latest(ctx context.Context) (*domain.RunReport, error) {
	query := `SELECT ` + runReportSelectColumns + ` FROM run_reports ORDER BY finished_at DESC LIMIT 1`

	var report domain.RunReport
	if err := r.db.GetContext(ctx, &report, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoRunReport
		}
		return nil, fmt.Errorf("failed to get latest run report: %w", err)
	}
	return &report, nil
}
