// Package processor orchestrates one full pipeline run: snapshot the
// blocklist, gate every pending seed, recompute domain reliability, thread
// the accepted articles, and write the run report.
package processor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/newsthreader/internal/domain"
	"github.com/jonesrussell/newsthreader/internal/gate"
	"github.com/jonesrussell/newsthreader/internal/logger"
	"github.com/jonesrussell/newsthreader/internal/metrics"
	"github.com/jonesrussell/newsthreader/internal/reliability"
	"github.com/jonesrussell/newsthreader/internal/threading"
)

// SeedStore supplies pending seeds and their candidates.
type SeedStore interface {
	ListPending(ctx context.Context) ([]*domain.SeedStory, error)
	ListCandidates(ctx context.Context, seedID string) ([]domain.Candidate, error)
	UpdateStatus(ctx context.Context, id string, status domain.SeedStoryStatus) error
}

// SeedGate runs one seed through the crawl quality pipeline.
type SeedGate interface {
	ProcessSeed(ctx context.Context, seed *domain.SeedStory, candidates []domain.Candidate, blocklist gate.Blocklist) (*gate.SeedResult, error)
}

// ReliabilityTracker recomputes domain stats and serves blocklist snapshots.
type ReliabilityTracker interface {
	Snapshot(ctx context.Context) (*reliability.Snapshot, error)
	Recompute(ctx context.Context) ([]*domain.DomainStat, error)
}

// Threader assigns accepted articles to story threads.
type Threader interface {
	Run(ctx context.Context) (*threading.Result, error)
}

// ReportStore persists run reports.
type ReportStore interface {
	Create(ctx context.Context, report *domain.RunReport) error
}

// Config holds runner settings.
type Config struct {
	// Concurrency bounds how many seeds are gated in parallel.
	Concurrency int
}

// Runner executes pipeline runs.
type Runner struct {
	seeds   SeedStore
	gate    SeedGate
	tracker ReliabilityTracker
	threads Threader
	reports ReportStore
	metrics *metrics.Metrics
	cfg     Config
	logger  logger.Interface
	now     func() time.Time
}

// NewRunner creates a runner. metrics may be nil.
func NewRunner(
	seeds SeedStore,
	seedGate SeedGate,
	tracker ReliabilityTracker,
	threads Threader,
	reports ReportStore,
	m *metrics.Metrics,
	cfg Config,
	log logger.Interface,
) *Runner {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Runner{
		seeds:   seeds,
		gate:    seedGate,
		tracker: tracker,
		threads: threads,
		reports: reports,
		metrics: m,
		cfg:     cfg,
		logger:  log,
		now:     time.Now,
	}
}

// runTally accumulates per-seed results under a lock.
type runTally struct {
	mu            sync.Mutex
	processed     int
	accepted      int
	exhausted     int
	outcomeCounts map[string]int
}

func (t *runTally) add(result *gate.SeedResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed++
	switch result.Status {
	case domain.SeedStatusAccepted:
		t.accepted++
	case domain.SeedStatusExhausted:
		t.exhausted++
	}
	for status, count := range result.OutcomeCounts {
		t.outcomeCounts[status] += count
	}
}

// Run executes one full pipeline pass and returns the persisted report.
func (r *Runner) Run(ctx context.Context) (*domain.RunReport, error) {
	started := r.now()
	report, err := r.run(ctx, started)

	if r.metrics != nil {
		r.metrics.RecordRun(r.now().Sub(started), err)
	}
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (r *Runner) run(ctx context.Context, started time.Time) (*domain.RunReport, error) {
	snapshot, err := r.tracker.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("build blocklist snapshot: %w", err)
	}

	seeds, err := r.seeds.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending seeds: %w", err)
	}
	r.logger.Info("Run started", "seeds", len(seeds), "blocked_domains", snapshot.BlockedCount())

	tally := &runTally{outcomeCounts: map[string]int{}}
	if gateErr := r.gateSeeds(ctx, seeds, snapshot, tally); gateErr != nil {
		return nil, gateErr
	}

	stats, err := r.tracker.Recompute(ctx)
	if err != nil {
		return nil, err
	}
	blocked := countBlocked(stats)
	if r.metrics != nil {
		r.metrics.SetDomainCounts(len(stats), blocked)
	}

	threadResult, err := r.threads.Run(ctx)
	if err != nil {
		return nil, err
	}
	if r.metrics != nil {
		r.metrics.RecordThreading(threadResult.Created, threadResult.Joined, threadResult.Merged, threadResult.Archived)
	}

	report := r.buildReport(started, tally, blocked, threadResult)
	if createErr := r.reports.Create(ctx, report); createErr != nil {
		return nil, createErr
	}

	r.logger.Info("Run finished",
		"seeds_processed", report.SeedsProcessed,
		"seeds_accepted", report.SeedsAccepted,
		"seeds_exhausted", report.SeedsExhausted,
		"domains_blocked", report.DomainsBlocked,
		"threads_created", report.ThreadsCreated,
		"duration", r.now().Sub(started).String())
	return report, nil
}

// gateSeeds fans pending seeds across a bounded worker pool. The blocklist
// snapshot is shared read-only; every seed in this run sees the same
// blocking decisions regardless of what the gate records along the way.
func (r *Runner) gateSeeds(ctx context.Context, seeds []*domain.SeedStory, snapshot *reliability.Snapshot, tally *runTally) error {
	work := make(chan *domain.SeedStory)
	var wg sync.WaitGroup
	var embeddingDown atomic.Bool
	errs := make(chan error, r.cfg.Concurrency)

	for range r.cfg.Concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seed := range work {
				if embeddingDown.Load() {
					continue
				}
				if err := r.gateSeed(ctx, seed, snapshot, tally, &embeddingDown); err != nil {
					select {
					case errs <- err:
					default:
					}
				}
			}
		}()
	}

	for _, seed := range seeds {
		select {
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return ctx.Err()
		case work <- seed:
		}
	}
	close(work)
	wg.Wait()

	select {
	case err := <-errs:
		return err
	default:
	}

	if embeddingDown.Load() {
		r.logger.Warn("Run degraded: embedding service down, remaining seeds deferred")
	}
	return nil
}

func (r *Runner) gateSeed(ctx context.Context, seed *domain.SeedStory, snapshot *reliability.Snapshot, tally *runTally, embeddingDown *atomic.Bool) error {
	candidates, err := r.seeds.ListCandidates(ctx, seed.ID)
	if err != nil {
		return fmt.Errorf("list candidates for seed %s: %w", seed.ID, err)
	}

	result, err := r.gate.ProcessSeed(ctx, seed, candidates, snapshot)
	if err != nil {
		return fmt.Errorf("gate seed %s: %w", seed.ID, err)
	}

	if result.EmbeddingDown {
		embeddingDown.Store(true)
		return nil
	}

	if updateErr := r.seeds.UpdateStatus(ctx, seed.ID, result.Status); updateErr != nil {
		return updateErr
	}
	if r.metrics != nil {
		r.metrics.RecordSeed(result.Status)
	}
	tally.add(result)
	return nil
}

func (r *Runner) buildReport(started time.Time, tally *runTally, blocked int, threads *threading.Result) *domain.RunReport {
	counts := domain.JSONBMap{}
	for status, count := range tally.outcomeCounts {
		counts[status] = count
	}
	return &domain.RunReport{
		ID:              uuid.New().String(),
		StartedAt:       started,
		FinishedAt:      r.now(),
		SeedsProcessed:  tally.processed,
		SeedsAccepted:   tally.accepted,
		SeedsExhausted:  tally.exhausted,
		OutcomeCounts:   counts,
		DomainsBlocked:  blocked,
		ThreadsCreated:  threads.Created,
		ThreadsJoined:   threads.Joined,
		ThreadsMerged:   threads.Merged,
		ThreadsArchived: threads.Archived,
	}
}

func countBlocked(stats []*domain.DomainStat) int {
	blocked := 0
	for _, stat := range stats {
		if stat.Status == domain.DomainStatusBlocked {
			blocked++
		}
	}
	return blocked
}
