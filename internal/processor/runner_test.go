package processor_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/newsthreader/internal/domain"
	"github.com/jonesrussell/newsthreader/internal/gate"
	"github.com/jonesrussell/newsthreader/internal/logger"
	"github.com/jonesrussell/newsthreader/internal/processor"
	"github.com/jonesrussell/newsthreader/internal/reliability"
	"github.com/jonesrussell/newsthreader/internal/threading"
)

type fakeSeedStore struct {
	mu       sync.Mutex
	seeds    []*domain.SeedStory
	statuses map[string]domain.SeedStoryStatus
}

func (f *fakeSeedStore) ListPending(_ context.Context) ([]*domain.SeedStory, error) {
	return f.seeds, nil
}

func (f *fakeSeedStore) ListCandidates(_ context.Context, seedID string) ([]domain.Candidate, error) {
	return []domain.Candidate{{ID: seedID + "-c1", SeedID: seedID}}, nil
}

func (f *fakeSeedStore) UpdateStatus(_ context.Context, id string, status domain.SeedStoryStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[id] = status
	return nil
}

type fakeGate struct {
	mu      sync.Mutex
	results map[string]*gate.SeedResult
	seen    []string
}

func (f *fakeGate) ProcessSeed(_ context.Context, seed *domain.SeedStory, _ []domain.Candidate, _ gate.Blocklist) (*gate.SeedResult, error) {
	f.mu.Lock()
	f.seen = append(f.seen, seed.ID)
	f.mu.Unlock()
	if result, ok := f.results[seed.ID]; ok {
		return result, nil
	}
	return &gate.SeedResult{
		SeedID: seed.ID, Status: domain.SeedStatusExhausted,
		OutcomeCounts: map[string]int{string(domain.OutcomeFailed): 1},
	}, nil
}

type fakeTracker struct {
	stats []*domain.DomainStat
}

func (f *fakeTracker) Snapshot(_ context.Context) (*reliability.Snapshot, error) {
	return reliability.NewSnapshot(nil, 0.5), nil
}

func (f *fakeTracker) Recompute(_ context.Context) ([]*domain.DomainStat, error) {
	return f.stats, nil
}

type fakeThreader struct {
	result threading.Result
}

func (f *fakeThreader) Run(_ context.Context) (*threading.Result, error) {
	r := f.result
	return &r, nil
}

type fakeReportStore struct {
	report *domain.RunReport
}

func (f *fakeReportStore) Create(_ context.Context, report *domain.RunReport) error {
	f.report = report
	return nil
}

func seed(id string) *domain.SeedStory {
	return &domain.SeedStory{ID: id, Status: domain.SeedStatusPending}
}

func acceptedResult(seedID string) *gate.SeedResult {
	return &gate.SeedResult{
		SeedID:   seedID,
		Status:   domain.SeedStatusAccepted,
		Accepted: &domain.CrawlOutcome{SeedID: seedID, Status: domain.OutcomeSuccess},
		OutcomeCounts: map[string]int{
			string(domain.OutcomeSuccess): 1,
			string(domain.OutcomeFailed):  2,
		},
	}
}

func TestRunnerFullRun(t *testing.T) {
	seeds := &fakeSeedStore{
		seeds:    []*domain.SeedStory{seed("s1"), seed("s2"), seed("s3")},
		statuses: map[string]domain.SeedStoryStatus{},
	}
	g := &fakeGate{results: map[string]*gate.SeedResult{"s1": acceptedResult("s1")}}
	tracker := &fakeTracker{stats: []*domain.DomainStat{
		{Domain: "good.example", Status: domain.DomainStatusActive},
		{Domain: "bad.example", Status: domain.DomainStatusBlocked},
	}}
	threader := &fakeThreader{result: threading.Result{Created: 1, Joined: 2, Merged: 1, Archived: 3}}
	reports := &fakeReportStore{}

	runner := processor.NewRunner(seeds, g, tracker, threader, reports, nil,
		processor.Config{Concurrency: 2}, logger.NewNoOp())

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, g.seen, 3)
	assert.Equal(t, 3, report.SeedsProcessed)
	assert.Equal(t, 1, report.SeedsAccepted)
	assert.Equal(t, 2, report.SeedsExhausted)
	assert.Equal(t, 1, report.DomainsBlocked)
	assert.Equal(t, 1, report.ThreadsCreated)
	assert.Equal(t, 2, report.ThreadsJoined)
	assert.Equal(t, 1, report.ThreadsMerged)
	assert.Equal(t, 3, report.ThreadsArchived)
	assert.Equal(t, 1, report.OutcomeCounts["success"])
	assert.Equal(t, 4, report.OutcomeCounts["failed"])

	assert.Equal(t, domain.SeedStatusAccepted, seeds.statuses["s1"])
	assert.Equal(t, domain.SeedStatusExhausted, seeds.statuses["s2"])
	assert.Equal(t, domain.SeedStatusExhausted, seeds.statuses["s3"])

	require.NotNil(t, reports.report)
	assert.False(t, reports.report.FinishedAt.Before(reports.report.StartedAt))
}

func TestRunnerEmbeddingOutageLeavesSeedsPending(t *testing.T) {
	seeds := &fakeSeedStore{
		seeds:    []*domain.SeedStory{seed("s1")},
		statuses: map[string]domain.SeedStoryStatus{},
	}
	g := &fakeGate{results: map[string]*gate.SeedResult{
		"s1": {SeedID: "s1", Status: domain.SeedStatusPending, EmbeddingDown: true, OutcomeCounts: map[string]int{}},
	}}
	reports := &fakeReportStore{}

	runner := processor.NewRunner(seeds, g, &fakeTracker{}, &fakeThreader{}, reports, nil,
		processor.Config{Concurrency: 1}, logger.NewNoOp())

	report, err := runner.Run(context.Background())
	require.NoError(t, err)

	// The seed keeps its pending status for the next run.
	assert.Empty(t, seeds.statuses)
	assert.Zero(t, report.SeedsProcessed)
	require.NotNil(t, reports.report)
}

func TestRunnerNoPendingSeeds(t *testing.T) {
	seeds := &fakeSeedStore{statuses: map[string]domain.SeedStoryStatus{}}
	reports := &fakeReportStore{}

	runner := processor.NewRunner(seeds, &fakeGate{}, &fakeTracker{}, &fakeThreader{}, reports, nil,
		processor.Config{Concurrency: 4}, logger.NewNoOp())

	report, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.SeedsProcessed)
}
