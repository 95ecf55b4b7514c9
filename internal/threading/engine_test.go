package threading_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/newsthreader/internal/domain"
	"github.com/jonesrussell/newsthreader/internal/logger"
	"github.com/jonesrussell/newsthreader/internal/threading"
)

type memoryThreadStore struct {
	threads     map[string]*domain.StoryThread
	memberships []domain.ThreadMembership
	moves       [][2]string
}

func newMemoryThreadStore(threads ...*domain.StoryThread) *memoryThreadStore {
	store := &memoryThreadStore{threads: map[string]*domain.StoryThread{}}
	for _, t := range threads {
		store.threads[t.ID] = t
	}
	return store
}

func (s *memoryThreadStore) ListActive(_ context.Context) ([]*domain.StoryThread, error) {
	var active []*domain.StoryThread
	for _, t := range s.threads {
		if t.Active {
			active = append(active, t)
		}
	}
	return active, nil
}

func (s *memoryThreadStore) Create(_ context.Context, t *domain.StoryThread) error {
	s.threads[t.ID] = t
	return nil
}

func (s *memoryThreadStore) Update(_ context.Context, t *domain.StoryThread) error {
	s.threads[t.ID] = t
	return nil
}

func (s *memoryThreadStore) AddMembership(_ context.Context, m *domain.ThreadMembership) error {
	s.memberships = append(s.memberships, *m)
	return nil
}

func (s *memoryThreadStore) MoveMemberships(_ context.Context, from, to string) error {
	s.moves = append(s.moves, [2]string{from, to})
	return nil
}

type staticArticles struct {
	articles []domain.Article
}

func (s *staticArticles) ListUnthreaded(_ context.Context) ([]domain.Article, error) {
	return s.articles, nil
}

func testThreadingConfig() threading.Config {
	return threading.Config{
		BaseThreshold:     0.70,
		TimePenaltyPerDay: 0.01,
		SizePenalty:       0.02,
		EMABaseAlpha:      0.1,
		MergeThreshold:    0.92,
		InactiveAfterDays: 14,
	}
}

// vectorAt returns a unit vector whose cosine similarity to [1,0] is c.
func vectorAt(c float64) domain.Float64Vector {
	return domain.Float64Vector{c, math.Sqrt(1 - c*c)}
}

func engine(store *memoryThreadStore, articles []domain.Article) *threading.Engine {
	return threading.NewEngine(store, &staticArticles{articles: articles}, testThreadingConfig(), logger.NewNoOp())
}

func TestEffectiveThresholdRisesWithAgeAndSize(t *testing.T) {
	e := engine(newMemoryThreadStore(), nil)
	now := time.Now()

	fresh := &domain.StoryThread{MemberCount: 1, LastSeenAt: now}
	assert.InDelta(t, 0.70+0.02*math.Log(2), e.EffectiveThreshold(fresh, now), 1e-9)

	stale := &domain.StoryThread{MemberCount: 1, LastSeenAt: now.AddDate(0, 0, -10)}
	assert.Greater(t, e.EffectiveThreshold(stale, now), e.EffectiveThreshold(fresh, now))

	big := &domain.StoryThread{MemberCount: 50, LastSeenAt: now}
	assert.Greater(t, e.EffectiveThreshold(big, now), e.EffectiveThreshold(fresh, now))

	// A five-member thread untouched for twenty days.
	aged := &domain.StoryThread{MemberCount: 5, LastSeenAt: now.AddDate(0, 0, -20)}
	assert.InDelta(t, 0.70+0.01*20+0.02*math.Log(6), e.EffectiveThreshold(aged, now), 1e-6)
}

func TestRunJoinsDespiteAgedThreshold(t *testing.T) {
	now := time.Now().Truncate(time.Hour)
	thread := &domain.StoryThread{
		ID: "t1", Title: "Port strike", Centroid: vectorAt(1),
		MemberCount: 5, Active: true,
		CreatedAt: now.AddDate(0, 0, -25), LastSeenAt: now.AddDate(0, 0, -20),
	}
	store := newMemoryThreadStore(thread)

	// Threshold is about 0.9358; a 0.95 match still joins.
	article := domain.Article{ID: "a1", Embedding: vectorAt(0.95), PublishedAt: now, ImportanceWeight: 1}

	result, err := engine(store, []domain.Article{article}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Joined)
	assert.Zero(t, result.Created)
	assert.Equal(t, 6, store.threads["t1"].MemberCount)
	assert.Equal(t, now, store.threads["t1"].LastSeenAt)
	require.Len(t, store.memberships, 1)
	assert.InDelta(t, 0.95, store.memberships[0].Similarity, 1e-9)
}

func TestRunCreatesThreadBelowThreshold(t *testing.T) {
	now := time.Now()
	thread := &domain.StoryThread{
		ID: "t1", Centroid: vectorAt(1), MemberCount: 5, Active: true,
		LastSeenAt: now.AddDate(0, 0, -20),
	}
	store := newMemoryThreadStore(thread)

	// 0.90 similarity is under the aged threshold of about 0.9358.
	article := domain.Article{ID: "a1", Title: "New story", Embedding: vectorAt(0.90), PublishedAt: now}

	result, err := engine(store, []domain.Article{article}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Created)
	assert.Zero(t, result.Joined)
	assert.Equal(t, 5, store.threads["t1"].MemberCount)
	assert.Len(t, store.threads, 2)
}

func TestRunJoinsQualifyingThreadOverCloserOversizedOne(t *testing.T) {
	now := time.Now().Truncate(time.Hour)
	big := &domain.StoryThread{
		ID: "big", Centroid: vectorAt(1), MemberCount: 100, Active: true,
		LastSeenAt: now.AddDate(0, 0, -15),
	}
	theta := math.Acos(0.90) + math.Acos(0.85)
	small := &domain.StoryThread{
		ID: "small", Centroid: domain.Float64Vector{math.Cos(theta), math.Sin(theta)},
		MemberCount: 2, Active: true, LastSeenAt: now,
	}
	store := newMemoryThreadStore(big, small)

	// 0.90 to the big thread, under its raised bar near 0.942; 0.85 to the
	// small thread, well over its 0.722 bar. The big thread is closer but
	// fails its own threshold, so the small one wins.
	article := domain.Article{ID: "a1", Embedding: vectorAt(0.90), PublishedAt: now}

	result, err := engine(store, []domain.Article{article}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Joined)
	assert.Zero(t, result.Created)
	assert.Equal(t, 3, store.threads["small"].MemberCount)
	assert.Equal(t, 100, store.threads["big"].MemberCount)
	require.Len(t, store.memberships, 1)
	assert.Equal(t, "small", store.memberships[0].ThreadID)
	assert.InDelta(t, 0.85, store.memberships[0].Similarity, 1e-9)
}

func TestRoundupArticlesNeverTouchThreads(t *testing.T) {
	now := time.Now()
	thread := &domain.StoryThread{
		ID: "t1", Centroid: vectorAt(1), MemberCount: 3, Active: true, LastSeenAt: now,
	}
	store := newMemoryThreadStore(thread)

	// A perfect centroid match that would otherwise join instantly.
	roundup := domain.Article{
		ID: "a1", Title: "Morning briefing", Embedding: vectorAt(1),
		IsRoundup: true, PublishedAt: now,
	}

	result, err := engine(store, []domain.Article{roundup}).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, result.Joined)
	assert.Zero(t, result.Created)
	assert.Empty(t, store.memberships)
	assert.Equal(t, 3, store.threads["t1"].MemberCount)
	assert.InDelta(t, 1.0, store.threads["t1"].Centroid[0], 1e-9)
	assert.Len(t, store.threads, 1)
}

func TestJoinMovesCentroidByShrinkingAlpha(t *testing.T) {
	now := time.Now()
	small := &domain.StoryThread{
		ID: "small", Centroid: vectorAt(1), MemberCount: 1, Active: true, LastSeenAt: now,
	}
	store := newMemoryThreadStore(small)

	article := domain.Article{ID: "a1", Embedding: vectorAt(0.8), PublishedAt: now}
	_, err := engine(store, []domain.Article{article}).Run(context.Background())
	require.NoError(t, err)

	// alpha = 0.1/ln(3) for a single-member thread.
	alpha := 0.1 / math.Log(3)
	want := (1-alpha)*1 + alpha*0.8
	assert.InDelta(t, want, store.threads["small"].Centroid[0], 1e-9)

	// The same article barely moves a hundred-member thread.
	big := &domain.StoryThread{
		ID: "big", Centroid: vectorAt(1), MemberCount: 100, Active: true, LastSeenAt: now,
	}
	bigStore := newMemoryThreadStore(big)
	_, err = engine(bigStore, []domain.Article{article}).Run(context.Background())
	require.NoError(t, err)

	bigShift := 1 - bigStore.threads["big"].Centroid[0]
	smallShift := 1 - store.threads["small"].Centroid[0]
	assert.Less(t, bigShift, smallShift)
}

func TestMergeAbsorbsSmallerThread(t *testing.T) {
	now := time.Now()
	large := &domain.StoryThread{
		ID: "large", Centroid: vectorAt(1), MemberCount: 8, Active: true, LastSeenAt: now,
	}
	small := &domain.StoryThread{
		ID: "small", Centroid: vectorAt(0.96), MemberCount: 2, Active: true, LastSeenAt: now,
	}
	store := newMemoryThreadStore(large, small)

	result, err := engine(store, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Merged)
	assert.True(t, store.threads["large"].Active)
	assert.False(t, store.threads["small"].Active)
	assert.Equal(t, 10, store.threads["large"].MemberCount)
	assert.Zero(t, store.threads["small"].MemberCount)
	require.Len(t, store.moves, 1)
	assert.Equal(t, [2]string{"small", "large"}, store.moves[0])
}

func TestMergeLeavesDistinctThreadsAlone(t *testing.T) {
	now := time.Now()
	a := &domain.StoryThread{ID: "a", Centroid: vectorAt(1), MemberCount: 3, Active: true, LastSeenAt: now}
	b := &domain.StoryThread{ID: "b", Centroid: vectorAt(0.5), MemberCount: 3, Active: true, LastSeenAt: now}
	store := newMemoryThreadStore(a, b)

	result, err := engine(store, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Zero(t, result.Merged)
	assert.True(t, store.threads["a"].Active)
	assert.True(t, store.threads["b"].Active)
}

func TestArchivePassDeactivatesQuietThreads(t *testing.T) {
	now := time.Now()
	quiet := &domain.StoryThread{
		ID: "quiet", Centroid: vectorAt(1), MemberCount: 4, Active: true,
		LastSeenAt: now.AddDate(0, 0, -20),
	}
	busy := &domain.StoryThread{
		ID: "busy", Centroid: vectorAt(0.3), MemberCount: 4, Active: true,
		LastSeenAt: now.AddDate(0, 0, -2),
	}
	store := newMemoryThreadStore(quiet, busy)

	result, err := engine(store, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.Archived)
	assert.False(t, store.threads["quiet"].Active)
	assert.True(t, store.threads["busy"].Active)
}

func TestHeatScoreFavorsRecentActivity(t *testing.T) {
	now := time.Now()
	decay := 0.277

	fresh := []domain.Article{
		{ImportanceWeight: 1, PublishedAt: now.Add(-2 * time.Hour)},
		{ImportanceWeight: 1, PublishedAt: now.Add(-6 * time.Hour)},
		{ImportanceWeight: 1, PublishedAt: now.AddDate(0, 0, -1)},
	}
	stale := make([]domain.Article, 10)
	for i := range stale {
		stale[i] = domain.Article{ImportanceWeight: 1, PublishedAt: now.AddDate(0, 0, -12)}
	}

	assert.Greater(t,
		threading.HeatScore(fresh, decay, now),
		threading.HeatScore(stale, decay, now))
}

func TestHeatScoreHalvesOverHalfLife(t *testing.T) {
	now := time.Now()
	decay := 0.277
	halfLife := math.Ln2 / decay

	member := []domain.Article{{ImportanceWeight: 1, PublishedAt: now.Add(-time.Duration(halfLife * float64(24*time.Hour)))}}
	assert.InDelta(t, 0.5, threading.HeatScore(member, decay, now), 0.01)
}

func TestHeatScoreScalesWithWeight(t *testing.T) {
	now := time.Now()
	light := []domain.Article{{ImportanceWeight: 1, PublishedAt: now}}
	heavy := []domain.Article{{ImportanceWeight: 3, PublishedAt: now}}

	assert.InDelta(t, 3.0, threading.HeatScore(heavy, 0.277, now)/threading.HeatScore(light, 0.277, now), 1e-9)
}
