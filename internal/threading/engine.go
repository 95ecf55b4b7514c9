// Package threading groups accepted articles into story threads using
// centroid similarity with a threshold that rises as threads age and grow.
package threading

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/newsthreader/internal/domain"
	"github.com/jonesrussell/newsthreader/internal/embedding"
	"github.com/jonesrussell/newsthreader/internal/logger"
)

// Config holds the threading thresholds.
type Config struct {
	// BaseThreshold is the minimum centroid similarity for a fresh,
	// single-member thread.
	BaseThreshold float64
	// TimePenaltyPerDay raises the join threshold for each day since the
	// thread last saw a member.
	TimePenaltyPerDay float64
	// SizePenalty raises the join threshold by this much per ln(members+1).
	SizePenalty float64
	// EMABaseAlpha controls how fast the centroid tracks new members. The
	// effective alpha shrinks as the thread grows.
	EMABaseAlpha float64
	// MergeThreshold is the centroid similarity above which two threads
	// collapse into one.
	MergeThreshold float64
	// InactiveAfterDays archives threads that have not seen a member for
	// this long. Archived threads are kept, never deleted.
	InactiveAfterDays int
}

// ThreadStore persists threads and memberships.
type ThreadStore interface {
	ListActive(ctx context.Context) ([]*domain.StoryThread, error)
	Create(ctx context.Context, t *domain.StoryThread) error
	Update(ctx context.Context, t *domain.StoryThread) error
	AddMembership(ctx context.Context, m *domain.ThreadMembership) error
	MoveMemberships(ctx context.Context, fromThreadID, toThreadID string) error
}

// ArticleLister supplies articles awaiting thread assignment.
type ArticleLister interface {
	ListUnthreaded(ctx context.Context) ([]domain.Article, error)
}

// Result counts what one threading pass did.
type Result struct {
	Created  int
	Joined   int
	Merged   int
	Archived int
}

// Engine assigns articles to threads and maintains the thread set.
type Engine struct {
	threads  ThreadStore
	articles ArticleLister
	cfg      Config
	logger   logger.Interface
	now      func() time.Time
}

// NewEngine creates a threading engine.
func NewEngine(threads ThreadStore, articles ArticleLister, cfg Config, log logger.Interface) *Engine {
	return &Engine{
		threads:  threads,
		articles: articles,
		cfg:      cfg,
		logger:   log,
		now:      time.Now,
	}
}

// EffectiveThreshold is the similarity an article must reach to join the
// thread. Stale and large threads demand more: old threads should not
// swallow vaguely related stories, and big threads already have a settled
// centroid that new members must genuinely match.
func (e *Engine) EffectiveThreshold(thread *domain.StoryThread, now time.Time) float64 {
	staleDays := now.Sub(thread.LastSeenAt).Hours() / 24
	if staleDays < 0 {
		staleDays = 0
	}
	return e.cfg.BaseThreshold +
		e.cfg.TimePenaltyPerDay*staleDays +
		e.cfg.SizePenalty*math.Log(float64(thread.MemberCount)+1)
}

// Run processes all unthreaded articles in published order, then merges
// near-duplicate threads and archives inactive ones.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	articles, err := e.articles.ListUnthreaded(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unthreaded articles: %w", err)
	}

	active, err := e.threads.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active threads: %w", err)
	}

	result := &Result{}
	for i := range articles {
		article := &articles[i]
		if article.IsRoundup {
			continue
		}
		thread, joined, assignErr := e.assign(ctx, article, active)
		if assignErr != nil {
			return nil, assignErr
		}
		if joined {
			result.Joined++
		} else {
			result.Created++
			active = append(active, thread)
		}
	}

	merged, err := e.mergePass(ctx, active)
	if err != nil {
		return nil, err
	}
	result.Merged = merged

	archived, err := e.archivePass(ctx, active)
	if err != nil {
		return nil, err
	}
	result.Archived = archived

	e.logger.Info("Threading pass complete",
		"articles", len(articles),
		"created", result.Created,
		"joined", result.Joined,
		"merged", result.Merged,
		"archived", result.Archived)
	return result, nil
}

// assign joins the article to its best-matching thread or creates a new
// one. Returns the thread and whether the article joined an existing one.
// Each thread is measured against its own effective threshold, so a close
// but stale or oversized thread that fails its bar does not shadow a
// smaller thread that qualifies.
func (e *Engine) assign(ctx context.Context, article *domain.Article, active []*domain.StoryThread) (*domain.StoryThread, bool, error) {
	var best *domain.StoryThread
	bestSimilarity := 0.0

	for _, thread := range active {
		if !thread.Active {
			continue
		}
		similarity := embedding.CosineSimilarity(thread.Centroid, article.Embedding)
		if similarity < e.EffectiveThreshold(thread, article.PublishedAt) {
			continue
		}
		if similarity > bestSimilarity {
			best = thread
			bestSimilarity = similarity
		}
	}

	if best != nil {
		if err := e.join(ctx, article, best, bestSimilarity); err != nil {
			return nil, false, err
		}
		return best, true, nil
	}

	thread, err := e.create(ctx, article)
	if err != nil {
		return nil, false, err
	}
	return thread, false, nil
}

// join adds the article and drags the centroid toward it. The EMA weight
// shrinks with thread size so a settled thread barely moves.
func (e *Engine) join(ctx context.Context, article *domain.Article, thread *domain.StoryThread, similarity float64) error {
	alpha := e.cfg.EMABaseAlpha / math.Log(float64(thread.MemberCount)+2)
	thread.Centroid = emaUpdate(thread.Centroid, article.Embedding, alpha)
	thread.MemberCount++
	if article.PublishedAt.After(thread.LastSeenAt) {
		thread.LastSeenAt = article.PublishedAt
	}

	if err := e.threads.Update(ctx, thread); err != nil {
		return fmt.Errorf("update thread %s: %w", thread.ID, err)
	}
	if err := e.threads.AddMembership(ctx, &domain.ThreadMembership{
		ThreadID:   thread.ID,
		ArticleID:  article.ID,
		Similarity: similarity,
		JoinedAt:   article.PublishedAt,
	}); err != nil {
		return fmt.Errorf("add membership: %w", err)
	}

	e.logger.Debug("Article joined thread",
		"article_id", article.ID,
		"thread_id", thread.ID,
		"similarity", similarity,
		"members", thread.MemberCount)
	return nil
}

// create starts a new thread seeded with the article.
func (e *Engine) create(ctx context.Context, article *domain.Article) (*domain.StoryThread, error) {
	thread := &domain.StoryThread{
		ID:          uuid.New().String(),
		Title:       article.Title,
		Centroid:    append(domain.Float64Vector(nil), article.Embedding...),
		MemberCount: 1,
		Active:      true,
		CreatedAt:   article.PublishedAt,
		LastSeenAt:  article.PublishedAt,
	}
	if err := e.threads.Create(ctx, thread); err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	if err := e.threads.AddMembership(ctx, &domain.ThreadMembership{
		ThreadID:   thread.ID,
		ArticleID:  article.ID,
		Similarity: 1.0,
		JoinedAt:   article.PublishedAt,
	}); err != nil {
		return nil, fmt.Errorf("add membership: %w", err)
	}

	e.logger.Debug("Thread created", "thread_id", thread.ID, "title", thread.Title)
	return thread, nil
}

// mergePass collapses active threads whose centroids have converged. The
// smaller thread is absorbed into the larger one and archived; memberships
// move, nothing is deleted.
func (e *Engine) mergePass(ctx context.Context, active []*domain.StoryThread) (int, error) {
	merged := 0
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			a, b := active[i], active[j]
			if !a.Active || !b.Active {
				continue
			}
			if embedding.CosineSimilarity(a.Centroid, b.Centroid) < e.cfg.MergeThreshold {
				continue
			}

			keep, absorb := a, b
			if absorb.MemberCount > keep.MemberCount {
				keep, absorb = absorb, keep
			}
			if err := e.merge(ctx, keep, absorb); err != nil {
				return merged, err
			}
			merged++
		}
	}
	return merged, nil
}

// merge folds absorb into keep with a member-count weighted centroid.
func (e *Engine) merge(ctx context.Context, keep, absorb *domain.StoryThread) error {
	total := float64(keep.MemberCount + absorb.MemberCount)
	keepWeight := float64(keep.MemberCount) / total
	keep.Centroid = weightedAverage(keep.Centroid, absorb.Centroid, keepWeight)
	keep.MemberCount += absorb.MemberCount
	if absorb.LastSeenAt.After(keep.LastSeenAt) {
		keep.LastSeenAt = absorb.LastSeenAt
	}

	if err := e.threads.MoveMemberships(ctx, absorb.ID, keep.ID); err != nil {
		return err
	}

	absorb.Active = false
	absorb.MemberCount = 0
	if err := e.threads.Update(ctx, absorb); err != nil {
		return fmt.Errorf("archive absorbed thread %s: %w", absorb.ID, err)
	}
	if err := e.threads.Update(ctx, keep); err != nil {
		return fmt.Errorf("update merged thread %s: %w", keep.ID, err)
	}

	e.logger.Info("Threads merged", "kept", keep.ID, "absorbed", absorb.ID, "members", keep.MemberCount)
	return nil
}

// archivePass deactivates threads that have gone quiet.
func (e *Engine) archivePass(ctx context.Context, active []*domain.StoryThread) (int, error) {
	cutoff := e.now().AddDate(0, 0, -e.cfg.InactiveAfterDays)
	archived := 0
	for _, thread := range active {
		if !thread.Active || !thread.LastSeenAt.Before(cutoff) {
			continue
		}
		thread.Active = false
		if err := e.threads.Update(ctx, thread); err != nil {
			return archived, fmt.Errorf("archive thread %s: %w", thread.ID, err)
		}
		archived++
	}
	return archived, nil
}

// emaUpdate moves the centroid toward the new vector by alpha.
func emaUpdate(centroid domain.Float64Vector, vector domain.Float64Vector, alpha float64) domain.Float64Vector {
	if len(centroid) != len(vector) {
		return centroid
	}
	updated := make(domain.Float64Vector, len(centroid))
	for i := range centroid {
		updated[i] = (1-alpha)*centroid[i] + alpha*vector[i]
	}
	return updated
}

// weightedAverage blends two centroids with the given weight on the first.
func weightedAverage(a, b domain.Float64Vector, weightA float64) domain.Float64Vector {
	if len(a) != len(b) {
		return a
	}
	blended := make(domain.Float64Vector, len(a))
	for i := range a {
		blended[i] = weightA*a[i] + (1-weightA)*b[i]
	}
	return blended
}
