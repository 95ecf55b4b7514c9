// Package gate runs the crawl quality pipeline for one seed story: ordered
// candidates pass through fetch, garbage, relevance, and judge stages until
// at most one survives.
package gate

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/newsthreader/internal/domain"
	"github.com/jonesrussell/newsthreader/internal/embedding"
	"github.com/jonesrussell/newsthreader/internal/fetcher"
	"github.com/jonesrussell/newsthreader/internal/judge"
	"github.com/jonesrussell/newsthreader/internal/logger"
)

// Config holds the gate thresholds.
type Config struct {
	// RelevanceThreshold is the minimum cosine similarity between the seed
	// embedding and the candidate text embedding.
	RelevanceThreshold float64
	// RelevanceMaxChars caps how much extracted text is embedded.
	RelevanceMaxChars int
	// JudgeAcceptScore accepts a candidate whose judge score reaches this
	// value even without a same-event verdict.
	JudgeAcceptScore float64
}

// Fetcher downloads a candidate page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor pulls article content out of a fetched page.
type Extractor interface {
	Extract(body []byte) (*fetcher.ExtractedContent, error)
}

// Embedder produces an embedding vector for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Judge decides whether a candidate covers the seed's event.
type Judge interface {
	Judge(ctx context.Context, seed *domain.SeedStory, title, text string) (*domain.JudgeVerdict, error)
}

// OutcomeStore persists per-candidate outcomes.
type OutcomeStore interface {
	Record(ctx context.Context, o *domain.CrawlOutcome) error
	SkipSiblings(ctx context.Context, seedID, acceptedCandidateID string) error
}

// ArticleStore persists accepted articles.
type ArticleStore interface {
	Create(ctx context.Context, a *domain.Article) error
}

// Blocklist answers domain block and success-rate queries. Both are reads
// against an immutable per-run snapshot.
type Blocklist interface {
	IsBlocked(domain string) bool
	SuccessRate(domain string) float64
}

// Limiter spaces fetches to the same domain.
type Limiter interface {
	Wait(ctx context.Context, domain string) error
}

// SeedResult summarizes what happened to one seed story.
type SeedResult struct {
	SeedID string
	Status domain.SeedStoryStatus
	// Accepted is the successful outcome, nil when the seed exhausted.
	Accepted *domain.CrawlOutcome
	// Article is the promoted evidence for an accepted seed.
	Article *domain.Article
	// Attempted counts candidates that got a terminal outcome this run.
	Attempted int
	// OutcomeCounts tallies terminal outcomes by status.
	OutcomeCounts map[string]int
	// EmbeddingDown is set when the run aborted on an embedding outage.
	// The seed stays pending for the next run.
	EmbeddingDown bool
}

// Gate is the per-seed crawl pipeline.
type Gate struct {
	fetcher   Fetcher
	extractor Extractor
	garbage   *GarbageDetector
	embedder  Embedder
	judge     Judge
	outcomes  OutcomeStore
	articles  ArticleStore
	limiter   Limiter
	cfg       Config
	logger    logger.Interface
	now       func() time.Time
}

// New creates a gate. judge may be nil, which disables the judge stage.
func New(
	f Fetcher,
	extractor Extractor,
	garbage *GarbageDetector,
	embedder Embedder,
	j Judge,
	outcomes OutcomeStore,
	articles ArticleStore,
	limiter Limiter,
	cfg Config,
	log logger.Interface,
) *Gate {
	return &Gate{
		fetcher:   f,
		extractor: extractor,
		garbage:   garbage,
		embedder:  embedder,
		judge:     j,
		outcomes:  outcomes,
		articles:  articles,
		limiter:   limiter,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
	}
}

// ProcessSeed works through the seed's candidates in priority order and
// stops at the first acceptance. Candidates after an acceptance are marked
// skipped, never attempted.
func (g *Gate) ProcessSeed(ctx context.Context, seed *domain.SeedStory, candidates []domain.Candidate, blocklist Blocklist) (*SeedResult, error) {
	result := &SeedResult{
		SeedID:        seed.ID,
		Status:        domain.SeedStatusExhausted,
		OutcomeCounts: map[string]int{},
	}
	ordered := orderCandidates(candidates, blocklist)

	for i := range ordered {
		candidate := &ordered[i]
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		outcome, err := g.attempt(ctx, seed, candidate, blocklist)
		if err != nil {
			if errors.Is(err, embedding.ErrUnavailable) {
				g.logger.Warn("Embedding service down, aborting seed",
					"seed_id", seed.ID, "candidate_id", candidate.ID)
				result.EmbeddingDown = true
				result.Status = domain.SeedStatusPending
				return result, nil
			}
			return nil, err
		}
		result.Attempted++
		result.OutcomeCounts[string(outcome.Status)]++

		if outcome.Status != domain.OutcomeSuccess {
			g.logger.Debug("Candidate rejected",
				"seed_id", seed.ID,
				"candidate_id", candidate.ID,
				"domain", candidate.Domain,
				"status", string(outcome.Status),
				"reason", string(outcome.Reason))
			continue
		}

		article, acceptErr := g.accept(ctx, seed, candidate, outcome)
		if acceptErr != nil {
			return nil, acceptErr
		}
		result.Status = domain.SeedStatusAccepted
		result.Accepted = outcome
		result.Article = article
		return result, nil
	}

	g.logger.Info("Seed exhausted", "seed_id", seed.ID, "candidates", len(ordered))
	return result, nil
}

// attempt runs one candidate through the full stage sequence and records
// its terminal outcome. An embedding outage is returned as an error and
// recorded before returning; everything else becomes a terminal outcome.
func (g *Gate) attempt(ctx context.Context, seed *domain.SeedStory, candidate *domain.Candidate, blocklist Blocklist) (*domain.CrawlOutcome, error) {
	outcome := g.newOutcome(seed, candidate)

	if blocklist.IsBlocked(candidate.Domain) {
		outcome.Status = domain.OutcomeFailed
		outcome.Reason = domain.ReasonDomainBlocked
		return outcome, g.record(ctx, outcome)
	}

	if waitErr := g.limiter.Wait(ctx, candidate.Domain); waitErr != nil {
		return nil, fmt.Errorf("rate limit wait: %w", waitErr)
	}

	content, failReason := g.fetchAndExtract(ctx, candidate, outcome)
	if failReason != domain.ReasonNone {
		outcome.Status = statusForReason(failReason)
		outcome.Reason = failReason
		return outcome, g.record(ctx, outcome)
	}
	outcome.ExtractedTitle = &content.Title
	outcome.ExtractedText = &content.Body

	if reason := g.garbage.Check(content); reason != domain.ReasonNone {
		outcome.Status = statusForReason(reason)
		outcome.Reason = reason
		return outcome, g.record(ctx, outcome)
	}

	similarity, err := g.relevance(ctx, seed, content)
	if err != nil {
		outcome.Status = domain.OutcomeFailed
		outcome.Reason = domain.ReasonEmbeddingDown
		if recordErr := g.record(ctx, outcome); recordErr != nil {
			return nil, recordErr
		}
		return nil, err
	}
	outcome.RelevanceScore = &similarity

	if similarity < g.cfg.RelevanceThreshold {
		outcome.Status = domain.OutcomeLowRelevance
		outcome.Reason = domain.ReasonLowRelevance
		return outcome, g.record(ctx, outcome)
	}

	if pass, judgeErr := g.judgeStage(ctx, seed, content, outcome); judgeErr != nil {
		return nil, judgeErr
	} else if !pass {
		// Semantic mismatch, same class as the relevance gate: the page was
		// real, it just covered a different event.
		outcome.Status = domain.OutcomeLowRelevance
		outcome.Reason = domain.ReasonJudgeReject
		return outcome, g.record(ctx, outcome)
	}

	outcome.Status = domain.OutcomeSuccess
	outcome.Reason = domain.ReasonNone
	return outcome, g.record(ctx, outcome)
}

// fetchAndExtract downloads and parses the candidate page. Returns the
// content on success, or the classified failure reason.
func (g *Gate) fetchAndExtract(ctx context.Context, candidate *domain.Candidate, outcome *domain.CrawlOutcome) (*fetcher.ExtractedContent, domain.FailureReason) {
	body, err := g.fetcher.Fetch(ctx, candidate.URL)
	fetchedAt := g.now()
	outcome.FetchedAt = &fetchedAt
	if err != nil {
		return nil, reasonFromError(err)
	}

	content, err := g.extractor.Extract(body)
	if err != nil {
		return nil, reasonFromError(err)
	}
	return content, domain.ReasonNone
}

// relevance embeds the candidate text and compares it to the seed embedding.
func (g *Gate) relevance(ctx context.Context, seed *domain.SeedStory, content *fetcher.ExtractedContent) (float64, error) {
	text := truncate(content.Body, g.cfg.RelevanceMaxChars)

	vector, err := g.embedder.Embed(ctx, text)
	if err != nil {
		return 0, fmt.Errorf("embed candidate text: %w", err)
	}
	return embedding.CosineSimilarity(seed.Embedding, vector), nil
}

// judgeStage asks the semantic judge about the candidate. A disabled judge
// passes everything; an unavailable judge degrades to relevance-only
// acceptance rather than stalling the run.
func (g *Gate) judgeStage(ctx context.Context, seed *domain.SeedStory, content *fetcher.ExtractedContent, outcome *domain.CrawlOutcome) (bool, error) {
	if g.judge == nil {
		return true, nil
	}

	verdict, err := g.judge.Judge(ctx, seed, content.Title, content.Body)
	if err != nil {
		if errors.Is(err, judge.ErrUnavailable) {
			g.logger.Warn("Judge unavailable, accepting on relevance alone",
				"seed_id", seed.ID, "candidate_id", outcome.CandidateID)
			return true, nil
		}
		return false, fmt.Errorf("judge candidate: %w", err)
	}

	outcome.JudgeSameEvent = &verdict.SameEvent
	outcome.JudgeScore = &verdict.Score
	outcome.JudgeConfidence = &verdict.Confidence
	return verdict.SameEvent || verdict.Score >= g.cfg.JudgeAcceptScore, nil
}

// accept promotes the successful outcome to an article and skips the
// remaining siblings.
func (g *Gate) accept(ctx context.Context, seed *domain.SeedStory, candidate *domain.Candidate, outcome *domain.CrawlOutcome) (*domain.Article, error) {
	text := ""
	title := ""
	if outcome.ExtractedText != nil {
		text = *outcome.ExtractedText
	}
	if outcome.ExtractedTitle != nil {
		title = *outcome.ExtractedTitle
	}

	vector, err := g.embedder.Embed(ctx, truncate(text, g.cfg.RelevanceMaxChars))
	if err != nil {
		return nil, fmt.Errorf("embed accepted article: %w", err)
	}

	publishedAt := g.now()
	if outcome.FetchedAt != nil {
		publishedAt = *outcome.FetchedAt
	}

	article := &domain.Article{
		ID:               uuid.New().String(),
		SeedID:           seed.ID,
		OutcomeID:        outcome.ID,
		Title:            title,
		URL:              candidate.URL,
		Domain:           candidate.Domain,
		Text:             text,
		Embedding:        vector,
		ImportanceWeight: 1.0,
		IsRoundup:        looksLikeRoundup(title),
		PublishedAt:      publishedAt,
	}
	if createErr := g.articles.Create(ctx, article); createErr != nil {
		return nil, createErr
	}

	if skipErr := g.outcomes.SkipSiblings(ctx, seed.ID, candidate.ID); skipErr != nil {
		return nil, skipErr
	}

	g.logger.Info("Seed accepted",
		"seed_id", seed.ID,
		"candidate_id", candidate.ID,
		"domain", candidate.Domain,
		"url", candidate.URL)
	return article, nil
}

func (g *Gate) newOutcome(seed *domain.SeedStory, candidate *domain.Candidate) *domain.CrawlOutcome {
	return &domain.CrawlOutcome{
		ID:          uuid.New().String(),
		SeedID:      seed.ID,
		CandidateID: candidate.ID,
		URL:         candidate.URL,
		Domain:      candidate.Domain,
		Status:      domain.OutcomePending,
	}
}

func (g *Gate) record(ctx context.Context, outcome *domain.CrawlOutcome) error {
	if err := g.outcomes.Record(ctx, outcome); err != nil {
		return fmt.Errorf("record outcome: %w", err)
	}
	return nil
}

// orderCandidates sorts by similarity weighted by the domain's observed
// success rate, so reliable sources get attempted first. Ties keep the
// upstream priority rank.
func orderCandidates(candidates []domain.Candidate, blocklist Blocklist) []domain.Candidate {
	ordered := make([]domain.Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		wi := ordered[i].SimilarityScore * blocklist.SuccessRate(ordered[i].Domain)
		wj := ordered[j].SimilarityScore * blocklist.SuccessRate(ordered[j].Domain)
		if wi != wj {
			return wi > wj
		}
		return ordered[i].PriorityRank < ordered[j].PriorityRank
	})
	return ordered
}

// statusForReason maps a failure reason onto the outcome status column.
// Content-quality rejections record garbage; transport and judge failures
// record failed.
func statusForReason(reason domain.FailureReason) domain.OutcomeStatus {
	switch reason {
	case domain.ReasonGarbage, domain.ReasonEmptyContent, domain.ReasonPaywall:
		return domain.OutcomeGarbage
	default:
		return domain.OutcomeFailed
	}
}

// reasonFromError pulls the classified reason off a fetch or parse error.
func reasonFromError(err error) domain.FailureReason {
	var fetchErr *fetcher.FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Reason
	}
	return domain.ReasonConnection
}

// roundupMarkers flag periodic digest articles that bundle many topics.
var roundupMarkers = []string{
	"roundup",
	"round-up",
	"week in review",
	"top stories",
	"morning briefing",
	"evening briefing",
	"what to know today",
	"news quiz",
}

func looksLikeRoundup(title string) bool {
	lower := strings.ToLower(title)
	for _, marker := range roundupMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// truncate caps text at limit characters, cutting on a rune boundary.
func truncate(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == limit {
			return text[:i]
		}
		count++
	}
	return text
}
