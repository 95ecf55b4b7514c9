package domain

import "time"

// OutcomeStatus is the terminal (or pending) state of one crawl attempt.
type OutcomeStatus string

// Crawl outcome statuses.
const (
	OutcomePending       OutcomeStatus = "pending"
	OutcomeSuccess       OutcomeStatus = "success"
	OutcomeFailed        OutcomeStatus = "failed"
	OutcomeGarbage       OutcomeStatus = "garbage"
	OutcomeLowRelevance  OutcomeStatus = "low_relevance"
	OutcomeSkipped       OutcomeStatus = "skipped"
	OutcomeResolveFailed OutcomeStatus = "resolve_failed"
)

// FailureReason is a closed enumeration of why a candidate was rejected.
// Stages produce these directly; there is no free-text classification.
type FailureReason string

// Failure reasons. The blockable/non-blockable partition over these is
// static: see Blockable.
const (
	ReasonNone          FailureReason = ""
	ReasonTimeout       FailureReason = "timeout"
	ReasonConnection    FailureReason = "connection_error"
	ReasonHTTPError     FailureReason = "http_error"
	ReasonParseError    FailureReason = "parse_error"
	ReasonEmptyContent  FailureReason = "empty_content"
	ReasonGarbage       FailureReason = "garbage_content"
	ReasonPaywall       FailureReason = "paywall"
	ReasonLowRelevance  FailureReason = "low_relevance"
	ReasonJudgeReject   FailureReason = "judge_reject"
	ReasonDomainBlocked FailureReason = "domain_blocked"
	ReasonEmbeddingDown FailureReason = "embedding_unavailable"
)

// blockableReasons marks the reasons that count against a domain's
// reliability. Content-mismatch reasons (low relevance, judge rejection)
// are the candidate's fault, not the domain's, and are excluded. Skips and
// service outages never reached the domain at all.
var blockableReasons = map[FailureReason]bool{
	ReasonTimeout:      true,
	ReasonConnection:   true,
	ReasonHTTPError:    true,
	ReasonParseError:   true,
	ReasonEmptyContent: true,
	ReasonGarbage:      true,
	ReasonPaywall:      true,
}

// Blockable reports whether this failure reason counts toward domain blocking.
func (r FailureReason) Blockable() bool {
	return blockableReasons[r]
}

// JudgeVerdict is the semantic judge's answer for one (seed, candidate) pair.
type JudgeVerdict struct {
	SameEvent  bool    `json:"same_event"`
	Score      float64 `json:"score"` // 0-10 relevance
	Confidence float64 `json:"confidence"`
}

// CrawlOutcome records the result of attempting to fetch and validate one
// candidate. At most one outcome per seed story reaches OutcomeSuccess.
type CrawlOutcome struct {
	ID          string        `db:"id"           json:"id"`
	SeedID      string        `db:"seed_id"      json:"seed_id"`
	CandidateID string        `db:"candidate_id" json:"candidate_id"`
	URL         string        `db:"url"          json:"url"`
	Domain      string        `db:"domain"       json:"domain"`
	Status      OutcomeStatus `db:"status"       json:"status"`
	Reason      FailureReason `db:"reason"       json:"reason,omitempty"`

	ExtractedTitle *string  `db:"extracted_title" json:"extracted_title,omitempty"`
	ExtractedText  *string  `db:"extracted_text"  json:"extracted_text,omitempty"`
	RelevanceScore *float64 `db:"relevance_score" json:"relevance_score,omitempty"`

	JudgeSameEvent  *bool    `db:"judge_same_event"  json:"judge_same_event,omitempty"`
	JudgeScore      *float64 `db:"judge_score"       json:"judge_score,omitempty"`
	JudgeConfidence *float64 `db:"judge_confidence"  json:"judge_confidence,omitempty"`

	FetchedAt *time.Time `db:"fetched_at" json:"fetched_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// Terminal reports whether the outcome has reached a final state.
// Terminal outcomes are immutable except for the skipped transition.
func (o *CrawlOutcome) Terminal() bool {
	return o.Status != OutcomePending
}
