package gate

import (
	"strings"

	"github.com/jonesrussell/newsthreader/internal/domain"
	"github.com/jonesrussell/newsthreader/internal/fetcher"
)

// GarbageConfig holds the content quality thresholds.
type GarbageConfig struct {
	// MinTextLength is the minimum extracted body length in bytes.
	MinTextLength int
	// MinUniqueWordRatio rejects repetitive boilerplate: unique words
	// divided by total words must stay above this.
	MinUniqueWordRatio float64
	// MaxMarkupRatio rejects pages whose extracted text is still mostly
	// markup characters, which means extraction hit raw JS or JSON.
	MaxMarkupRatio float64
}

// GarbageDetector applies cheap lexical checks to extracted content before
// any embedding or judge call is spent on it.
type GarbageDetector struct {
	cfg GarbageConfig
}

// NewGarbageDetector creates a garbage detector.
func NewGarbageDetector(cfg GarbageConfig) *GarbageDetector {
	return &GarbageDetector{cfg: cfg}
}

// paywallMarkers are phrases that indicate the article body was withheld.
var paywallMarkers = []string{
	"subscribe to continue reading",
	"subscribe to read",
	"sign in to continue reading",
	"this content is for subscribers",
	"create a free account to continue",
	"register to continue reading",
}

// markupChars are characters that should be rare in clean article text.
const markupChars = "<>{}[]|;="

// Check inspects extracted content and returns the failure reason, or
// ReasonNone when the content is usable.
func (d *GarbageDetector) Check(content *fetcher.ExtractedContent) domain.FailureReason {
	body := strings.TrimSpace(content.Body)
	if body == "" {
		return domain.ReasonEmptyContent
	}

	lower := strings.ToLower(body)
	for _, marker := range paywallMarkers {
		if strings.Contains(lower, marker) {
			return domain.ReasonPaywall
		}
	}

	if len(body) < d.cfg.MinTextLength {
		return domain.ReasonEmptyContent
	}

	if markupRatio(body) > d.cfg.MaxMarkupRatio {
		return domain.ReasonGarbage
	}

	if uniqueWordRatio(lower) < d.cfg.MinUniqueWordRatio {
		return domain.ReasonGarbage
	}

	return domain.ReasonNone
}

// markupRatio is the fraction of markup characters in the text.
func markupRatio(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	count := 0
	for _, r := range text {
		if strings.ContainsRune(markupChars, r) {
			count++
		}
	}
	return float64(count) / float64(len(text))
}

// uniqueWordRatio is distinct words over total words.
func uniqueWordRatio(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}
	return float64(len(seen)) / float64(len(words))
}
