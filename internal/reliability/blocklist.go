package reliability

import "strings"

// Snapshot is an immutable view of the block list and domain success rates,
// built once per run and handed to every worker. Workers never mutate it,
// which keeps concurrent seed processing free of shared mutable state.
type Snapshot struct {
	blocked map[string]struct{}
	rates   map[string]float64
	neutral float64
}

// NewSnapshot builds a snapshot from the current domain stats. neutral is
// the success-rate prior returned for domains with no history.
func NewSnapshot(stats []DomainView, neutral float64) *Snapshot {
	s := &Snapshot{
		blocked: make(map[string]struct{}, len(stats)),
		rates:   make(map[string]float64, len(stats)),
		neutral: neutral,
	}
	for _, stat := range stats {
		key := normalizeDomain(stat.Domain)
		if stat.Blocked {
			s.blocked[key] = struct{}{}
		}
		s.rates[key] = stat.SuccessRate
	}
	return s
}

// DomainView is the slice of DomainStat the snapshot needs.
type DomainView struct {
	Domain      string
	Blocked     bool
	SuccessRate float64
}

// IsBlocked reports whether the domain or any parent domain is blocked.
// A block on "yahoo.com" also matches "ca.finance.yahoo.com".
func (s *Snapshot) IsBlocked(domain string) bool {
	if s == nil {
		return false
	}
	for _, candidate := range parentChain(normalizeDomain(domain)) {
		if _, ok := s.blocked[candidate]; ok {
			return true
		}
	}
	return false
}

// SuccessRate returns the domain's observed success rate, or the neutral
// prior when the domain has no history. Exact match first, then parents, so
// an unseen subdomain inherits its parent's track record.
func (s *Snapshot) SuccessRate(domain string) float64 {
	if s == nil {
		return 0
	}
	for _, candidate := range parentChain(normalizeDomain(domain)) {
		if rate, ok := s.rates[candidate]; ok {
			return rate
		}
	}
	return s.neutral
}

// BlockedCount returns the number of blocked domains in the snapshot.
func (s *Snapshot) BlockedCount() int {
	return len(s.blocked)
}

// parentChain returns the domain and each parent down to the registrable
// two-label suffix: "a.b.example.com" -> [a.b.example.com b.example.com example.com].
func parentChain(domain string) []string {
	if domain == "" {
		return nil
	}
	chain := []string{domain}
	labels := strings.Split(domain, ".")
	for len(labels) > 2 {
		labels = labels[1:]
		chain = append(chain, strings.Join(labels, "."))
	}
	return chain
}

func normalizeDomain(domain string) string {
	domain = strings.ToLower(strings.TrimSpace(domain))
	return strings.TrimPrefix(domain, "www.")
}
