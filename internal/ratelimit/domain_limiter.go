// Package ratelimit enforces per-domain politeness between fetches.
package ratelimit

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DomainLimiter spaces fetches to the same domain by a minimum interval,
// with a token bucket underneath so bursts across many workers still respect
// the per-domain cadence.
type DomainLimiter struct {
	minInterval time.Duration

	mu       sync.Mutex
	last     map[string]time.Time
	limiters map[string]*rate.Limiter
}

// NewDomainLimiter creates a limiter with the given minimum interval between
// fetches to the same domain. A non-positive interval disables limiting.
func NewDomainLimiter(minInterval time.Duration) *DomainLimiter {
	limiter := &DomainLimiter{minInterval: minInterval}
	if minInterval > 0 {
		limiter.last = make(map[string]time.Time)
		limiter.limiters = make(map[string]*rate.Limiter)
	}
	return limiter
}

// Wait blocks until the domain may be fetched again, or ctx is done.
func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	if d == nil || d.minInterval <= 0 || domain == "" {
		return nil
	}
	domain = strings.ToLower(domain)

	var sleep time.Duration
	now := time.Now()

	d.mu.Lock()
	if last, ok := d.last[domain]; ok {
		if rest := last.Add(d.minInterval).Sub(now); rest > 0 {
			sleep = rest
		}
	}
	limiter := d.ensureLimiterLocked(domain)
	d.mu.Unlock()

	if sleep > 0 {
		timer := time.NewTimer(sleep)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	if err := limiter.Wait(ctx); err != nil {
		return err
	}

	d.mu.Lock()
	d.last[domain] = time.Now()
	d.mu.Unlock()
	return nil
}

func (d *DomainLimiter) ensureLimiterLocked(domain string) *rate.Limiter {
	if limiter, ok := d.limiters[domain]; ok {
		return limiter
	}
	limiter := rate.NewLimiter(rate.Every(d.minInterval), 1)
	d.limiters[domain] = limiter
	return limiter
}
