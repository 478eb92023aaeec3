// Package ratelimit paces page visits so the audited sites are not hammered.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter applies a global rate plus per-domain pacing.
type Limiter struct {
	mu           sync.Mutex
	limiter      *rate.Limiter
	perDomain    map[string]*rate.Limiter
	defaultRate  rate.Limit
	defaultBurst int
	domainDelay  time.Duration
	lastRequest  map[string]time.Time
}

// NewLimiter creates a rate limiter.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiter:      rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
		perDomain:    make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
		lastRequest:  make(map[string]time.Time),
	}
}

// Wait blocks until a request is allowed or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// WaitDomain blocks until a request to the given domain is allowed. The
// global limit, the per-domain limit, and the minimum inter-request delay
// all apply.
func (l *Limiter) WaitDomain(ctx context.Context, domain string) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return err
	}

	l.mu.Lock()
	domainLimiter, exists := l.perDomain[domain]
	if !exists {
		domainLimiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
		l.perDomain[domain] = domainLimiter
	}

	if l.domainDelay > 0 {
		if lastReq, ok := l.lastRequest[domain]; ok {
			if elapsed := time.Since(lastReq); elapsed < l.domainDelay {
				l.mu.Unlock()
				select {
				case <-time.After(l.domainDelay - elapsed):
				case <-ctx.Done():
					return ctx.Err()
				}
				l.mu.Lock()
			}
		}
		l.lastRequest[domain] = time.Now()
	}
	l.mu.Unlock()

	return domainLimiter.Wait(ctx)
}

// SetDomainRate sets a custom rate limit for one domain.
func (l *Limiter) SetDomainRate(domain string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.perDomain[domain] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// SetDomainDelay sets the minimum delay between requests to the same domain.
func (l *Limiter) SetDomainDelay(delay time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.domainDelay = delay
}

// Allow reports whether a request is allowed right now, without blocking.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
