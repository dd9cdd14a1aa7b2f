package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/amishk599/jobspot/internal/model"
)

// defaultBackoff applies when a provider answers 429 without Retry-After.
const defaultBackoff = 60 * time.Second

// Limiter enforces a minimum delay between requests to the same provider.
// Each provider gets its own token bucket (burst 1), so sources on different
// providers never block each other.
type Limiter struct {
	mu        sync.Mutex
	minDelay  time.Duration
	overrides map[string]time.Duration
	buckets   map[string]*rate.Limiter
	retryAt   map[string]time.Time
}

// NewLimiter creates a limiter with minDelay between requests to the same
// provider. overrides replaces minDelay for individual providers.
func NewLimiter(minDelay time.Duration, overrides map[string]time.Duration) *Limiter {
	return &Limiter{
		minDelay:  minDelay,
		overrides: overrides,
		buckets:   make(map[string]*rate.Limiter),
		retryAt:   make(map[string]time.Time),
	}
}

func (l *Limiter) bucket(provider string) (*rate.Limiter, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[provider]
	if !ok {
		delay := l.minDelay
		if d, ok := l.overrides[provider]; ok {
			delay = d
		}
		limit := rate.Inf
		if delay > 0 {
			limit = rate.Every(delay)
		}
		b = rate.NewLimiter(limit, 1)
		l.buckets[provider] = b
	}
	return b, l.retryAt[provider]
}

// Wait blocks until a request to provider is allowed. It honours any backoff
// recorded by Backoff before consulting the token bucket.
func (l *Limiter) Wait(ctx context.Context, provider string) error {
	b, retryAt := l.bucket(provider)

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("rate limiter wait for %s: %w", provider, ctx.Err())
		case <-timer.C:
		}
	}

	if err := b.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait for %s: %w", provider, err)
	}
	return nil
}

// Backoff blocks provider for d. A non-positive d uses the default backoff.
func (l *Limiter) Backoff(provider string, d time.Duration) {
	if d <= 0 {
		d = defaultBackoff
	}
	l.mu.Lock()
	l.retryAt[provider] = time.Now().Add(d)
	l.mu.Unlock()
}

// Source is a decorator that waits on the provider's limiter before
// delegating to the wrapped source. A 429 from the source pushes back later
// requests to the same provider.
type Source struct {
	inner    model.Source
	limiter  *Limiter
	provider string
}

// NewSource wraps inner with provider-level rate limiting. All sources
// targeting the same provider should share one Limiter.
func NewSource(inner model.Source, limiter *Limiter, provider string) *Source {
	return &Source{inner: inner, limiter: limiter, provider: provider}
}

// Name returns the wrapped source's name.
func (s *Source) Name() string { return s.inner.Name() }

// Scrape waits for the limiter, then delegates to the wrapped source.
func (s *Source) Scrape(ctx context.Context) ([]model.Listing, error) {
	if err := s.limiter.Wait(ctx, s.provider); err != nil {
		return nil, err
	}
	listings, err := s.inner.Scrape(ctx)

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusTooManyRequests {
		s.limiter.Backoff(s.provider, httpErr.RetryAfter)
	}
	return listings, err
}
