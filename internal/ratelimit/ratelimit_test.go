package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amishk599/jobspot/internal/model"
)

func TestWait_SameProvider_EnforcesMinDelay(t *testing.T) {
	limiter := NewLimiter(100*time.Millisecond, nil)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "greenhouse"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "greenhouse"); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	elapsed := time.Since(start)

	// Allow some timer jitter.
	if elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait, got %v", elapsed)
	}
}

func TestWait_DifferentProviders_NoCrossBlocking(t *testing.T) {
	limiter := NewLimiter(200*time.Millisecond, nil)
	ctx := context.Background()

	if err := limiter.Wait(ctx, "greenhouse"); err != nil {
		t.Fatalf("greenhouse wait: %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(ctx, "lever"); err != nil {
		t.Fatalf("lever wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("expected lever wait to be near-instant, got %v", elapsed)
	}
}

func TestWait_OverrideApplies(t *testing.T) {
	limiter := NewLimiter(5*time.Second, map[string]time.Duration{"rss": 0})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := limiter.Wait(ctx, "rss"); err != nil {
			t.Fatalf("wait #%d: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("zero override should not throttle, took %v", elapsed)
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	limiter := NewLimiter(5*time.Second, nil)

	if err := limiter.Wait(context.Background(), "greenhouse"); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx, "greenhouse"); err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
}

func TestBackoff_DelaysNextWait(t *testing.T) {
	limiter := NewLimiter(0, nil)
	limiter.Backoff("lever", 100*time.Millisecond)

	start := time.Now()
	if err := limiter.Wait(context.Background(), "lever"); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected backoff of ~100ms, got %v", elapsed)
	}
}

// --- Fakes for Source tests ---

type recordingSource struct {
	called bool
	err    error
}

func (s *recordingSource) Name() string { return "recording" }

func (s *recordingSource) Scrape(_ context.Context) ([]model.Listing, error) {
	s.called = true
	return nil, s.err
}

func TestSource_WaitsBeforeDelegating(t *testing.T) {
	limiter := NewLimiter(100*time.Millisecond, nil)
	inner := &recordingSource{}
	src := NewSource(inner, limiter, "greenhouse")
	ctx := context.Background()

	if _, err := src.Scrape(ctx); err != nil {
		t.Fatalf("first scrape: %v", err)
	}
	if !inner.called {
		t.Fatal("inner source was not called on first scrape")
	}

	inner.called = false

	start := time.Now()
	if _, err := src.Scrape(ctx); err != nil {
		t.Fatalf("second scrape: %v", err)
	}
	if !inner.called {
		t.Fatal("inner source was not called on second scrape")
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected >= 80ms wait on second scrape, got %v", elapsed)
	}
	if src.Name() != "recording" {
		t.Errorf("Name() = %q, want recording", src.Name())
	}
}

func TestSource_TooManyRequestsRecordsBackoff(t *testing.T) {
	limiter := NewLimiter(0, nil)
	inner := &recordingSource{err: &model.HTTPError{StatusCode: 429, RetryAfter: 100 * time.Millisecond}}
	src := NewSource(inner, limiter, "ashby")

	_, err := src.Scrape(context.Background())
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError to pass through, got %v", err)
	}

	start := time.Now()
	if err := limiter.Wait(context.Background(), "ashby"); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("expected 429 to delay the provider, waited %v", elapsed)
	}
}
