// Package registry runs the configured sources and collects their listings.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobspot/internal/metrics"
	"github.com/amishk599/jobspot/internal/model"
)

// ErrNoSources is returned by New when no source is registered.
var ErrNoSources = errors.New("no sources registered")

// Result is the outcome of one source invocation. Exactly one of Listings and
// Err is meaningful.
type Result struct {
	Source   string
	Listings []model.Listing
	Err      error
	Duration time.Duration
}

// Report is the outcome of running every source once.
type Report struct {
	Open    model.ListingSet // union of every successful source
	Results []Result         // in registration order
}

// Failed returns the number of sources that errored or panicked.
func (r Report) Failed() int {
	n := 0
	for _, res := range r.Results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

// Option configures a Registry.
type Option func(*Registry)

// WithTimeout bounds each source invocation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) { r.timeout = d }
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithMetrics records per-source outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// Registry holds the fixed list of sources for the lifetime of the process.
type Registry struct {
	sources []model.Source
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates a registry over sources.
func New(sources []model.Source, opts ...Option) (*Registry, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	r := &Registry{
		sources: sources,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	return len(r.sources)
}

// RunAll invokes every source sequentially. A failing source is logged and
// contributes nothing; the others still run.
func (r *Registry) RunAll(ctx context.Context) Report {
	report := Report{
		Open:    make(model.ListingSet),
		Results: make([]Result, 0, len(r.sources)),
	}
	for _, src := range r.sources {
		res := r.run(ctx, src)
		report.Results = append(report.Results, res)
		r.metrics.ObserveScrape(res.Source, res.Duration, res.Err)

		if res.Err != nil {
			attrs := []any{"source", res.Source, "error", res.Err}
			var httpErr *model.HTTPError
			if errors.As(res.Err, &httpErr) {
				attrs = append(attrs, "status", httpErr.StatusCode)
			}
			r.logger.Error("source failed", attrs...)
			continue
		}

		report.Open.Union(model.NewListingSet(res.Listings...))
		r.logger.Debug("source scraped",
			"source", res.Source,
			"listings", len(res.Listings),
			"duration", res.Duration.Round(time.Millisecond),
		)
	}
	return report
}

func (r *Registry) run(ctx context.Context, src model.Source) (res Result) {
	res.Source = src.Name()
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			res.Listings = nil
			res.Err = fmt.Errorf("source %s panicked: %v", res.Source, p)
		}
		res.Duration = time.Since(start)
	}()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	listings, err := src.Scrape(ctx)
	if err != nil {
		res.Err = fmt.Errorf("scraping %s: %w", res.Source, err)
		return res
	}
	res.Listings = listings
	return res
}
