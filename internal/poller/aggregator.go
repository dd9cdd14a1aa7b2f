package poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amishk599/jobspot/internal/model"
	"github.com/amishk599/jobspot/internal/registry"
)

// Runner runs every source once and reports the union of their listings.
type Runner interface {
	RunAll(ctx context.Context) registry.Report
}

// KnownStore holds the snapshot of listings seen at the last check.
type KnownStore interface {
	KnownListings() model.ListingSet
	SetKnownListings(ctx context.Context, listings model.ListingSet) error
}

// Outcome is the result of one aggregation.
type Outcome struct {
	Open   model.ListingSet
	New    model.ListingSet
	Report registry.Report
	// NoSignal is set when no source returned a listing and the snapshot
	// was left untouched.
	NoSignal bool
}

// Aggregator diffs the currently open listings against the stored snapshot.
type Aggregator struct {
	runner Runner
	store  KnownStore
	logger *slog.Logger
}

// NewAggregator creates an aggregator over runner and store.
func NewAggregator(runner Runner, store KnownStore, logger *slog.Logger) *Aggregator {
	return &Aggregator{runner: runner, store: store, logger: logger}
}

// CheckForNew returns the listings open now that were not open at the last
// check, and replaces the stored snapshot with the current one.
func (a *Aggregator) CheckForNew(ctx context.Context) (model.ListingSet, error) {
	out, err := a.check(ctx, a.logger)
	if err != nil {
		return nil, err
	}
	return out.New, nil
}

func (a *Aggregator) check(ctx context.Context, logger *slog.Logger) (Outcome, error) {
	report := a.runner.RunAll(ctx)
	out := Outcome{
		Open:   report.Open,
		New:    make(model.ListingSet),
		Report: report,
	}

	// Nothing open is indistinguishable from every source being down, so the
	// snapshot is left alone rather than wiped.
	if out.Open.Len() == 0 {
		logger.Warn("no open listings from any source, keeping previous snapshot",
			"failed", report.Failed(),
			"healthy", len(report.Results)-report.Failed(),
		)
		out.NoSignal = true
		return out, nil
	}

	out.New = out.Open.Diff(a.store.KnownListings())

	if err := a.store.SetKnownListings(ctx, out.Open); err != nil {
		return out, fmt.Errorf("persisting known listings: %w", err)
	}
	return out, nil
}
