package poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobspot/internal/filter"
	"github.com/amishk599/jobspot/internal/metrics"
	"github.com/amishk599/jobspot/internal/model"
)

// Store is the slice of the persistent store a check cycle needs.
type Store interface {
	KnownStore
	Keywords() []string
	ChannelIDs() []int64
	AccentColor() int
}

// Enqueuer accepts batches for delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, batch model.Batch) error
}

// Result summarizes one check-and-notify cycle.
type Result struct {
	RunID   string
	Open    int
	New     int
	Matched int
	Failed  int // sources that failed this cycle
	// NoSignal reports a cycle with no open listings from any source.
	NoSignal bool
}

// Checker runs the full pipeline: aggregate, filter by keywords, hand off.
type Checker struct {
	agg     *Aggregator
	store   Store
	out     Enqueuer
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// NewChecker wires a checker. m may be nil.
func NewChecker(runner Runner, store Store, out Enqueuer, m *metrics.Metrics, logger *slog.Logger) *Checker {
	return &Checker{
		agg:     NewAggregator(runner, store, logger),
		store:   store,
		out:     out,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// CheckAndNotify runs one cycle. A batch is enqueued only when at least one
// new listing matches the keywords.
func (c *Checker) CheckAndNotify(ctx context.Context) (Result, error) {
	res := Result{RunID: uuid.NewString()}
	logger := c.logger.With("run_id", res.RunID)

	out, err := c.agg.check(ctx, logger)
	res.Open, res.Failed = out.Open.Len(), out.Report.Failed()
	if err != nil {
		c.metrics.ObserveCycle(0, 0, err)
		return res, err
	}
	res.New = out.New.Len()
	if out.NoSignal {
		res.NoSignal = true
		c.metrics.ObserveNoSignal()
		logger.Info("check complete without signal", "failed_sources", res.Failed)
		return res, nil
	}

	matched := filter.Keywords(out.New, c.store.Keywords())
	res.Matched = matched.Len()
	c.metrics.ObserveCycle(res.Open, res.New, nil)

	if res.Matched > 0 {
		batch := model.Batch{
			Listings: matched.Sorted(),
			Channels: c.store.ChannelIDs(),
			Accent:   c.store.AccentColor(),
			FoundAt:  c.now(),
		}
		if err := c.out.Enqueue(ctx, batch); err != nil {
			return res, fmt.Errorf("enqueue notification: %w", err)
		}
	}

	logger.Info("check complete",
		"open", res.Open,
		"new", res.New,
		"matched", res.Matched,
		"failed_sources", res.Failed,
	)
	return res, nil
}

// Seed populates an empty snapshot without notifying, so the first real
// check does not report every open listing as new. It reports whether a
// seeding pass ran, even one that found nothing; false means the snapshot
// already had listings and no source was run.
func (c *Checker) Seed(ctx context.Context) (bool, error) {
	if c.store.KnownListings().Len() > 0 {
		return false, nil
	}

	logger := c.logger.With("run_id", uuid.NewString())
	logger.Info("no known listings, seeding snapshot")

	out, err := c.agg.check(ctx, logger)
	if err != nil {
		return true, fmt.Errorf("seeding: %w", err)
	}
	logger.Info("seeded known listings", "open", out.Open.Len(), "failed_sources", out.Report.Failed())
	return true, nil
}
