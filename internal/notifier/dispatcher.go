package notifier

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/amishk599/jobspot/internal/metrics"
	"github.com/amishk599/jobspot/internal/model"
)

// ErrClosed is returned by Enqueue once the dispatcher has stopped.
var ErrClosed = errors.New("dispatcher closed")

const queueSize = 64

// Dispatcher hands batches from the check worker to a notifier running on
// its own goroutine. Batches are delivered one at a time in enqueue order.
// Delivery failures are logged and not retried.
type Dispatcher struct {
	notifier model.Notifier
	queue    chan model.Batch
	stopped  chan struct{}
	stopOnce sync.Once
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher for n. m may be nil.
func NewDispatcher(n model.Notifier, m *metrics.Metrics, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		notifier: n,
		queue:    make(chan model.Batch, queueSize),
		stopped:  make(chan struct{}),
		metrics:  m,
		logger:   logger,
	}
}

// Enqueue queues b for delivery. It blocks while the queue is full.
func (d *Dispatcher) Enqueue(ctx context.Context, b model.Batch) error {
	select {
	case <-d.stopped:
		return ErrClosed
	default:
	}
	select {
	case d.queue <- b:
		return nil
	case <-d.stopped:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run delivers batches until ctx is cancelled, then delivers whatever is
// already queued and returns.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case b := <-d.queue:
			d.deliver(ctx, b)
		case <-ctx.Done():
			d.stopOnce.Do(func() { close(d.stopped) })
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case b := <-d.queue:
			d.deliver(context.Background(), b)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, b model.Batch) {
	err := d.notifier.Notify(ctx, b)
	d.metrics.ObserveNotification(err)
	if err != nil {
		d.logger.Error("notification failed", "listings", len(b.Listings), "error", err)
	}
}

// Direct delivers synchronously on the caller's goroutine. Used by one-shot
// commands that exit right after the check.
type Direct struct {
	Notifier model.Notifier
}

// Enqueue delivers b immediately.
func (d Direct) Enqueue(ctx context.Context, b model.Batch) error {
	return d.Notifier.Notify(ctx, b)
}
