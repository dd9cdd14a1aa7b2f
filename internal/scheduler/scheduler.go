package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/amishk599/jobspot/internal/poller"
)

// ErrStopped is returned by Trigger and Exec once Run has returned.
var ErrStopped = errors.New("scheduler stopped")

// Checker runs check cycles.
type Checker interface {
	CheckAndNotify(ctx context.Context) (poller.Result, error)
	Seed(ctx context.Context) (bool, error)
}

type requestKind int

const (
	kindTick requestKind = iota
	kindTrigger
	kindExec
)

type request struct {
	kind  requestKind
	fn    func(context.Context) error
	reply chan reply
}

type reply struct {
	result poller.Result
	err    error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithSchedule replaces the fixed-interval schedule.
func WithSchedule(s cron.Schedule) Option {
	return func(sc *Scheduler) { sc.schedule = s }
}

// Scheduler owns the single worker that runs check cycles. Timer ticks,
// manual triggers and Exec calls are queued to it and run one at a time in
// arrival order, so no two of them ever overlap.
type Scheduler struct {
	checker  Checker
	interval time.Duration
	schedule cron.Schedule
	requests chan request
	stopped  chan struct{}
	pending  atomic.Bool // a tick is queued or running
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that runs a check every interval.
func NewScheduler(checker Checker, interval time.Duration, logger *slog.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		checker:  checker,
		interval: interval,
		schedule: cron.Every(interval),
		requests: make(chan request),
		stopped:  make(chan struct{}),
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run seeds an empty snapshot or, when one exists, runs one immediate check,
// then serves
// ticks and requests until ctx is cancelled. It returns nil on shutdown.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "interval", s.interval.String())
	defer close(s.stopped)

	// A seeding pass, even an empty or failed one, stands in for the
	// immediate check.
	attempted, err := s.checker.Seed(ctx)
	if err != nil {
		s.logger.Error("seeding failed", "error", err)
	}
	if !attempted && ctx.Err() == nil {
		s.runCheck(ctx)
	}

	c := cron.New()
	c.Schedule(s.schedule, cron.FuncJob(func() { s.tick(ctx) }))
	c.Start()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down scheduler")
			<-c.Stop().Done()
			return nil
		case req := <-s.requests:
			s.handle(ctx, req)
		}
	}
}

func (s *Scheduler) handle(ctx context.Context, req request) {
	switch req.kind {
	case kindTick:
		s.runCheck(ctx)
		s.pending.Store(false)
	case kindTrigger:
		res, err := s.checker.CheckAndNotify(ctx)
		req.reply <- reply{result: res, err: err}
	case kindExec:
		req.reply <- reply{err: req.fn(ctx)}
	}
}

func (s *Scheduler) runCheck(ctx context.Context) {
	if _, err := s.checker.CheckAndNotify(ctx); err != nil {
		s.logger.Error("check failed", "error", err)
	}
}

// tick is called by cron on its own goroutine. A tick that arrives while an
// earlier one is still queued or running is dropped.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.pending.CompareAndSwap(false, true) {
		s.logger.Warn("previous check still pending, skipping tick")
		return
	}
	select {
	case s.requests <- request{kind: kindTick}:
	case <-ctx.Done():
		s.pending.Store(false)
	case <-s.stopped:
		s.pending.Store(false)
	}
}

// Trigger queues a manual check and waits for its result. Manual triggers
// are never dropped; they wait behind whatever is running.
func (s *Scheduler) Trigger(ctx context.Context) (poller.Result, error) {
	r, err := s.submit(ctx, request{kind: kindTrigger})
	return r.result, err
}

// Exec runs fn on the worker, serialized with check cycles, and returns its
// error.
func (s *Scheduler) Exec(ctx context.Context, fn func(context.Context) error) error {
	r, err := s.submit(ctx, request{kind: kindExec, fn: fn})
	if err != nil {
		return err
	}
	return r.err
}

func (s *Scheduler) submit(ctx context.Context, req request) (reply, error) {
	req.reply = make(chan reply, 1)
	select {
	case s.requests <- req:
	case <-s.stopped:
		return reply{}, ErrStopped
	case <-ctx.Done():
		return reply{}, fmt.Errorf("waiting for scheduler: %w", ctx.Err())
	}

	select {
	case r := <-req.reply:
		if req.kind == kindTrigger {
			return r, r.err
		}
		return r, nil
	case <-ctx.Done():
		return reply{}, fmt.Errorf("waiting for scheduler: %w", ctx.Err())
	}
}
