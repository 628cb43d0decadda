// Package scheduler runs a job immediately and then at a fixed interval.
//
// Every run gets its own goroutine: a slow run never delays the next tick, so
// runs may overlap. There is no backoff, jitter or de-duplication. Panics in
// a run are recovered and logged.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Job is the work performed on every tick.
type Job func(ctx context.Context)

// Option configures a [Scheduler].
type Option func(*Scheduler)

// WithClock replaces the wall clock, mainly for tests.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger used for panic reports.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// Scheduler calls a [Job] once on start and then on every tick.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Scheduler struct {
	interval time.Duration
	job      Job
	clock    clockwork.Clock
	logger   *slog.Logger

	runs     conc.WaitGroup
	inFlight atomic.Int32
	started  atomic.Int64

	mu       sync.Mutex
	running  bool
	stopped  bool
	cancel   context.CancelFunc
	loopDone chan struct{}
}

// New creates a [Scheduler]. The interval must be positive.
func New(interval time.Duration, job Job, opts ...Option) *Scheduler {
	s := &Scheduler{
		interval: interval,
		job:      job,
		clock:    clockwork.NewRealClock(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs the job immediately and then every interval until ctx is
// cancelled or [Scheduler.Stop] is called.
//
// Start is non-blocking. It is idempotent, and a no-op after Stop.
// If ctx is nil, context.Background() is used.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running || s.stopped {
		s.mu.Unlock()
		return
	}
	s.running = true

	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	loopDone := s.loopDone
	s.mu.Unlock()

	go func() {
		defer close(loopDone)

		// create the ticker before the first run so a fake clock sees it
		ticker := s.clock.NewTicker(s.interval)
		defer ticker.Stop()

		s.launch(runCtx)

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.Chan():
				s.launch(runCtx)
			}
		}
	}()
}

// Stop cancels the schedule and waits for in-flight runs to return.
//
// Stop is idempotent and safe to call before Start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	loopDone := s.loopDone
	s.mu.Unlock()

	if loopDone != nil {
		<-loopDone
	}
	// the loop has exited, so no more runs can be launched
	s.runs.Wait()
}

// InFlight returns the number of runs currently executing.
func (s *Scheduler) InFlight() int {
	return int(s.inFlight.Load())
}

// Runs returns the number of runs started so far.
func (s *Scheduler) Runs() int64 {
	return s.started.Load()
}

func (s *Scheduler) launch(ctx context.Context) {
	s.started.Add(1)
	s.runs.Go(func() {
		s.inFlight.Add(1)
		defer s.inFlight.Add(-1)

		var pc panics.Catcher
		pc.Try(func() { s.job(ctx) })
		if r := pc.Recovered(); r != nil {
			s.logger.Error("scheduled run panicked",
				"panic", r.String(),
			)
		}
	})
}
