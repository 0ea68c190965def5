/*
scheduler.go - Automated overdue evaluation scheduler

PURPOSE:
  Periodically marks pending evaluations whose due date has passed as
  overdue and appends the configured penalty records against the evaluated
  person and the evaluator.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Runs once immediately on start, then on every tick
  - Each sweep is one atomic batch per overdue record (see engine.SweepOverdue)
  - A record is only ever swept once: it leaves the pending state

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewOverdueScheduler(eng, log)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerSweep endpoint (manual sweep)
  - engine/engine.go: SweepOverdue
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/warp/evaluation-engine/engine"
	"github.com/warp/evaluation-engine/logger"
)

// OverdueScheduler sweeps overdue evaluations on an interval.
type OverdueScheduler struct {
	Engine        *engine.Engine
	Log           logger.Logger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewOverdueScheduler creates a new scheduler.
func NewOverdueScheduler(eng *engine.Engine, log logger.Logger) *OverdueScheduler {
	if log == nil {
		log = logger.NewNop()
	}
	return &OverdueScheduler{
		Engine:        eng,
		Log:           log,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
	}
}

// Start begins the scheduler. Starting a running scheduler is a no-op.
func (s *OverdueScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx := context.Background()
	if !s.Enabled {
		s.Log.Info(ctx, "overdue scheduler disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.CheckInterval)
	s.stop = make(chan struct{})
	s.wg.Add(1)

	go s.run(s.ticker, s.stop)

	s.Log.Info(ctx, "overdue scheduler started", logger.String("interval", s.CheckInterval.String()))
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *OverdueScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.Log.Info(context.Background(), "overdue scheduler stopped")
}

func (s *OverdueScheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	// Run immediately on start
	s.RunNow()

	for {
		select {
		case <-ticker.C:
			s.RunNow()
		case <-stop:
			return
		}
	}
}

// RunNow performs one sweep synchronously.
func (s *OverdueScheduler) RunNow() engine.SweepResult {
	ctx := context.Background()

	res, err := s.Engine.SweepOverdue(ctx, s.Engine.Now())
	if err != nil {
		s.Log.Error(ctx, "overdue sweep failed", logger.Error(err))
		return res
	}
	s.Log.Debug(ctx, "overdue check done", logger.Int("marked", res.Marked))
	return res
}

// NextRunTime returns when the next scheduled check will occur.
func (s *OverdueScheduler) NextRunTime() time.Time {
	return s.Engine.Now().Add(s.CheckInterval)
}
