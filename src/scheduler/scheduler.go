package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"papertrader/src/metrics"

	logger "github.com/sirupsen/logrus"
)

type State string

const (
	StateIdle    State = "IDLE"
	StateRunning State = "RUNNING"
	StatePaused  State = "PAUSED"
	StateStopped State = "STOPPED"
)

var ErrStopped = errors.New("scheduler is stopped")

// Cycle is one refresh: fetch, recompute, notify.
type Cycle func(ctx context.Context) error

// Scheduler fires Cycle every interval while RUNNING. A tick that lands while
// the previous cycle is still in flight is dropped, never queued.
type Scheduler struct {
	interval time.Duration
	cycle    Cycle
	metrics  *metrics.Metrics
	log      *logger.Entry

	mu      sync.Mutex
	state   State
	stopped chan struct{}
	kick    chan struct{}

	busy atomic.Bool
	wg   sync.WaitGroup
}

type Option func(*Scheduler)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

func New(interval time.Duration, cycle Cycle, opts ...Option) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	s := &Scheduler{
		interval: interval,
		cycle:    cycle,
		log:      logger.WithField("component", "scheduler"),
		state:    StateIdle,
		stopped:  make(chan struct{}),
		kick:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Busy reports whether a cycle is in flight.
func (s *Scheduler) Busy() bool {
	return s.busy.Load()
}

// Start moves IDLE or PAUSED to RUNNING and asks Run for an immediate cycle.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateStopped:
		return ErrStopped
	case StateRunning:
		return nil
	}
	s.transition(StateRunning)
	return nil
}

// Hide pauses a running scheduler when its consumer is no longer visible.
func (s *Scheduler) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		s.transition(StatePaused)
	}
}

// Show resumes a paused scheduler. It does not start an idle or stopped one.
func (s *Scheduler) Show() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StatePaused {
		s.transition(StateRunning)
	}
}

// Disable stops the scheduler for good; Run returns once the in-flight cycle
// is done.
func (s *Scheduler) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStopped {
		return
	}
	s.transition(StateStopped)
	close(s.stopped)
}

// must hold s.mu
func (s *Scheduler) transition(to State) {
	s.log.WithFields(logger.Fields{"from": s.state, "to": to}).Info("scheduler state change")
	s.state = to
	if to == StateRunning {
		select {
		case s.kick <- struct{}{}:
		default:
		}
	}
}

// Tick runs one cycle unless the scheduler is not RUNNING or a cycle is
// already in flight. ran is false when the tick was skipped.
func (s *Scheduler) Tick(ctx context.Context) (ran bool, err error) {
	if s.State() != StateRunning {
		return false, nil
	}
	if !s.busy.CompareAndSwap(false, true) {
		s.metrics.RefreshCycle("skipped")
		s.log.Debug("refresh cycle still in flight, tick skipped")
		return false, nil
	}
	defer s.busy.Store(false)

	start := time.Now()
	err = s.runCycle(ctx)
	if err != nil {
		s.metrics.RefreshCycle("failed")
		s.log.WithError(err).Warn("refresh cycle failed")
		return true, err
	}
	s.metrics.RefreshCycle("ok")
	s.log.WithField("elapsed", time.Since(start).String()).Debug("refresh cycle done")
	return true, nil
}

func (s *Scheduler) runCycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("refresh cycle panic: %v", r)
		}
	}()
	return s.cycle(ctx)
}

// Run drives ticks until ctx is done or the scheduler is disabled. Each tick
// runs in its own goroutine so a slow cycle never delays the ticker.
func (s *Scheduler) Run(ctx context.Context, autoStart bool) error {
	if autoStart {
		if err := s.Start(); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.wg.Wait()

	fire := func() {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			_, _ = s.Tick(ctx)
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopped:
			return nil
		case <-s.kick:
			fire()
		case <-ticker.C:
			fire()
		}
	}
}
