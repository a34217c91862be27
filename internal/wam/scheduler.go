package wam

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	defaultTick          = time.Second
	defaultTicksPerCycle = 60
	defaultStopTimeout   = 5 * time.Second
)

// SchedulerOptions tunes the scheduler's cadence. Zero values take the
// defaults: a one second tick, sixty ticks per cycle and a five second
// bound on Stop.
type SchedulerOptions struct {
	Tick          time.Duration
	TicksPerCycle int
	StopTimeout   time.Duration
}

// Scheduler runs automatic backups in the background. Each cycle it checks
// whether a backup is due and, if so, backs up every account that has a
// snapshot. Between cycles it sleeps in short ticks so Stop takes effect
// quickly.
type Scheduler struct {
	archive *BackupArchive
	clock   Clock
	sleeper Sleeper
	logger  Logger
	opts    SchedulerOptions

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	// stopping is the done channel of a worker whose Stop timed out.
	stopping chan struct{}
}

// NewScheduler creates a stopped scheduler for archive.
func NewScheduler(archive *BackupArchive, clock Clock, sleeper Sleeper, logger Logger, opts SchedulerOptions) *Scheduler {
	if opts.Tick <= 0 {
		opts.Tick = defaultTick
	}
	if opts.TicksPerCycle <= 0 {
		opts.TicksPerCycle = defaultTicksPerCycle
	}
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = defaultStopTimeout
	}
	return &Scheduler{
		archive: archive,
		clock:   clock,
		sleeper: sleeper,
		logger:  logger,
		opts:    opts,
	}
}

// Start launches the background worker. Starting a running scheduler is a
// no-op, and so is starting one whose previous worker has not exited yet.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	if s.stopping != nil {
		select {
		case <-s.stopping:
			s.stopping = nil
		default:
			s.logger.Warn("auto-backup scheduler not started, previous worker still running")
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.loop(ctx, s.done)
	s.logger.Info("auto-backup scheduler started")
}

// StartIfEnabled starts the worker when the stored settings have it enabled
// and reports whether they do.
func (s *Scheduler) StartIfEnabled() bool {
	if !s.archive.Settings().Enabled {
		return false
	}
	s.Start()
	return true
}

// Stop signals the worker and waits for it to exit, at most StopTimeout.
// An in-flight backup cycle is allowed to finish. After a timeout the
// worker is remembered: Start refuses to launch another until it exits and
// a later Stop waits for it again. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	if done == nil {
		done = s.stopping
	}
	s.cancel, s.done = nil, nil
	s.stopping = done
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	if cancel != nil {
		cancel()
	}

	select {
	case <-done:
		s.mu.Lock()
		if s.stopping == done {
			s.stopping = nil
		}
		s.mu.Unlock()
		s.logger.Info("auto-backup scheduler stopped")
		return nil
	case <-time.After(s.opts.StopTimeout):
		return fmt.Errorf("auto-backup scheduler did not stop within %s", s.opts.StopTimeout)
	}
}

// Running reports whether the worker has been started and not stopped.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

// SetEnabled persists the enabled flag and starts or stops the worker to
// match.
func (s *Scheduler) SetEnabled(enabled bool) error {
	if err := s.archive.SetEnabled(enabled); err != nil {
		return err
	}
	if enabled {
		s.Start()
		return nil
	}
	return s.Stop()
}

// RunCycle performs one scheduling check and backs up if due. It reports
// whether a backup round ran.
func (s *Scheduler) RunCycle() bool {
	if !s.archive.Due(s.clock.Now()) {
		return false
	}
	attempted, succeeded := s.archive.RunScheduled()
	if attempted == 0 {
		return false
	}
	s.logger.Info("automatic backup finished", "attempted", attempted, "succeeded", succeeded)
	return true
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		if ctx.Err() != nil {
			return
		}
		s.RunCycle()
		for range s.opts.TicksPerCycle {
			if err := s.sleeper.Sleep(ctx, s.opts.Tick); err != nil {
				return
			}
		}
	}
}
