package monitor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xusing/xusing/internal/recorder"
	"github.com/xusing/xusing/pkg/window"
)

const loadTimeout = time.Second

// LoadSource reads the system load averages
type LoadSource interface {
	Average(ctx context.Context) ([3]float64, error)
}

// Recorder receives every emitted record
type Recorder interface {
	Emit(r recorder.Record) error
}

// ErrorStore persists non-fatal tick errors
type ErrorStore interface {
	StoreError(source string, err error)
}

// Options configures a Service
type Options struct {
	PollInterval     time.Duration
	SuspendThreshold time.Duration
	Load             LoadSource       // Nil records zero load averages
	Errors           ErrorStore       // Optional
	Logger           *slog.Logger     // Optional
	Now              func() time.Time // Defaults to time.Now
}

// Service runs the sampling loop. It owns its State; nothing else reads or
// writes it while Run is active.
type Service struct {
	idle     window.IdleSource
	focus    window.FocusSource
	recorder Recorder

	interval    time.Duration
	thresholdMs uint64
	load        LoadSource
	errors      ErrorStore
	logger      *slog.Logger
	now         func() time.Time

	state State

	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
}

func NewService(idle window.IdleSource, focus window.FocusSource, rec Recorder, opts Options) *Service {
	s := &Service{
		idle:        idle,
		focus:       focus,
		recorder:    rec,
		interval:    opts.PollInterval,
		thresholdMs: uint64(opts.SuspendThreshold.Milliseconds()),
		load:        opts.Load,
		errors:      opts.Errors,
		logger:      opts.Logger,
		now:         opts.Now,
		stopChan:    make(chan struct{}),
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// State returns the value carried into the next tick
func (s *Service) State() State {
	return s.state
}

// Run sleeps one interval, ticks, and repeats until ctx is cancelled, Stop
// is called, or a tick fails. Cancellation is only observed between ticks.
func (s *Service) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("monitor is already running")
	}
	defer s.running.Store(false)

	s.logger.Info("starting monitor",
		"interval", s.interval,
		"suspend_threshold_ms", s.thresholdMs)

	// Reset after each tick so the spacing is measured from completion
	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("monitor stopped by context")
			return ctx.Err()

		case <-s.stopChan:
			s.logger.Info("monitor stopped")
			return nil

		case <-timer.C:
			if ctx.Err() != nil {
				continue
			}
			if _, err := s.Tick(ctx); err != nil {
				return err
			}
			timer.Reset(s.interval)
		}
	}
}

// Stop ends Run after any in-flight tick
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// Tick samples the idle source once, applies Decide, emits at most one
// record and advances State. An idle-query error leaves State untouched.
func (s *Service) Tick(ctx context.Context) (Decision, error) {
	idle, err := s.idle.IdleDuration()
	if err != nil {
		return DecisionNone, fmt.Errorf("failed to get idle duration: %w", err)
	}
	if idle < 0 {
		idle = 0
	}

	sample := Sample{IdleMs: uint64(idle.Milliseconds()), Timestamp: s.now()}
	decision, idleMs := Decide(s.state, sample.IdleMs, s.thresholdMs)

	var emitErr error
	if decision != DecisionNone {
		emitErr = s.emit(ctx, sample, decision, idleMs)
	} else {
		s.logger.Debug("suspended", "idle_ms", sample.IdleMs)
	}

	s.state.LastIdleMs = sample.IdleMs

	if emitErr != nil {
		return decision, fmt.Errorf("failed to record %s sample: %w", decision, emitErr)
	}
	return decision, nil
}

func (s *Service) emit(ctx context.Context, sample Sample, decision Decision, idleMs uint64) error {
	rec := recorder.Record{
		Timestamp:   sample.Timestamp,
		IdleMs:      idleMs,
		LoadAverage: s.loadAverage(ctx),
	}

	switch decision {
	case DecisionReturnIdle:
		rec.Kind = recorder.KindReturnIdle
		s.logger.Info("returned from idle", "idle_ms", idleMs)
	case DecisionActive:
		rec.Kind = recorder.KindActive
		if info := s.focus.FocusedWindow(); info != nil {
			rec.WindowClasses = info.Classes
			rec.WindowName = info.Name
		}
	}

	return s.recorder.Emit(rec)
}

// loadAverage is best effort and not affected by cancellation of ctx, so a
// tick that has started always completes.
func (s *Service) loadAverage(ctx context.Context) [3]float64 {
	if s.load == nil {
		return [3]float64{}
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
	defer cancel()

	avg, err := s.load.Average(ctx)
	if err != nil {
		s.logger.Warn("failed to read load average", "error", err)
		if s.errors != nil {
			s.errors.StoreError("load", err)
		}
		return [3]float64{}
	}
	return avg
}
