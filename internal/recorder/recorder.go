package recorder

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrNoSink is returned by Emit when no sink accepted the record
var ErrNoSink = errors.New("no sink accepted the record")

// Sink is one destination for formatted records
type Sink interface {
	Name() string
	Write(r Record, line string) error
	Close() error
}

// ErrorStore persists sink failures
type ErrorStore interface {
	StoreError(source string, err error)
}

// Recorder formats records and fans each line out to its sinks in order
type Recorder struct {
	sinks  []Sink
	errors ErrorStore
	logger *slog.Logger
}

// New creates a recorder writing to the given sinks
func New(logger *slog.Logger, sinks ...Sink) *Recorder {
	return &Recorder{sinks: sinks, logger: logger}
}

// SetErrorStore registers where sink failures are persisted, in addition
// to the diagnostic log.
func (r *Recorder) SetErrorStore(store ErrorStore) {
	r.errors = store
}

// Emit writes one record. A failing sink is reported and skipped; Emit only
// fails when every sink failed.
func (r *Recorder) Emit(rec Record) error {
	if len(r.sinks) == 0 {
		return ErrNoSink
	}

	line := FormatLine(rec)

	var errs []error
	for _, s := range r.sinks {
		if err := s.Write(rec, line); err != nil {
			var re *RotateError
			if errors.As(err, &re) {
				// The line was written; only the rotation failed
				r.logger.Warn("log rotation failed", "sink", s.Name(), "error", err)
				if r.errors != nil {
					r.errors.StoreError(s.Name(), err)
				}
				continue
			}
			r.logger.Error("sink write failed", "sink", s.Name(), "error", err)
			if r.errors != nil {
				r.errors.StoreError(s.Name(), err)
			}
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}

	if len(errs) == len(r.sinks) {
		return fmt.Errorf("%w: %w", ErrNoSink, errors.Join(errs...))
	}
	return nil
}

// Close closes every sink and returns the first error
func (r *Recorder) Close() error {
	var first error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
