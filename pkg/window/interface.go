package window

import (
	"errors"
	"time"
)

// ErrSessionUnavailable is returned when the display session or one of its
// required extensions cannot be reached.
var ErrSessionUnavailable = errors.New("display session unavailable")

// WindowInfo identifies the window that currently has input focus
type WindowInfo struct {
	Classes []string // WM_CLASS entries in order, usually instance then class
	Name    string   // Empty when the window has no name
}

// IdleSource reports how long the session has gone without user input
type IdleSource interface {
	// IdleDuration returns the time since the last keyboard or pointer event
	IdleDuration() (time.Duration, error)
}

// FocusSource reports the currently focused window
type FocusSource interface {
	// FocusedWindow returns nil when no identifiable window has focus
	FocusedWindow() *WindowInfo
}

// Session is a display session that can serve both idle and focus queries
type Session interface {
	IdleSource
	FocusSource

	// DisplayServer returns the display server type, e.g. "x11"
	DisplayServer() string

	// Close releases the connection to the display
	Close() error
}
