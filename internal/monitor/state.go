package monitor

import "time"

// Decision is the outcome of one tick
type Decision int

const (
	// DecisionNone means the session is away and nothing is recorded
	DecisionNone Decision = iota
	// DecisionActive records the current idle time and focused window
	DecisionActive
	// DecisionReturnIdle records the idle span that just ended
	DecisionReturnIdle
)

func (d Decision) String() string {
	switch d {
	case DecisionActive:
		return "active"
	case DecisionReturnIdle:
		return "return"
	default:
		return "none"
	}
}

// Sample is the idle duration observed at one tick
type Sample struct {
	IdleMs    uint64
	Timestamp time.Time
}

// State is carried from one tick to the next
type State struct {
	LastIdleMs uint64
}

// Decide classifies idleMs against the previous tick's value and the
// suspend threshold. It returns the decision and the idle value to record:
// the previous value for a return from idle, the current one otherwise.
//
// A drop in the idle counter only counts as a return when the previous
// value had reached the threshold; below it, a drop is ordinary activity.
// idleMs equal to the threshold is already suspended.
func Decide(state State, idleMs, thresholdMs uint64) (Decision, uint64) {
	if idleMs < state.LastIdleMs && state.LastIdleMs >= thresholdMs {
		return DecisionReturnIdle, state.LastIdleMs
	}
	if idleMs < thresholdMs {
		return DecisionActive, idleMs
	}
	return DecisionNone, idleMs
}
