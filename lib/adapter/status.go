// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import "fmt"

// Status is an adapter lifecycle state.
type Status string

const (
	// StatusIdle means the adapter is ready and no turn is in flight.
	// Freshly constructed adapters start idle.
	StatusIdle Status = "idle"

	// StatusStarting means Start was called and the backend is not yet
	// ready.
	StatusStarting Status = "starting"

	// StatusRunning means a turn is in flight.
	StatusRunning Status = "running"

	// StatusPaused means a running backend was suspended.
	StatusPaused Status = "paused"

	// StatusStopping means termination was requested and the backend
	// has not yet exited.
	StatusStopping Status = "stopping"

	// StatusStopped is terminal: the backend exited.
	StatusStopped Status = "stopped"
)

// String returns the state name.
func (s Status) String() string { return string(s) }

// Terminal reports whether the state admits no further transitions.
func (s Status) Terminal() bool { return s == StatusStopped }

// CanTransition reports whether moving from s to next is a legal edge
// of the adapter state machine. Any non-terminal state may move to
// stopping (stop is always permitted); otherwise only the documented
// edges are legal.
func (s Status) CanTransition(next Status) bool {
	if s == next {
		return false
	}
	if next == StatusStopping {
		return !s.Terminal()
	}
	switch s {
	case StatusIdle:
		return next == StatusStarting
	case StatusStarting:
		return next == StatusRunning
	case StatusRunning:
		// A turn completes back to idle; pause suspends; a fatal error
		// lands directly on stopped.
		return next == StatusIdle || next == StatusPaused || next == StatusStopped
	case StatusPaused:
		return next == StatusRunning
	case StatusStopping:
		return next == StatusStopped
	default:
		return false
	}
}

// ParseStatus converts a state name (e.g., from a persisted status
// event) back to a Status.
func ParseStatus(name string) (Status, error) {
	switch Status(name) {
	case StatusIdle, StatusStarting, StatusRunning, StatusPaused, StatusStopping, StatusStopped:
		return Status(name), nil
	default:
		return "", fmt.Errorf("unknown adapter status %q", name)
	}
}
