// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import "testing"

func TestCanTransition(t *testing.T) {
	legal := []struct{ from, to Status }{
		{StatusIdle, StatusStarting},
		{StatusStarting, StatusRunning},
		{StatusRunning, StatusIdle},
		{StatusRunning, StatusPaused},
		{StatusRunning, StatusStopped}, // fatal error during a turn
		{StatusPaused, StatusRunning},
		{StatusIdle, StatusStopping},
		{StatusStarting, StatusStopping},
		{StatusRunning, StatusStopping},
		{StatusPaused, StatusStopping},
		{StatusStopping, StatusStopped},
	}
	for _, edge := range legal {
		if !edge.from.CanTransition(edge.to) {
			t.Errorf("CanTransition(%s → %s) = false, want true", edge.from, edge.to)
		}
	}

	illegal := []struct{ from, to Status }{
		{StatusIdle, StatusRunning},
		{StatusIdle, StatusPaused},
		{StatusStarting, StatusIdle},
		{StatusPaused, StatusIdle},
		{StatusStopped, StatusStopping}, // stopped is terminal
		{StatusStopped, StatusIdle},
		{StatusStopping, StatusRunning},
		{StatusRunning, StatusRunning}, // self-transition
	}
	for _, edge := range illegal {
		if edge.from.CanTransition(edge.to) {
			t.Errorf("CanTransition(%s → %s) = true, want false", edge.from, edge.to)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, s := range []Status{StatusIdle, StatusStarting, StatusRunning, StatusPaused, StatusStopping, StatusStopped} {
		parsed, err := ParseStatus(s.String())
		if err != nil {
			t.Errorf("ParseStatus(%q): %v", s, err)
		}
		if parsed != s {
			t.Errorf("ParseStatus(%q) = %q", s, parsed)
		}
	}
	if _, err := ParseStatus("broken"); err == nil {
		t.Error("ParseStatus accepted an unknown state")
	}
}

func TestTerminal(t *testing.T) {
	if !StatusStopped.Terminal() {
		t.Error("stopped should be terminal")
	}
	for _, s := range []Status{StatusIdle, StatusStarting, StatusRunning, StatusPaused, StatusStopping} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
