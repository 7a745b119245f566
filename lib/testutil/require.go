// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not need direct time.After calls. Event
// pumps and adapters run on their own goroutines; a test that blocks
// on a channel without a timeout hangs the whole suite when the
// goroutine under test misbehaves.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
package testutil

import (
	"fmt"
	"time"
)

// waitTimeout bounds every channel wait. Generous next to the
// millisecond-scale operations under test, so a hit means a hang, not
// a slow machine.
const waitTimeout = 5 * time.Second

// testingT is the subset of *testing.T the helpers need; an interface
// so they work from both tests and benchmarks.
type testingT interface {
	Helper()
	Fatalf(format string, args ...any)
}

// RequireReceive reads one value from ch, or fails the test after the
// timeout.
//
//	received := testutil.RequireReceive(t, events, "first turn event")
func RequireReceive[T any](t testingT, ch <-chan T, msgAndArgs ...any) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed without a value: %s", formatMessage(msgAndArgs))
		}
		return v
	case <-time.After(waitTimeout):
		t.Fatalf("timed out after %v: %s", waitTimeout, formatMessage(msgAndArgs))
	}
	panic("unreachable")
}

// RequireSend sends v on ch, or fails the test after the timeout.
func RequireSend[T any](t testingT, ch chan<- T, v T, msgAndArgs ...any) {
	t.Helper()
	select {
	case ch <- v:
	case <-time.After(waitTimeout):
		t.Fatalf("timed out after %v: %s", waitTimeout, formatMessage(msgAndArgs))
	}
}

// RequireClosed drains ch until it is closed, or fails the test after
// the timeout. Buffered values still in flight are discarded.
func RequireClosed[T any](t testingT, ch <-chan T, msgAndArgs ...any) {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("timed out after %v waiting for channel close: %s", waitTimeout, formatMessage(msgAndArgs))
			return
		}
	}
}

// formatMessage formats optional message arguments: a single string,
// or a format string followed by args.
func formatMessage(msgAndArgs []any) string {
	if len(msgAndArgs) == 0 {
		return "(no message)"
	}
	if len(msgAndArgs) == 1 {
		if s, ok := msgAndArgs[0].(string); ok {
			return s
		}
		return fmt.Sprintf("%v", msgAndArgs[0])
	}
	if format, ok := msgAndArgs[0].(string); ok {
		return fmt.Sprintf(format, msgAndArgs[1:]...)
	}
	return fmt.Sprintf("%v", msgAndArgs)
}
