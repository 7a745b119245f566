// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package adaptertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/parleyhq/parley/lib/adapter"
	"github.com/parleyhq/parley/lib/event"
)

// AdapterID is the registry identifier for the stub backend.
const AdapterID = "stub"

// Options configures a Stub.
type Options struct {
	// ID overrides the adapter id. Defaults to "stub".
	ID string

	// Unavailable makes IsAvailable report false.
	Unavailable bool

	// AutoResolve completes each turn immediately after Send. When
	// false, turns stay running until Resolve or Fail.
	AutoResolve bool

	// TurnEvents is the scripted event sequence emitted for each
	// completed turn, before the terminating result event.
	TurnEvents []event.Event
}

// Stub is an in-memory adapter.Adapter with scripted turns.
type Stub struct {
	id          string
	unavailable bool
	autoResolve bool
	turnEvents  []event.Event

	mu           sync.Mutex
	status       adapter.Status
	closed       bool
	turnOpen     bool
	startOptions []adapter.StartOptions
	sent         []adapter.Message

	events chan event.Event
}

// New creates a stub in the idle state.
func New(options Options) *Stub {
	id := options.ID
	if id == "" {
		id = AdapterID
	}
	return &Stub{
		id:          id,
		unavailable: options.Unavailable,
		autoResolve: options.AutoResolve,
		turnEvents:  options.TurnEvents,
		status:      adapter.StatusIdle,
		events:      make(chan event.Event, 256),
	}
}

// Info implements adapter.Adapter. The stub advertises every feature
// so capability-gated paths are exercisable.
func (s *Stub) Info() adapter.Info {
	return adapter.Info{
		ID:   s.id,
		Name: "Stub",
		Features: adapter.Features{
			Streaming:    true,
			Tools:        true,
			PauseResume:  true,
			SystemPrompt: true,
		},
	}
}

// IsAvailable implements adapter.Adapter.
func (s *Stub) IsAvailable(ctx context.Context) (bool, error) {
	return !s.unavailable, nil
}

// Status implements adapter.Adapter.
func (s *Stub) Status() adapter.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Events implements adapter.Adapter.
func (s *Stub) Events() <-chan event.Event {
	return s.events
}

// Start implements adapter.Adapter.
func (s *Stub) Start(ctx context.Context, options adapter.StartOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != adapter.StatusIdle {
		return fmt.Errorf("%w: start while %s", adapter.ErrInvalidState, s.status)
	}
	s.startOptions = append(s.startOptions, options)
	s.transitionLocked(adapter.StatusStarting)
	s.transitionLocked(adapter.StatusRunning)
	return nil
}

// Send implements adapter.Adapter. The message is recorded; the turn
// completes immediately under AutoResolve, otherwise it stays open
// until Resolve or Fail.
func (s *Stub) Send(ctx context.Context, message adapter.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.status {
	case adapter.StatusIdle, adapter.StatusRunning:
	default:
		return fmt.Errorf("%w: send while %s", adapter.ErrInvalidState, s.status)
	}

	s.sent = append(s.sent, message)
	if s.status == adapter.StatusIdle {
		s.transitionLocked(adapter.StatusRunning)
	}
	s.turnOpen = true

	if s.autoResolve {
		s.resolveLocked()
	}
	return nil
}

// Resolve completes the open turn: scripted events, a result event,
// and the transition back to idle.
func (s *Stub) Resolve() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolveLocked()
}

func (s *Stub) resolveLocked() {
	if !s.turnOpen {
		return
	}
	s.turnOpen = false
	for _, e := range s.turnEvents {
		s.emitLocked(e)
	}
	s.emitLocked(event.NewResult(event.ResultPayload{}))
	s.transitionLocked(adapter.StatusIdle)
}

// Fail ends the open turn with an error event. A fatal failure lands
// on stopped and closes the event channel; a non-fatal one returns to
// idle.
func (s *Stub) Fail(message string, fatal bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turnOpen = false
	if fatal {
		s.emitLocked(event.NewFatalError(message, "stub_failure"))
		s.transitionLocked(adapter.StatusStopped)
		s.closeLocked()
		return
	}
	s.emitLocked(event.NewError(message, "stub_failure"))
	s.transitionLocked(adapter.StatusIdle)
}

// Stop implements adapter.Adapter. Idempotent.
func (s *Stub) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == adapter.StatusStopped {
		return nil
	}
	s.turnOpen = false
	s.transitionLocked(adapter.StatusStopping)
	s.transitionLocked(adapter.StatusStopped)
	s.closeLocked()
	return nil
}

// Pause implements adapter.Adapter.
func (s *Stub) Pause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != adapter.StatusRunning {
		return fmt.Errorf("%w: pause while %s", adapter.ErrInvalidState, s.status)
	}
	s.transitionLocked(adapter.StatusPaused)
	return nil
}

// Resume implements adapter.Adapter.
func (s *Stub) Resume(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != adapter.StatusPaused {
		return fmt.Errorf("%w: resume while %s", adapter.ErrInvalidState, s.status)
	}
	s.transitionLocked(adapter.StatusRunning)
	return nil
}

// StartCalls returns a copy of the recorded Start options.
func (s *Stub) StartCalls() []adapter.StartOptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]adapter.StartOptions(nil), s.startOptions...)
}

// SendCalls returns a copy of the recorded messages.
func (s *Stub) SendCalls() []adapter.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]adapter.Message(nil), s.sent...)
}

func (s *Stub) transitionLocked(status adapter.Status) {
	if s.status == status {
		return
	}
	s.status = status
	s.emitLocked(event.NewStatus(status.String()))
}

func (s *Stub) emitLocked(e event.Event) {
	if s.closed {
		return
	}
	s.events <- e
}

func (s *Stub) closeLocked() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}
