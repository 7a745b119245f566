// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"

	"github.com/parleyhq/parley/lib/event"
)

// Features describes which control operations are meaningful for an
// adapter. Calling an operation whose feature flag is false is a
// caller error, reported as ErrNotSupported.
type Features struct {
	// Streaming indicates the backend emits partial message and
	// thinking events while a turn is in progress.
	Streaming bool `json:"streaming"`

	// Tools indicates the backend reports tool_use and tool_result
	// events.
	Tools bool `json:"tools"`

	// PauseResume indicates Pause and Resume are meaningful.
	PauseResume bool `json:"pauseResume"`

	// SystemPrompt indicates the backend accepts a system prompt at
	// start.
	SystemPrompt bool `json:"systemPrompt"`
}

// Info identifies an adapter and its capability set. It is static for
// the adapter's lifetime and reading it never fails.
type Info struct {
	// ID is the registry identifier (e.g., "claude-code").
	ID string `json:"id"`

	// Name is the human-readable backend name.
	Name string `json:"name"`

	// Features is the capability set.
	Features Features `json:"features"`
}

// StartOptions configures the first turn of an adapter.
type StartOptions struct {
	// SystemPrompt is appended to the backend's system prompt. Ignored
	// by adapters without system prompt support.
	SystemPrompt string

	// AllowedTools restricts the tools the backend may use, in caller
	// order. Empty means the backend default.
	AllowedTools []string

	// WorkingDirectory is where the backend process starts. Empty
	// means the current working directory.
	WorkingDirectory string

	// ResumeContext is an opaque backend-specific token for resuming a
	// prior conversation (e.g., a native session id).
	ResumeContext string
}

// Message is one user message dispatched to an adapter. SystemPrompt
// and AllowedTools carry the effective per-call values the session
// manager resolved from overrides; adapters that cannot apply them
// after start ignore them.
type Message struct {
	Text         string
	SystemPrompt string
	AllowedTools []string
}

// Adapter is the uniform control surface over one concrete backend.
// Implementations are used by a single session manager goroutine for
// control calls, but Status and Info may be read from any goroutine.
type Adapter interface {
	// Info returns the adapter's identity and capability set. It is
	// synchronous, side-effect free, and never fails.
	Info() Info

	// IsAvailable probes whether the backend can run here (binary on
	// PATH, credentials configured). Ordinary unavailability returns
	// (false, nil); only unexpected internal faults return an error.
	IsAvailable(ctx context.Context) (bool, error)

	// Start begins the backend connection or process and transitions
	// idle → starting → running. The first call per session is
	// authoritative; behavior of a second call is adapter-defined.
	Start(ctx context.Context, options StartOptions) error

	// Send submits one message to the current or next turn. Valid only
	// when the status is idle or running. Completion of the call means
	// the message was accepted, not that the turn finished; the turn's
	// progress is observed on the Events channel, ending with a status
	// transition back to idle (or stopped on fatal error).
	Send(ctx context.Context, message Message) error

	// Stop requests graceful termination and transitions through
	// stopping to stopped. Safe to call at any time and repeatedly; a
	// second call once stopped is a no-op.
	Stop(ctx context.Context) error

	// Pause suspends the backend (running → paused). Only meaningful
	// when Features.PauseResume is true.
	Pause(ctx context.Context) error

	// Resume continues a paused backend (paused → running).
	Resume(ctx context.Context) error

	// Status returns the current state. Safe for concurrent use.
	Status() Status

	// Events returns the adapter's event channel. The adapter closes
	// it after the stopped state is reached and no more events will be
	// emitted.
	Events() <-chan event.Event
}
