// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package sessionlog

import (
	"time"

	"github.com/parleyhq/parley/lib/event"
)

// Record types beyond the canonical event variants. They share the
// event type tag space: a log line is always {"type": ...} whether it
// records session creation, a user message, or a canonical event.
const (
	// TypeSessionCreated is record 0 of every session log and the
	// canonical source for restoring session metadata.
	TypeSessionCreated event.Type = "session_created"

	// TypeUserMessage records a message the caller sent into the
	// session.
	TypeUserMessage event.Type = "user_message"
)

// Overrides is the persisted form of per-message overrides. A nil
// pointer field means the key was absent (fall back to the stored
// session value), distinct from an explicitly supplied value.
type Overrides struct {
	SystemPrompt *string  `json:"systemPrompt,omitempty"`
	AllowedTools []string `json:"allowedTools,omitempty"`
}

// Record is one line of a session log. The embedded event carries the
// type tag, id, and timestamp for every record kind plus the payload
// for canonical events; the remaining fields are populated only for
// session_created and user_message records. Absent optional fields
// are omitted from the wire form, not serialized as empty values.
type Record struct {
	event.Event

	// session_created fields.
	SessionID        string   `json:"sessionId,omitempty"`
	Adapter          string   `json:"adapter,omitempty"`
	WorkingDirectory string   `json:"cwd,omitempty"`
	SystemPrompt     string   `json:"systemPrompt,omitempty"`
	AllowedTools     []string `json:"allowedTools,omitempty"`

	// user_message fields.
	Text      string     `json:"text,omitempty"`
	Overrides *Overrides `json:"overrides,omitempty"`
}

// NewSessionCreated builds the first record of a session log.
// SystemPrompt and allowedTools are included only when supplied.
func NewSessionCreated(sessionID, adapterID, workingDirectory, systemPrompt string, allowedTools []string) Record {
	return Record{
		Event: event.Event{
			Type:      TypeSessionCreated,
			Timestamp: time.Now(),
		},
		SessionID:        sessionID,
		Adapter:          adapterID,
		WorkingDirectory: workingDirectory,
		SystemPrompt:     systemPrompt,
		AllowedTools:     allowedTools,
	}
}

// NewUserMessage builds a user_message record.
func NewUserMessage(text string, overrides *Overrides) Record {
	return Record{
		Event: event.Event{
			Type:      TypeUserMessage,
			Timestamp: time.Now(),
		},
		Text:      text,
		Overrides: overrides,
	}
}

// FromEvent wraps a canonical event as a log record.
func FromEvent(e event.Event) Record {
	return Record{Event: e}
}
