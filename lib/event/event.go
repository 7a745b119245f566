// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type classifies canonical events.
type Type string

const (
	// TypeMessage is assistant-visible text output.
	TypeMessage Type = "message"

	// TypeThinking is extended reasoning text from the backend.
	TypeThinking Type = "thinking"

	// TypeToolUse is a tool invocation by the backend.
	TypeToolUse Type = "tool_use"

	// TypeToolResult is the result returned from a tool invocation.
	TypeToolResult Type = "tool_result"

	// TypeResult is the final outcome of one turn.
	TypeResult Type = "result"

	// TypeError is a runtime failure reported by the adapter or the
	// backend. Fatal errors end the session; non-fatal errors end the
	// turn only.
	TypeError Type = "error"

	// TypeStatus is an adapter state transition (idle, starting,
	// running, paused, stopping, stopped).
	TypeStatus Type = "status"

	// TypeInterrupted records a cooperative interruption of a turn.
	TypeInterrupted Type = "interrupted"

	// TypeUnknown preserves a native record that maps to no known
	// variant. The original bytes are carried uninterpreted.
	TypeUnknown Type = "unknown"
)

// Event is a single canonical event. Exactly one payload pointer is
// populated, selected by Type. Events serialize as one compact JSON
// object per line in session logs.
type Event struct {
	// ID uniquely identifies the event. Generated by Fill when the
	// producer did not assign one.
	ID string `json:"id,omitempty"`

	// Timestamp is when the event occurred. Defaults to the time of
	// Fill when the producer did not assign one.
	Timestamp time.Time `json:"timestamp,omitzero"`

	// Type classifies the event and selects the payload.
	Type Type `json:"type"`

	// Message is set for TypeMessage events.
	Message *MessagePayload `json:"message,omitempty"`

	// Thinking is set for TypeThinking events.
	Thinking *ThinkingPayload `json:"thinking,omitempty"`

	// ToolUse is set for TypeToolUse events.
	ToolUse *ToolUsePayload `json:"tool_use,omitempty"`

	// ToolResult is set for TypeToolResult events.
	ToolResult *ToolResultPayload `json:"tool_result,omitempty"`

	// Result is set for TypeResult events.
	Result *ResultPayload `json:"result,omitempty"`

	// Error is set for TypeError events.
	Error *ErrorPayload `json:"error,omitempty"`

	// Status is set for TypeStatus events.
	Status *StatusPayload `json:"status,omitempty"`

	// Interrupted is set for TypeInterrupted events.
	Interrupted *InterruptedPayload `json:"interrupted,omitempty"`

	// Unknown is set for TypeUnknown events.
	Unknown *UnknownPayload `json:"unknown,omitempty"`
}

// MessagePayload carries assistant text.
type MessagePayload struct {
	// Text is the message content.
	Text string `json:"text"`

	// Partial marks a streaming fragment of a message still in
	// progress. The final message of a turn has Partial unset.
	Partial bool `json:"isPartial,omitempty"`
}

// ThinkingPayload carries extended reasoning text.
type ThinkingPayload struct {
	// Text is the reasoning content.
	Text string `json:"text"`

	// Partial marks a streaming fragment.
	Partial bool `json:"isPartial,omitempty"`
}

// ToolUsePayload records a tool invocation.
type ToolUsePayload struct {
	// ToolUseID correlates this invocation with its tool_result.
	ToolUseID string `json:"toolUseId,omitempty"`

	// Tool is the tool name (e.g., "Read", "Bash").
	Tool string `json:"tool"`

	// Input is the tool input, preserved as raw JSON.
	Input json.RawMessage `json:"input,omitempty"`
}

// ToolResultPayload records the outcome of a tool invocation.
type ToolResultPayload struct {
	// ToolUseID matches the corresponding ToolUsePayload.ToolUseID.
	ToolUseID string `json:"toolUseId,omitempty"`

	// Output is the tool result text.
	Output string `json:"output,omitempty"`

	// Error describes the failure when IsError is set.
	Error string `json:"error,omitempty"`

	// IsError indicates the tool call failed.
	IsError bool `json:"isError,omitempty"`
}

// ResultPayload records the final outcome of a turn.
type ResultPayload struct {
	// ExitCode is the backend process exit code, when known.
	ExitCode *int `json:"exitCode,omitempty"`

	// Usage is the token accounting for the turn, when reported.
	Usage *Usage `json:"usage,omitempty"`
}

// Usage is token accounting reported by a backend.
type Usage struct {
	InputTokens      int64 `json:"inputTokens,omitempty"`
	OutputTokens     int64 `json:"outputTokens,omitempty"`
	CacheReadTokens  int64 `json:"cacheReadTokens,omitempty"`
	CacheWriteTokens int64 `json:"cacheWriteTokens,omitempty"`
}

// ErrorPayload records a runtime failure.
type ErrorPayload struct {
	// Message is the error description.
	Message string `json:"message"`

	// Code is an optional machine-readable error code.
	Code string `json:"code,omitempty"`

	// Fatal indicates the session cannot continue. The adapter resolves
	// to stopped instead of idle after a fatal error.
	Fatal bool `json:"fatal,omitempty"`
}

// StatusPayload records an adapter state transition. State holds one
// of the adapter states ("idle", "starting", "running", "paused",
// "stopping", "stopped"); the string form avoids a dependency on the
// adapter package.
type StatusPayload struct {
	State string `json:"state"`
}

// InterruptedPayload records a cooperative turn interruption.
type InterruptedPayload struct {
	Message string `json:"message,omitempty"`
}

// UnknownPayload preserves an unrecognized native record.
type UnknownPayload struct {
	// Raw is the original native record, byte for byte.
	Raw json.RawMessage `json:"raw"`
}

// Fill assigns an ID and timestamp when the producer left them unset.
// Adapters may emit bare events; the session manager calls Fill before
// persisting so every durable record is identified and ordered.
func (e *Event) Fill(now time.Time) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
}

// Validate checks the tagged-union invariant: the Type is known and
// exactly the matching payload is populated.
func (e *Event) Validate() error {
	populated := 0
	var matching bool
	for _, payload := range []struct {
		t   Type
		set bool
	}{
		{TypeMessage, e.Message != nil},
		{TypeThinking, e.Thinking != nil},
		{TypeToolUse, e.ToolUse != nil},
		{TypeToolResult, e.ToolResult != nil},
		{TypeResult, e.Result != nil},
		{TypeError, e.Error != nil},
		{TypeStatus, e.Status != nil},
		{TypeInterrupted, e.Interrupted != nil},
		{TypeUnknown, e.Unknown != nil},
	} {
		if payload.set {
			populated++
			if payload.t == e.Type {
				matching = true
			}
		}
	}

	switch {
	case populated == 0 && (e.Type == TypeResult || e.Type == TypeInterrupted):
		// Result and interrupted events may carry no payload fields at
		// all; the type tag alone is meaningful.
		return nil
	case populated == 0:
		return fmt.Errorf("event %q has no payload", e.Type)
	case populated > 1:
		return fmt.Errorf("event %q has %d payloads, want exactly one", e.Type, populated)
	case !matching:
		return fmt.Errorf("event %q has a payload for a different type", e.Type)
	}
	return nil
}

// NewMessage builds a message event.
func NewMessage(text string, partial bool) Event {
	return Event{
		Timestamp: time.Now(),
		Type:      TypeMessage,
		Message:   &MessagePayload{Text: text, Partial: partial},
	}
}

// NewThinking builds a thinking event.
func NewThinking(text string, partial bool) Event {
	return Event{
		Timestamp: time.Now(),
		Type:      TypeThinking,
		Thinking:  &ThinkingPayload{Text: text, Partial: partial},
	}
}

// NewToolUse builds a tool_use event.
func NewToolUse(toolUseID, tool string, input json.RawMessage) Event {
	return Event{
		Timestamp: time.Now(),
		Type:      TypeToolUse,
		ToolUse:   &ToolUsePayload{ToolUseID: toolUseID, Tool: tool, Input: input},
	}
}

// NewToolResult builds a tool_result event.
func NewToolResult(toolUseID, output string, isError bool) Event {
	return Event{
		Timestamp:  time.Now(),
		Type:       TypeToolResult,
		ToolResult: &ToolResultPayload{ToolUseID: toolUseID, Output: output, IsError: isError},
	}
}

// NewResult builds a result event.
func NewResult(payload ResultPayload) Event {
	return Event{
		Timestamp: time.Now(),
		Type:      TypeResult,
		Result:    &payload,
	}
}

// NewError builds a non-fatal error event.
func NewError(message, code string) Event {
	return Event{
		Timestamp: time.Now(),
		Type:      TypeError,
		Error:     &ErrorPayload{Message: message, Code: code},
	}
}

// NewFatalError builds a fatal error event. The session manager treats
// a fatal error as ending the session, not just the turn.
func NewFatalError(message, code string) Event {
	return Event{
		Timestamp: time.Now(),
		Type:      TypeError,
		Error:     &ErrorPayload{Message: message, Code: code, Fatal: true},
	}
}

// NewStatus builds a status event for an adapter state transition.
func NewStatus(state string) Event {
	return Event{
		Timestamp: time.Now(),
		Type:      TypeStatus,
		Status:    &StatusPayload{State: state},
	}
}

// NewInterrupted builds an interrupted event.
func NewInterrupted(message string) Event {
	return Event{
		Timestamp:   time.Now(),
		Type:        TypeInterrupted,
		Interrupted: &InterruptedPayload{Message: message},
	}
}

// NewUnknown preserves an unrecognized native record. The bytes are
// copied so the caller may reuse its buffer.
func NewUnknown(raw []byte) Event {
	return Event{
		Timestamp: time.Now(),
		Type:      TypeUnknown,
		Unknown:   &UnknownPayload{Raw: json.RawMessage(append([]byte(nil), raw...))},
	}
}
