// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package claudecode

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/parleyhq/parley/lib/event"
)

// nativeRecord is the envelope of one Claude Code stream-json line.
type nativeRecord struct {
	Type    string         `json:"type"`
	Subtype string         `json:"subtype"`
	Message *nativeMessage `json:"message"`

	// Result-record fields.
	IsError  bool         `json:"is_error"`
	NumTurns int64        `json:"num_turns"`
	Usage    *nativeUsage `json:"usage"`
	ResultText string     `json:"result"`
}

// nativeMessage is the message body of assistant and user records.
type nativeMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Usage   *nativeUsage    `json:"usage"`
}

// nativeContentBlock is one block of a message content array.
type nativeContentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
}

type nativeUsage struct {
	InputTokens      int64 `json:"input_tokens"`
	OutputTokens     int64 `json:"output_tokens"`
	CacheReadTokens  int64 `json:"cache_read_input_tokens"`
	CacheWriteTokens int64 `json:"cache_creation_input_tokens"`
}

// normalizeLine converts one native stream-json line into zero or more
// canonical events. Records carrying no conversational signal (system
// init, empty lines) normalize to nothing; unrecognized record types
// are preserved as unknown events rather than dropped.
func normalizeLine(line []byte) []event.Event {
	if len(line) == 0 {
		return nil
	}

	var record nativeRecord
	if err := json.Unmarshal(line, &record); err != nil || record.Type == "" {
		// Not a JSON record at all (or untyped). Preserve it raw; the
		// CLI occasionally prints plain-text diagnostics on stdout.
		return []event.Event{event.NewUnknown(line)}
	}

	switch record.Type {
	case "system":
		// Init and compaction markers carry session plumbing, not
		// conversation content. The adapter consumes readiness
		// internally; nothing is emitted.
		return nil

	case "assistant":
		return normalizeAssistant(record.Message)

	case "user":
		// User records in the output stream are tool results echoed
		// back by the CLI.
		return normalizeToolResults(record.Message)

	case "result":
		return []event.Event{normalizeResult(&record)}

	default:
		return []event.Event{event.NewUnknown(line)}
	}
}

// normalizeAssistant expands an assistant message's content blocks.
// One native record can produce several canonical events (text,
// thinking, and tool_use blocks arrive together).
func normalizeAssistant(message *nativeMessage) []event.Event {
	if message == nil {
		return nil
	}
	blocks, ok := decodeContentBlocks(message.Content)
	if !ok {
		// Content can be a bare string for simple responses.
		var text string
		if json.Unmarshal(message.Content, &text) == nil && text != "" {
			return []event.Event{event.NewMessage(text, false)}
		}
		return nil
	}

	var events []event.Event
	for _, block := range blocks {
		switch block.Type {
		case "text":
			if block.Text != "" {
				events = append(events, event.NewMessage(block.Text, false))
			}
		case "thinking":
			if block.Thinking != "" {
				events = append(events, event.NewThinking(block.Thinking, false))
			}
		case "tool_use":
			events = append(events, event.NewToolUse(block.ID, block.Name, block.Input))
		}
	}
	return events
}

// normalizeToolResults extracts tool_result blocks from a user record.
func normalizeToolResults(message *nativeMessage) []event.Event {
	if message == nil {
		return nil
	}
	blocks, ok := decodeContentBlocks(message.Content)
	if !ok {
		return nil
	}

	var events []event.Event
	for _, block := range blocks {
		if block.Type != "tool_result" {
			continue
		}
		events = append(events, event.NewToolResult(
			block.ToolUseID, flattenToolOutput(block.Content), block.IsError))
	}
	return events
}

// normalizeResult converts a turn-terminating result record.
func normalizeResult(record *nativeRecord) event.Event {
	payload := event.ResultPayload{}
	if record.Usage != nil {
		payload.Usage = &event.Usage{
			InputTokens:      record.Usage.InputTokens,
			OutputTokens:     record.Usage.OutputTokens,
			CacheReadTokens:  record.Usage.CacheReadTokens,
			CacheWriteTokens: record.Usage.CacheWriteTokens,
		}
	}
	if record.IsError {
		return event.Event{
			Timestamp: time.Now(),
			Type:      event.TypeError,
			Error: &event.ErrorPayload{
				Message: record.ResultText,
				Code:    record.Subtype,
			},
		}
	}
	return event.NewResult(payload)
}

// decodeContentBlocks decodes a content array. Returns ok=false when
// the content is not an array (e.g., a bare string).
func decodeContentBlocks(content json.RawMessage) ([]nativeContentBlock, bool) {
	var blocks []nativeContentBlock
	if err := json.Unmarshal(content, &blocks); err != nil {
		return nil, false
	}
	return blocks, true
}

// flattenToolOutput renders a tool_result content value as text. The
// CLI emits either a bare string or an array of {type:"text",text}
// blocks.
func flattenToolOutput(content json.RawMessage) string {
	if len(content) == 0 {
		return ""
	}
	var text string
	if json.Unmarshal(content, &text) == nil {
		return text
	}
	var blocks []nativeContentBlock
	if json.Unmarshal(content, &blocks) != nil {
		return strings.TrimSpace(string(content))
	}
	var parts []string
	for _, block := range blocks {
		if block.Type == "text" && block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// isTurnEnd reports whether a native line terminates the current turn.
func isTurnEnd(line []byte) bool {
	var envelope struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(line, &envelope) != nil {
		return false
	}
	return envelope.Type == "result"
}
