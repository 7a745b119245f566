// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package claudecode adapts the Claude Code CLI to the adapter
// contract.
//
// The adapter spawns one long-lived `claude` process per session in
// print mode with stream-json input and output. User messages are
// injected as JSON lines on stdin; stdout is scanned line by line and
// each native record is normalized into zero or more canonical events.
// A native "result" record marks the end of a turn and returns the
// adapter to idle.
//
// The binary is resolved from PARLEY_CLAUDE_BINARY, falling back to
// "claude" on PATH. Pause and resume are not supported; interruption
// is SIGINT (Claude Code finishes the current tool call and exits),
// escalating to SIGKILL after a grace period.
package claudecode
