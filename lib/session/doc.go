// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package session orchestrates agent sessions: it resolves adapters
// from a registry, serializes message delivery per session through a
// FIFO queue, persists every event to the session log, and restores
// session metadata from the log on startup.
//
// The Manager is the single writer of its store. Sessions are
// independent: each live session has one pump goroutine consuming its
// adapter's event channel, and no ordering holds across sessions.
// Structural errors (unknown session, unregistered adapter) are
// returned from Manager calls; runtime failures of a backend arrive as
// error events on the session's stream and never fail a call.
package session
