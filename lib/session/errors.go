// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned by operations naming an unknown
// session id.
var ErrSessionNotFound = errors.New("session not found")

// ErrAdapterUnavailable is returned when the session's backend cannot
// run here (missing binary, unconfigured credentials).
var ErrAdapterUnavailable = errors.New("adapter unavailable")

// ErrManagerClosed is returned by operations on a closed Manager.
var ErrManagerClosed = errors.New("session manager closed")

// PersistenceError wraps a session log I/O failure. It aborts
// CreateSession when the initial session_created write fails; later
// write failures are logged and do not interrupt the session.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("session log %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
