// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import "errors"

// ErrAdapterNotFound is returned by Registry.Resolve for an
// unregistered adapter id.
var ErrAdapterNotFound = errors.New("adapter not found")

// ErrAdapterExists is returned by Registry.Register when the id is
// already taken.
var ErrAdapterExists = errors.New("adapter already registered")

// ErrEmptyAdapterID is returned by Registry.Register for a
// registration without an id.
var ErrEmptyAdapterID = errors.New("adapter id must not be empty")

// ErrNotSupported is returned by control operations whose feature flag
// is false for the adapter (e.g., Pause without pauseResume support).
var ErrNotSupported = errors.New("operation not supported by adapter")

// ErrInvalidState is returned by control operations called in a state
// where they are not legal (e.g., Send on a stopped adapter).
var ErrInvalidState = errors.New("operation not valid in current adapter state")
