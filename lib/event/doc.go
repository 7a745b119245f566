// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package event defines the canonical event model shared by adapters,
// the session manager, the session log, and external subscribers.
//
// An [Event] is a tagged union: the Type field selects exactly one
// populated payload pointer. Adapters normalize their backend's native
// output into canonical events; everything downstream (persistence,
// fan-out, rendering) consumes the canonical form and never sees
// backend-specific shapes.
//
// Native records that do not map to a known variant are preserved as
// [TypeUnknown] events carrying the original bytes uninterpreted, so
// new backend event types survive logging and replay without code
// changes here.
package event
