// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package adaptertest provides a scriptable in-memory adapter for
// exercising the session runtime without a real backend.
//
// A [Stub] spawns no process. Each dispatched message opens a turn
// that either completes immediately (AutoResolve) or stays running
// until the test calls [Stub.Resolve] or [Stub.Fail] — this is how
// tests pin an adapter in the running state to observe queueing
// behavior. The stub records every Start and Send call for
// assertions and supports the full feature set including pause and
// resume.
package adaptertest
