// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package adapter defines the contract between the session runtime and
// concrete agent backends.
//
// An [Adapter] wraps exactly one backend (a CLI subprocess, an SDK
// connection) behind a uniform control surface: start, send, stop,
// and — where the backend supports it — pause and resume. Adapters
// emit canonical events ([lib/event]) on their Events channel as the
// backend produces output; the session manager is the single consumer
// responsible for ordering, persistence, and fan-out.
//
// Runtime failures inside a backend are reported as error events on
// the channel, never as errors returned from Send. This keeps the
// session manager alive and the session log complete when a backend
// process crashes mid-turn. Errors returned from adapter methods are
// reserved for structural problems: calling Pause on an adapter
// without pause support, sending to a stopped adapter.
//
// [Registry] maps adapter ids to factories. It is explicit state
// passed to the session manager's constructor rather than a package
// global, so tests compose isolated registries without cross-test
// coupling.
//
// Each concrete backend lives in its own subpackage
// (adapter/claudecode, adapter/adaptertest) and implements Adapter for
// its specific process management and output normalization.
package adapter
