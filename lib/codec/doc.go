// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the standard CBOR encoding configuration for
// Parley's on-disk state.
//
// Session logs themselves are JSON lines — they are an external,
// inspectable contract. CBOR is used for compact internal sidecar
// files, currently the archive manifests written by lib/sessionlog.
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items, so
// the same logical data always produces identical bytes and manifests
// are byte-comparable.
package codec
