// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package sessionlog

import "errors"

// ErrSessionArchived is returned when appending to (or re-archiving) a
// session whose log has been archived.
var ErrSessionArchived = errors.New("session log is archived")

// ErrChecksumMismatch is returned when an archived log fails BLAKE3
// verification against its manifest.
var ErrChecksumMismatch = errors.New("archived session log checksum mismatch")

// ErrStoreClosed is returned by operations on a closed store.
var ErrStoreClosed = errors.New("session log store is closed")
