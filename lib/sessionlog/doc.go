// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// Package sessionlog provides the durable, append-only event log
// behind every session.
//
// One JSONL file per (namespace, sessionID) pair: record 0 is always
// session_created, every subsequent line is a canonical event or a
// user_message record, one compact JSON object per line. Appends are
// the only write operation — a log never requires rewriting prior
// content — and each append is synced so records survive a crash of
// the owning process.
//
// Replay treats the log as a minimal write-ahead log: the final line
// may be a partial write left by a crash, and any line that fails to
// parse is skipped with a warning instead of aborting the read. Only
// one session manager may append to a given session's log; read-only
// inspection from other processes is safe.
//
// Finished sessions can be archived: the log is compressed (zstd or
// lz4), a CBOR manifest with a BLAKE3 checksum is written beside it,
// and the plain file is removed. Reads transparently decompress and
// verify archived logs; writes to an archived session fail.
package sessionlog
