// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package sessionlog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/parleyhq/parley/lib/codec"
)

// manifestExtension is the suffix of archive manifest files.
const manifestExtension = ".manifest.cbor"

// Manifest describes one archived session log. It is written as
// deterministic CBOR beside the compressed log.
type Manifest struct {
	// SessionID is the archived session.
	SessionID string `cbor:"sessionId"`

	// Namespace is the session's namespace.
	Namespace string `cbor:"namespace"`

	// Compression is the algorithm name ("zstd", "lz4").
	Compression string `cbor:"compression"`

	// RecordCount is the number of valid records at archive time.
	RecordCount int `cbor:"recordCount"`

	// UncompressedSize is the plain log's byte size.
	UncompressedSize int64 `cbor:"uncompressedSize"`

	// Checksum is the BLAKE3-256 digest of the uncompressed log.
	// Verified on every archived read.
	Checksum []byte `cbor:"checksum"`

	// ArchivedAt is when the archive was created.
	ArchivedAt time.Time `cbor:"archivedAt"`
}

// Archive seals a session log: the plain JSONL file is compressed, a
// manifest with a BLAKE3 checksum is written beside it, and the plain
// file is removed. The session must not be written afterwards —
// appends fail with ErrSessionArchived. Archiving an already-archived
// or unknown session fails.
func (store *Store) Archive(sessionID string, compression Compression, namespace string) (*Manifest, error) {
	if err := validateName(sessionID); err != nil {
		return nil, err
	}
	if compression.extension() == "" {
		return nil, fmt.Errorf("archive session %q: unsupported compression %s", sessionID, compression)
	}
	path, err := store.namespacePath(namespace)
	if err != nil {
		return nil, err
	}

	// Release the append handle so the file contents are final.
	if err := store.CloseSession(sessionID, namespace); err != nil {
		return nil, fmt.Errorf("closing session log before archive: %w", err)
	}

	manifestPath := filepath.Join(path, sessionID+manifestExtension)
	if _, err := os.Stat(manifestPath); err == nil {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrSessionArchived)
	}

	plainPath := filepath.Join(path, sessionID+logExtension)
	data, err := os.ReadFile(plainPath)
	if err != nil {
		return nil, fmt.Errorf("reading session log for archive: %w", err)
	}

	checksum := blake3.Sum256(data)
	compressed, err := compression.compress(data)
	if err != nil {
		return nil, fmt.Errorf("compressing session log %q: %w", sessionID, err)
	}

	resolvedNamespace := namespace
	if resolvedNamespace == "" {
		resolvedNamespace = DefaultNamespace
	}
	manifest := &Manifest{
		SessionID:        sessionID,
		Namespace:        resolvedNamespace,
		Compression:      compression.String(),
		RecordCount:      len(store.parseRecords(sessionID, data)),
		UncompressedSize: int64(len(data)),
		Checksum:         checksum[:],
		ArchivedAt:       time.Now(),
	}
	encoded, err := codec.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("encoding archive manifest: %w", err)
	}

	archivePath := filepath.Join(path, sessionID+compression.extension())
	if err := writeFileAtomic(archivePath, compressed); err != nil {
		return nil, fmt.Errorf("writing archived log: %w", err)
	}
	if err := writeFileAtomic(manifestPath, encoded); err != nil {
		os.Remove(archivePath)
		return nil, fmt.Errorf("writing archive manifest: %w", err)
	}

	if err := os.Remove(plainPath); err != nil {
		return nil, fmt.Errorf("removing plain session log after archive: %w", err)
	}
	return manifest, nil
}

// Manifest returns the archive manifest for a session, or nil when the
// session is not archived.
func (store *Store) Manifest(sessionID string, namespace string) (*Manifest, error) {
	if err := validateName(sessionID); err != nil {
		return nil, err
	}
	path, err := store.namespacePath(namespace)
	if err != nil {
		return nil, err
	}

	encoded, err := os.ReadFile(filepath.Join(path, sessionID+manifestExtension))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading archive manifest: %w", err)
	}

	var manifest Manifest
	if err := codec.Unmarshal(encoded, &manifest); err != nil {
		return nil, fmt.Errorf("decoding archive manifest for %q: %w", sessionID, err)
	}
	return &manifest, nil
}

// readArchived loads and verifies an archived session log, returning
// the uncompressed JSONL bytes.
func (store *Store) readArchived(sessionID string, namespace string) ([]byte, error) {
	manifest, err := store.Manifest(sessionID, namespace)
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		return nil, fmt.Errorf("session log %q: %w", sessionID, os.ErrNotExist)
	}

	compression, err := ParseCompression(manifest.Compression)
	if err != nil {
		return nil, fmt.Errorf("archive manifest for %q: %w", sessionID, err)
	}

	path, err := store.namespacePath(namespace)
	if err != nil {
		return nil, err
	}
	compressed, err := os.ReadFile(filepath.Join(path, sessionID+compression.extension()))
	if err != nil {
		return nil, fmt.Errorf("reading archived log: %w", err)
	}

	data, err := compression.decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("decompressing archived log %q: %w", sessionID, err)
	}

	checksum := blake3.Sum256(data)
	if !bytes.Equal(checksum[:], manifest.Checksum) {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrChecksumMismatch)
	}
	return data, nil
}

// writeFileAtomic writes data to a temporary file and renames it into
// place, so readers never observe a partial file.
func writeFileAtomic(path string, data []byte) error {
	temp := path + ".tmp"
	if err := os.WriteFile(temp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(temp, path); err != nil {
		os.Remove(temp)
		return err
	}
	return nil
}
