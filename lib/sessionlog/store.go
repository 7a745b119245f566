// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package sessionlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// DefaultNamespace partitions sessions that name no namespace of
// their own.
const DefaultNamespace = "default"

// logExtension is the suffix of plain (non-archived) session logs.
const logExtension = ".jsonl"

// Options configures a Store.
type Options struct {
	// Root is the directory holding per-namespace subdirectories of
	// session logs. Created if absent.
	Root string

	// Logger receives replay warnings (skipped records) and other
	// diagnostics. Nil means a default stderr logger.
	Logger *slog.Logger
}

// Store is the append-only session log store. One Store instance is
// the single writer for every session under its root; opening two
// writing stores over the same root is a caller error. Safe for
// concurrent use across sessions.
type Store struct {
	root   string
	logger *slog.Logger

	mu      sync.Mutex
	writers map[string]*logWriter
	closed  bool
}

// logWriter is the open append handle for one session log.
type logWriter struct {
	file    *os.File
	encoder *json.Encoder
	mu      sync.Mutex
}

// NewStore opens a store rooted at options.Root.
func NewStore(options Options) (*Store, error) {
	if options.Root == "" {
		return nil, fmt.Errorf("session log store: root directory is required")
	}
	if err := os.MkdirAll(options.Root, 0o755); err != nil {
		return nil, fmt.Errorf("creating session log root %q: %w", options.Root, err)
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return &Store{
		root:    options.Root,
		logger:  logger,
		writers: make(map[string]*logWriter),
	}, nil
}

// WriteRecord appends one record to the session's log as a single
// atomic write, synced to disk before returning. Appends never require
// reading or rewriting prior content.
func (store *Store) WriteRecord(sessionID string, record Record, namespace string) error {
	writer, err := store.writer(sessionID, namespace)
	if err != nil {
		return err
	}
	return writer.append(record)
}

// ReadRecords replays every record of a session in append order. A
// record that fails to parse — typically a partial final line left by
// a crash mid-write — is skipped with a warning; it never aborts the
// read of prior valid records. Archived logs are transparently
// decompressed and checksum-verified.
func (store *Store) ReadRecords(sessionID string, namespace string) ([]Record, error) {
	if err := validateName(sessionID); err != nil {
		return nil, err
	}
	path, err := store.namespacePath(namespace)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(path, sessionID+logExtension))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading session log %q: %w", sessionID, err)
		}
		// No plain log: fall back to an archive if one exists.
		data, err = store.readArchived(sessionID, namespace)
		if err != nil {
			return nil, err
		}
	}
	return store.parseRecords(sessionID, data), nil
}

// Sessions lists the session ids with a log (plain or archived) in the
// namespace, sorted.
func (store *Store) Sessions(namespace string) ([]string, error) {
	path, err := store.namespacePath(namespace)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing session logs: %w", err)
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, logExtension):
			seen[strings.TrimSuffix(name, logExtension)] = true
		case strings.HasSuffix(name, manifestExtension):
			seen[strings.TrimSuffix(name, manifestExtension)] = true
		}
	}

	sessions := make([]string, 0, len(seen))
	for id := range seen {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}

// Namespaces lists the namespaces present under the store root,
// sorted.
func (store *Store) Namespaces() ([]string, error) {
	entries, err := os.ReadDir(store.root)
	if err != nil {
		return nil, fmt.Errorf("listing namespaces: %w", err)
	}
	var namespaces []string
	for _, entry := range entries {
		if entry.IsDir() {
			namespaces = append(namespaces, entry.Name())
		}
	}
	sort.Strings(namespaces)
	return namespaces, nil
}

// CloseSession closes the open write handle for one session, if any.
// Subsequent writes reopen it.
func (store *Store) CloseSession(sessionID string, namespace string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	key := store.key(sessionID, namespace)
	writer, open := store.writers[key]
	if !open {
		return nil
	}
	delete(store.writers, key)
	return writer.close()
}

// Close closes every open write handle. The store cannot be written
// after Close.
func (store *Store) Close() error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.closed {
		return nil
	}
	store.closed = true

	var firstError error
	for key, writer := range store.writers {
		if err := writer.close(); err != nil && firstError == nil {
			firstError = fmt.Errorf("closing session log %s: %w", key, err)
		}
		delete(store.writers, key)
	}
	return firstError
}

// writer returns the open append handle for a session, creating the
// log file on first write.
func (store *Store) writer(sessionID string, namespace string) (*logWriter, error) {
	if err := validateName(sessionID); err != nil {
		return nil, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if store.closed {
		return nil, ErrStoreClosed
	}

	key := store.key(sessionID, namespace)
	if writer, open := store.writers[key]; open {
		return writer, nil
	}

	path, err := store.namespacePath(namespace)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("creating namespace directory: %w", err)
	}

	// An archived session is sealed: appends would diverge from the
	// manifest's record count and checksum.
	if _, err := os.Stat(filepath.Join(path, sessionID+manifestExtension)); err == nil {
		return nil, fmt.Errorf("session %q: %w", sessionID, ErrSessionArchived)
	}

	file, err := os.OpenFile(
		filepath.Join(path, sessionID+logExtension),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening session log %q: %w", sessionID, err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetEscapeHTML(false)
	writer := &logWriter{file: file, encoder: encoder}
	store.writers[key] = writer
	return writer, nil
}

// parseRecords decodes JSONL data line by line, skipping lines that
// fail to parse.
func (store *Store) parseRecords(sessionID string, data []byte) []Record {
	var records []Record

	scanner := bufio.NewScanner(bytes.NewReader(data))
	// Tool results routinely carry whole files; allow long lines.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var record Record
		if err := json.Unmarshal(line, &record); err != nil {
			store.logger.Warn("skipping unparsable session log record",
				"session_id", sessionID, "line", lineNumber, "error", err)
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		store.logger.Warn("session log replay stopped early",
			"session_id", sessionID, "line", lineNumber, "error", err)
	}
	return records
}

func (store *Store) key(sessionID string, namespace string) string {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return namespace + "/" + sessionID
}

func (store *Store) namespacePath(namespace string) (string, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if err := validateName(namespace); err != nil {
		return "", err
	}
	return filepath.Join(store.root, namespace), nil
}

// validateName rejects ids that would escape the store root or
// collide with log file suffixes.
func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("session log: empty name")
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return fmt.Errorf("session log: invalid name %q", name)
	}
	return nil
}

// append writes one record as a single JSON line and syncs the file.
// Sync after each write so records are visible even if the process
// crashes; session logs are low-throughput, so the cost is acceptable.
func (writer *logWriter) append(record Record) error {
	writer.mu.Lock()
	defer writer.mu.Unlock()

	if err := writer.encoder.Encode(record); err != nil {
		return fmt.Errorf("encoding session log record: %w", err)
	}
	if err := writer.file.Sync(); err != nil {
		return fmt.Errorf("syncing session log: %w", err)
	}
	return nil
}

func (writer *logWriter) close() error {
	writer.mu.Lock()
	defer writer.mu.Unlock()
	return writer.file.Close()
}

