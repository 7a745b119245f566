// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package sessionlog

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/parleyhq/parley/lib/event"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(Options{Root: t.TempDir()})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRecords(t *testing.T) []Record {
	t.Helper()
	created := NewSessionCreated("ses-1", "claude-code", "/work/repo", "be brief", []string{"Read", "Bash"})
	userMessage := NewUserMessage("please run the tests", nil)

	message := event.NewMessage("running them now", false)
	message.Fill(time.Now())
	toolUse := event.NewToolUse("tu-1", "Bash", json.RawMessage(`{"command":"go test"}`))
	toolUse.Fill(time.Now())

	return []Record{created, userMessage, FromEvent(message), FromEvent(toolUse)}
}

func TestWriteReadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	records := sampleRecords(t)

	for _, record := range records {
		if err := store.WriteRecord("ses-1", record, ""); err != nil {
			t.Fatalf("WriteRecord: %v", err)
		}
	}

	replayed, err := store.ReadRecords("ses-1", "")
	if err != nil {
		t.Fatalf("ReadRecords: %v", err)
	}
	if len(replayed) != len(records) {
		t.Fatalf("replayed %d records, want %d", len(replayed), len(records))
	}

	// Field-for-field equality through the wire form.
	for i := range records {
		want, err := json.Marshal(records[i])
		if err != nil {
			t.Fatal(err)
		}
		got, err := json.Marshal(replayed[i])
		if err != nil {
			t.Fatal(err)
		}
		if string(want) != string(got) {
			t.Errorf("record %d changed in round trip:\n  wrote %s\n  read  %s", i, want, got)
		}
	}
}

func TestFirstRecordIsSessionCreated(t *testing.T) {
	store := newTestStore(t)
	for _, record := range sampleRecords(t) {
		if err := store.WriteRecord("ses-1", record, ""); err != nil {
			t.Fatal(err)
		}
	}

	replayed, err := store.ReadRecords("ses-1", "")
	if err != nil {
		t.Fatal(err)
	}
	first := replayed[0]
	if first.Type != TypeSessionCreated {
		t.Fatalf("record 0 type = %q, want session_created", first.Type)
	}
	if first.SessionID != "ses-1" || first.Adapter != "claude-code" || first.WorkingDirectory != "/work/repo" {
		t.Errorf("session_created metadata = %+v", first)
	}
	if first.SystemPrompt != "be brief" {
		t.Errorf("systemPrompt = %q", first.SystemPrompt)
	}
	if !reflect.DeepEqual(first.AllowedTools, []string{"Read", "Bash"}) {
		t.Errorf("allowedTools = %v", first.AllowedTools)
	}
}

func TestOmittedKeysAbsentFromWireForm(t *testing.T) {
	store := newTestStore(t)
	created := NewSessionCreated("ses-bare", "stub", "", "", nil)
	if err := store.WriteRecord("ses-bare", created, ""); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(store.root, DefaultNamespace, "ses-bare.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"systemPrompt", "allowedTools", "cwd"} {
		if containsKey(data, key) {
			t.Errorf("omitted key %q present in wire form: %s", key, data)
		}
	}
}

func containsKey(line []byte, key string) bool {
	var parsed map[string]json.RawMessage
	if json.Unmarshal(line, &parsed) != nil {
		return false
	}
	_, present := parsed[key]
	return present
}

func TestCorruptedTailIsSkipped(t *testing.T) {
	store := newTestStore(t)
	records := sampleRecords(t)[:3]
	for _, record := range records {
		if err := store.WriteRecord("ses-1", record, ""); err != nil {
			t.Fatal(err)
		}
	}

	// Simulate a crash mid-write: a truncated, non-parsable final line.
	path := filepath.Join(store.root, DefaultNamespace, "ses-1.jsonl")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := file.WriteString(`{"type":"message","message":{"te`); err != nil {
		t.Fatal(err)
	}
	file.Close()

	replayed, err := store.ReadRecords("ses-1", "")
	if err != nil {
		t.Fatalf("ReadRecords with corrupted tail: %v", err)
	}
	if len(replayed) != 3 {
		t.Errorf("replayed %d records, want exactly the 3 valid ones", len(replayed))
	}
}

func TestCorruptedMiddleLineIsSkipped(t *testing.T) {
	store := newTestStore(t)
	if err := store.WriteRecord("ses-2", NewSessionCreated("ses-2", "stub", "", "", nil), ""); err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(store.root, DefaultNamespace, "ses-2.jsonl")
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := file.WriteString("not json at all\n"); err != nil {
		t.Fatal(err)
	}
	file.Close()

	if err := store.WriteRecord("ses-2", NewUserMessage("after the corruption", nil), ""); err != nil {
		t.Fatal(err)
	}

	replayed, err := store.ReadRecords("ses-2", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(replayed) != 2 {
		t.Fatalf("replayed %d records, want 2", len(replayed))
	}
	if replayed[1].Text != "after the corruption" {
		t.Errorf("record after corruption = %+v", replayed[1])
	}
}

func TestNamespacesPartitionSessions(t *testing.T) {
	store := newTestStore(t)

	if err := store.WriteRecord("ses-1", NewSessionCreated("ses-1", "stub", "", "", nil), "alpha"); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteRecord("ses-1", NewSessionCreated("ses-1", "stub", "", "", nil), "beta"); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteRecord("ses-1", NewUserMessage("only in alpha", nil), "alpha"); err != nil {
		t.Fatal(err)
	}

	alpha, err := store.ReadRecords("ses-1", "alpha")
	if err != nil {
		t.Fatal(err)
	}
	beta, err := store.ReadRecords("ses-1", "beta")
	if err != nil {
		t.Fatal(err)
	}
	if len(alpha) != 2 || len(beta) != 1 {
		t.Errorf("alpha has %d records, beta has %d; want 2 and 1", len(alpha), len(beta))
	}

	namespaces, err := store.Namespaces()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(namespaces, []string{"alpha", "beta"}) {
		t.Errorf("Namespaces = %v", namespaces)
	}
}

func TestSessionsListing(t *testing.T) {
	store := newTestStore(t)
	for _, id := range []string{"ses-c", "ses-a", "ses-b"} {
		if err := store.WriteRecord(id, NewSessionCreated(id, "stub", "", "", nil), ""); err != nil {
			t.Fatal(err)
		}
	}

	sessions, err := store.Sessions("")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(sessions, []string{"ses-a", "ses-b", "ses-c"}) {
		t.Errorf("Sessions = %v", sessions)
	}

	// Unknown namespace is empty, not an error.
	none, err := store.Sessions("nothing-here")
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("Sessions(empty namespace) = %v", none)
	}
}

func TestReadUnknownSession(t *testing.T) {
	store := newTestStore(t)
	_, err := store.ReadRecords("ghost", "")
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("ReadRecords(unknown) = %v, want not-exist error", err)
	}
}

func TestValidateNameRejectsTraversal(t *testing.T) {
	store := newTestStore(t)
	for _, name := range []string{"", "..", "a/b", `a\b`} {
		if err := store.WriteRecord(name, NewUserMessage("x", nil), ""); err == nil {
			t.Errorf("WriteRecord accepted session id %q", name)
		}
	}
}

func TestWriteAfterClose(t *testing.T) {
	store := newTestStore(t)
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	err := store.WriteRecord("ses-1", NewUserMessage("late", nil), "")
	if !errors.Is(err, ErrStoreClosed) {
		t.Errorf("WriteRecord on closed store = %v, want ErrStoreClosed", err)
	}
}
