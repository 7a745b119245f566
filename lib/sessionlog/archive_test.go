// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package sessionlog

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeSampleSession(t *testing.T, store *Store, sessionID string) []Record {
	t.Helper()
	records := sampleRecords(t)
	for _, record := range records {
		if err := store.WriteRecord(sessionID, record, ""); err != nil {
			t.Fatalf("WriteRecord: %v", err)
		}
	}
	return records
}

func TestArchiveRoundTrip(t *testing.T) {
	for _, compression := range []Compression{CompressionZstd, CompressionLZ4} {
		t.Run(compression.String(), func(t *testing.T) {
			store := newTestStore(t)
			written := writeSampleSession(t, store, "ses-1")

			manifest, err := store.Archive("ses-1", compression, "")
			if err != nil {
				t.Fatalf("Archive: %v", err)
			}
			if manifest.RecordCount != len(written) {
				t.Errorf("manifest record count = %d, want %d", manifest.RecordCount, len(written))
			}
			if manifest.Compression != compression.String() {
				t.Errorf("manifest compression = %q", manifest.Compression)
			}
			if manifest.Namespace != DefaultNamespace {
				t.Errorf("manifest namespace = %q", manifest.Namespace)
			}
			if len(manifest.Checksum) != 32 {
				t.Errorf("checksum length = %d, want 32", len(manifest.Checksum))
			}

			// The plain log is gone; only compressed log and manifest remain.
			dir := filepath.Join(store.root, DefaultNamespace)
			if _, err := os.Stat(filepath.Join(dir, "ses-1"+logExtension)); !os.IsNotExist(err) {
				t.Errorf("plain log still present after archive: %v", err)
			}

			// Reads are transparent across the archive boundary.
			replayed, err := store.ReadRecords("ses-1", "")
			if err != nil {
				t.Fatalf("ReadRecords after archive: %v", err)
			}
			if len(replayed) != len(written) {
				t.Fatalf("replayed %d records, want %d", len(replayed), len(written))
			}
			for i := range written {
				want, _ := json.Marshal(written[i])
				got, _ := json.Marshal(replayed[i])
				if string(want) != string(got) {
					t.Errorf("record %d changed across archive:\n  wrote %s\n  read  %s", i, want, got)
				}
			}
		})
	}
}

func TestWriteAfterArchive(t *testing.T) {
	store := newTestStore(t)
	writeSampleSession(t, store, "ses-1")

	if _, err := store.Archive("ses-1", CompressionZstd, ""); err != nil {
		t.Fatal(err)
	}

	err := store.WriteRecord("ses-1", NewUserMessage("too late", nil), "")
	if !errors.Is(err, ErrSessionArchived) {
		t.Errorf("WriteRecord after archive = %v, want ErrSessionArchived", err)
	}
}

func TestArchiveTwice(t *testing.T) {
	store := newTestStore(t)
	writeSampleSession(t, store, "ses-1")

	if _, err := store.Archive("ses-1", CompressionZstd, ""); err != nil {
		t.Fatal(err)
	}
	_, err := store.Archive("ses-1", CompressionZstd, "")
	if !errors.Is(err, ErrSessionArchived) {
		t.Errorf("second Archive = %v, want ErrSessionArchived", err)
	}
}

func TestArchiveUnknownSession(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Archive("ghost", CompressionZstd, ""); err == nil {
		t.Error("Archive of unknown session succeeded")
	}
}

func TestChecksumMismatch(t *testing.T) {
	store := newTestStore(t)
	writeSampleSession(t, store, "ses-1")

	if _, err := store.Archive("ses-1", CompressionLZ4, ""); err != nil {
		t.Fatal(err)
	}

	// Corrupt the compressed payload: recompress different bytes so
	// decompression succeeds but the digest no longer matches.
	tampered, err := CompressionLZ4.compress([]byte(`{"type":"user_message","text":"forged"}` + "\n"))
	if err != nil {
		t.Fatal(err)
	}
	archivePath := filepath.Join(store.root, DefaultNamespace, "ses-1"+CompressionLZ4.extension())
	if err := os.WriteFile(archivePath, tampered, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err = store.ReadRecords("ses-1", "")
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Errorf("ReadRecords of tampered archive = %v, want ErrChecksumMismatch", err)
	}
}

func TestArchivedSessionStillListed(t *testing.T) {
	store := newTestStore(t)
	writeSampleSession(t, store, "ses-1")
	writeSampleSession(t, store, "ses-2")

	if _, err := store.Archive("ses-1", CompressionZstd, ""); err != nil {
		t.Fatal(err)
	}

	sessions, err := store.Sessions("")
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 || sessions[0] != "ses-1" || sessions[1] != "ses-2" {
		t.Errorf("Sessions = %v, want [ses-1 ses-2]", sessions)
	}
}

func TestManifestLookup(t *testing.T) {
	store := newTestStore(t)
	writeSampleSession(t, store, "ses-1")

	manifest, err := store.Manifest("ses-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if manifest != nil {
		t.Errorf("Manifest before archive = %+v, want nil", manifest)
	}

	archived, err := store.Archive("ses-1", CompressionZstd, "")
	if err != nil {
		t.Fatal(err)
	}
	manifest, err = store.Manifest("ses-1", "")
	if err != nil {
		t.Fatal(err)
	}
	if manifest == nil {
		t.Fatal("Manifest after archive = nil")
	}
	if manifest.SessionID != archived.SessionID || manifest.RecordCount != archived.RecordCount {
		t.Errorf("stored manifest %+v does not match returned %+v", manifest, archived)
	}
}

func TestParseCompression(t *testing.T) {
	for _, name := range []string{"zstd", "lz4"} {
		compression, err := ParseCompression(name)
		if err != nil {
			t.Errorf("ParseCompression(%q): %v", name, err)
		}
		if compression.String() != name {
			t.Errorf("ParseCompression(%q).String() = %q", name, compression.String())
		}
	}
	if _, err := ParseCompression("gzip"); err == nil {
		t.Error("ParseCompression accepted unsupported algorithm")
	}
}
