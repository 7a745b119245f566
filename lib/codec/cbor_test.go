// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"testing"
)

// sampleManifest mirrors the shape of the archive manifests this
// package encodes: strings, integers, and a binary checksum.
type sampleManifest struct {
	SessionID   string `cbor:"sessionId"`
	Compression string `cbor:"compression,omitempty"`
	RecordCount int    `cbor:"recordCount"`
	Checksum    []byte `cbor:"checksum"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleManifest{
		SessionID:   "b3a1c9",
		Compression: "zstd",
		RecordCount: 42,
		Checksum:    []byte{0xde, 0xad, 0xbe, 0xef},
	}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Marshal produced empty output")
	}

	var decoded sampleManifest
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if decoded.SessionID != original.SessionID ||
		decoded.Compression != original.Compression ||
		decoded.RecordCount != original.RecordCount ||
		!bytes.Equal(decoded.Checksum, original.Checksum) {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	manifest := sampleManifest{SessionID: "s", RecordCount: 7, Checksum: []byte{1}}

	first, err := Marshal(manifest)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	second, err := Marshal(manifest)
	if err != nil {
		t.Fatalf("second Marshal: %v", err)
	}

	if !bytes.Equal(first, second) {
		t.Errorf("deterministic encoding violated: %x != %x", first, second)
	}
}

func TestOmitemptyRespected(t *testing.T) {
	withCompression := sampleManifest{SessionID: "a", Compression: "lz4", RecordCount: 1}
	withoutCompression := sampleManifest{SessionID: "a", RecordCount: 1}

	dataWith, err := Marshal(withCompression)
	if err != nil {
		t.Fatal(err)
	}
	dataWithout, err := Marshal(withoutCompression)
	if err != nil {
		t.Fatal(err)
	}

	if len(dataWithout) >= len(dataWith) {
		t.Errorf("omitempty not effective: without=%d bytes, with=%d bytes",
			len(dataWithout), len(dataWith))
	}
}

func TestDefaultMapType(t *testing.T) {
	data, err := Marshal(map[string]any{"kind": "archive", "records": int64(3)})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	asMap, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded any-typed map is %T, want map[string]any", decoded)
	}
	if asMap["kind"] != "archive" {
		t.Errorf("kind = %v", asMap["kind"])
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var manifest sampleManifest
	if err := Unmarshal([]byte{0xFF, 0xFE, 0xFD}, &manifest); err == nil {
		t.Error("Unmarshal should reject invalid CBOR")
	}
}
