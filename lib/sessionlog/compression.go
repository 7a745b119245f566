// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package sessionlog

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the algorithm used for an archived session
// log. The value is recorded in the archive manifest — changing the
// mapping breaks existing archives.
type Compression uint8

const (
	// CompressionZstd is the default. Session logs are JSON text, where
	// zstd's ratio (~3-5x) beats its CPU cost comfortably.
	CompressionZstd Compression = 1

	// CompressionLZ4 trades ratio for speed. Useful when archiving is
	// on a latency-sensitive path.
	CompressionLZ4 Compression = 2
)

// String returns the algorithm name.
func (c Compression) String() string {
	switch c {
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// extension returns the archived log's filename suffix.
func (c Compression) extension() string {
	switch c {
	case CompressionZstd:
		return ".jsonl.zst"
	case CompressionLZ4:
		return ".jsonl.lz4"
	default:
		return ""
	}
}

// ParseCompression parses an algorithm name.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}

// compress encodes data with the algorithm.
func (c Compression) compress(data []byte) ([]byte, error) {
	switch c {
	case CompressionZstd:
		encoder, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd encoder: %w", err)
		}
		defer encoder.Close()
		return encoder.EncodeAll(data, nil), nil

	case CompressionLZ4:
		var buffer bytes.Buffer
		writer := lz4.NewWriter(&buffer)
		if _, err := writer.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if err := writer.Close(); err != nil {
			return nil, fmt.Errorf("lz4 flush: %w", err)
		}
		return buffer.Bytes(), nil

	default:
		return nil, fmt.Errorf("compress: %s", c)
	}
}

// decompress decodes data with the algorithm.
func (c Compression) decompress(data []byte) ([]byte, error) {
	switch c {
	case CompressionZstd:
		decoder, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		defer decoder.Close()
		decoded, err := decoder.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return decoded, nil

	case CompressionLZ4:
		decoded, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return decoded, nil

	default:
		return nil, fmt.Errorf("decompress: %s", c)
	}
}
