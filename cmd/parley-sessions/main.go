// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

// parley-sessions inspects and archives session logs. It reads the
// same data directory the session manager writes, but never writes log
// records itself.
//
// Usage:
//
//	parley-sessions list
//	parley-sessions dump <session-id>
//	parley-sessions archive <session-id> [--compression zstd|lz4]
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/parleyhq/parley/lib/config"
	"github.com/parleyhq/parley/lib/sessionlog"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		namespace   string
		compression string
	)

	flagSet := pflag.NewFlagSet("parley-sessions", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "config file path (default: PARLEY_CONFIG)")
	flagSet.StringVar(&namespace, "namespace", "", "session namespace (default from config)")
	flagSet.StringVar(&compression, "compression", "", "archive algorithm: zstd or lz4 (default from config)")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if namespace == "" {
		namespace = cfg.Namespace
	}
	if compression == "" {
		compression = cfg.Archive.Compression
	}

	store, err := sessionlog.NewStore(sessionlog.Options{Root: cfg.DataDir})
	if err != nil {
		return err
	}
	defer store.Close()

	args := flagSet.Args()
	if len(args) == 0 {
		return fmt.Errorf("usage: parley-sessions list | dump <session-id> | archive <session-id>")
	}

	switch args[0] {
	case "list":
		return list(store, namespace)

	case "dump":
		if len(args) != 2 {
			return fmt.Errorf("usage: parley-sessions dump <session-id>")
		}
		return dump(store, args[1], namespace)

	case "archive":
		if len(args) != 2 {
			return fmt.Errorf("usage: parley-sessions archive <session-id>")
		}
		algorithm, err := sessionlog.ParseCompression(compression)
		if err != nil {
			return err
		}
		manifest, err := store.Archive(args[1], algorithm, namespace)
		if err != nil {
			return err
		}
		fmt.Printf("archived %s: %d records, %d bytes uncompressed, %s\n",
			manifest.SessionID, manifest.RecordCount, manifest.UncompressedSize, manifest.Compression)
		return nil

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// list prints one line per session: id, adapter, creation time, and
// archive state, all taken from the log itself.
func list(store *sessionlog.Store, namespace string) error {
	sessionIDs, err := store.Sessions(namespace)
	if err != nil {
		return err
	}

	for _, sessionID := range sessionIDs {
		records, err := store.ReadRecords(sessionID, namespace)
		if err != nil || len(records) == 0 || records[0].Type != sessionlog.TypeSessionCreated {
			fmt.Printf("%s  (unreadable metadata)\n", sessionID)
			continue
		}
		created := records[0]

		state := "active"
		if manifest, err := store.Manifest(sessionID, namespace); err == nil && manifest != nil {
			state = "archived/" + manifest.Compression
		}

		fmt.Printf("%s  %-12s  %s  %3d records  %s\n",
			sessionID, created.Adapter,
			created.Timestamp.Format("2006-01-02 15:04"),
			len(records), state)
	}
	return nil
}

// dump replays a session log as JSONL on stdout, exactly as stored
// (archived sessions are decompressed and verified first).
func dump(store *sessionlog.Store, sessionID string, namespace string) error {
	records, err := store.ReadRecords(sessionID, namespace)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetEscapeHTML(false)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			return err
		}
	}
	return nil
}
