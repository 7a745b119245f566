// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/parleyhq/parley/lib/sessionlog"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parley.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
data_dir: /var/lib/parley
namespace: team-a
archive:
  compression: lz4
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.DataDir != "/var/lib/parley" {
		t.Errorf("data_dir = %q", cfg.DataDir)
	}
	if cfg.Namespace != "team-a" {
		t.Errorf("namespace = %q", cfg.Namespace)
	}
	// Absent fields keep their defaults.
	if cfg.DefaultAdapter != "claude-code" {
		t.Errorf("default_adapter = %q, want default", cfg.DefaultAdapter)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log_level = %q, want default", cfg.LogLevel)
	}
	if cfg.Compression() != sessionlog.CompressionLZ4 {
		t.Errorf("compression = %v, want lz4", cfg.Compression())
	}
}

func TestLoadFileRejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"bad compression", "archive:\n  compression: gzip\n"},
		{"bad log level", "log_level: loud\n"},
		{"empty data dir", "data_dir: \"\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadFile(writeConfig(t, tc.content)); err == nil {
				t.Error("LoadFile accepted invalid config")
			}
		})
	}
}

func TestLoadWithoutConfigFile(t *testing.T) {
	t.Setenv("PARLEY_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with no config: %v", err)
	}
	if cfg.DataDir == "" || strings.Contains(cfg.DataDir, "${HOME}") {
		t.Errorf("data_dir not expanded: %q", cfg.DataDir)
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/dev")

	if got := expandPath("${HOME}/.parley"); got != "/home/dev/.parley" {
		t.Errorf("expandPath(${HOME}) = %q", got)
	}
	// Unknown variables survive intact.
	if got := expandPath("${WEIRD}/x"); got != "${WEIRD}/x" {
		t.Errorf("expandPath(${WEIRD}) = %q", got)
	}
}

func TestParseProfilesJSONC(t *testing.T) {
	data := []byte(`{
	// Prompt presets for the team.
	"profiles": {
		"reviewer": {
			"systemPrompt": "review only, do not edit",
			"allowedTools": ["Read", "Grep"], // trailing comma next
		},
		"builder": {
			"systemPrompt": "implement the task",
		},
	},
}`)

	profiles, err := ParseProfiles(data)
	if err != nil {
		t.Fatalf("ParseProfiles: %v", err)
	}

	reviewer, err := profiles.Get("reviewer")
	if err != nil {
		t.Fatal(err)
	}
	if reviewer.SystemPrompt != "review only, do not edit" {
		t.Errorf("systemPrompt = %q", reviewer.SystemPrompt)
	}
	if !reflect.DeepEqual(reviewer.AllowedTools, []string{"Read", "Grep"}) {
		t.Errorf("allowedTools = %v", reviewer.AllowedTools)
	}

	_, err = profiles.Get("ghost")
	if err == nil {
		t.Fatal("Get(unknown profile) succeeded")
	}
	if !strings.Contains(err.Error(), "builder") || !strings.Contains(err.Error(), "reviewer") {
		t.Errorf("error does not list available profiles: %v", err)
	}
}

func TestParseProfilesMalformed(t *testing.T) {
	if _, err := ParseProfiles([]byte(`{"profiles": [}`)); err == nil {
		t.Error("ParseProfiles accepted malformed input")
	}
}
