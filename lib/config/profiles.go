// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/tidwall/jsonc"
)

// Profile is a named prompt preset a session can be created from:
// a system prompt plus an optional tool restriction.
type Profile struct {
	// SystemPrompt is appended to the backend's system prompt.
	SystemPrompt string `json:"systemPrompt"`

	// AllowedTools restricts the backend's tools. Empty means the
	// backend default.
	AllowedTools []string `json:"allowedTools,omitempty"`
}

// Profiles is a set of named presets, authored on disk as JSONC (JSON
// extended with // line comments, /* block comments */, and trailing
// commas).
type Profiles struct {
	Profiles map[string]Profile `json:"profiles"`
}

// ParseProfiles strips JSONC comments and trailing commas from data,
// then unmarshals the result.
func ParseProfiles(data []byte) (*Profiles, error) {
	stripped := jsonc.ToJSON(data)

	var profiles Profiles
	if err := json.Unmarshal(stripped, &profiles); err != nil {
		return nil, fmt.Errorf("parsing profiles: %w", err)
	}
	if profiles.Profiles == nil {
		profiles.Profiles = make(map[string]Profile)
	}
	return &profiles, nil
}

// LoadProfiles reads a JSONC profiles file from disk.
func LoadProfiles(path string) (*Profiles, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	profiles, err := ParseProfiles(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return profiles, nil
}

// Get returns a profile by name. The error lists the available names,
// since a typo here is otherwise hard to spot.
func (p *Profiles) Get(name string) (Profile, error) {
	profile, exists := p.Profiles[name]
	if !exists {
		names := make([]string, 0, len(p.Profiles))
		for known := range p.Profiles {
			names = append(names, known)
		}
		sort.Strings(names)
		return Profile{}, fmt.Errorf("unknown profile %q (available: %v)", name, names)
	}
	return profile, nil
}
