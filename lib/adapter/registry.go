// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"fmt"
	"sort"
	"sync"
)

// Registration binds an adapter id to a factory. The factory is called
// once per session; each session owns its own adapter instance.
type Registration struct {
	// ID is the identifier sessions name at creation (e.g.,
	// "claude-code").
	ID string

	// Name is the human-readable backend name shown in listings.
	Name string

	// New constructs a fresh adapter instance.
	New func() Adapter
}

// Registry maps adapter ids to factories. It is constructed explicitly
// and passed to the session manager — there is no package-level
// registry, so tests compose isolated registries and clear them
// between runs without affecting each other. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]Registration)}
}

// Register adds a registration. The id must be non-empty and unused.
func (r *Registry) Register(registration Registration) error {
	if registration.ID == "" {
		return ErrEmptyAdapterID
	}
	if registration.New == nil {
		return fmt.Errorf("registering adapter %q: nil factory", registration.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[registration.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAdapterExists, registration.ID)
	}
	r.entries[registration.ID] = registration
	return nil
}

// Resolve returns the registration for id.
func (r *Registry) Resolve(id string) (Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registration, exists := r.entries[id]
	if !exists {
		return Registration{}, fmt.Errorf("%w: %s", ErrAdapterNotFound, id)
	}
	return registration, nil
}

// List returns all registrations sorted by id.
func (r *Registry) List() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registrations := make([]Registration, 0, len(r.entries))
	for _, registration := range r.entries {
		registrations = append(registrations, registration)
	}
	sort.Slice(registrations, func(i, j int) bool {
		return registrations[i].ID < registrations[j].ID
	})
	return registrations
}

// Clear removes all registrations. Tests call this between runs when
// sharing a registry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.entries)
}
