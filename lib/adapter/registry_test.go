// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/parleyhq/parley/lib/event"
)

// nullAdapter is the minimal Adapter used by registry tests.
type nullAdapter struct{ id string }

func (a *nullAdapter) Info() Info                                          { return Info{ID: a.id, Name: a.id} }
func (a *nullAdapter) IsAvailable(ctx context.Context) (bool, error)       { return true, nil }
func (a *nullAdapter) Start(ctx context.Context, options StartOptions) error { return nil }
func (a *nullAdapter) Send(ctx context.Context, message Message) error     { return nil }
func (a *nullAdapter) Stop(ctx context.Context) error                      { return nil }
func (a *nullAdapter) Pause(ctx context.Context) error                     { return ErrNotSupported }
func (a *nullAdapter) Resume(ctx context.Context) error                    { return ErrNotSupported }
func (a *nullAdapter) Status() Status                                      { return StatusIdle }
func (a *nullAdapter) Events() <-chan event.Event                          { return nil }

func registration(id string) Registration {
	return Registration{ID: id, Name: id, New: func() Adapter { return &nullAdapter{id: id} }}
}

func TestRegistryRegisterResolve(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(registration("claude-code")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	resolved, err := registry.Resolve("claude-code")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	instance := resolved.New()
	if instance.Info().ID != "claude-code" {
		t.Errorf("factory produced adapter %q", instance.Info().ID)
	}

	// Each factory call produces a fresh instance.
	if resolved.New() == instance {
		t.Error("factory returned the same instance twice")
	}
}

func TestRegistryResolveUnknown(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Resolve("missing")
	if !errors.Is(err, ErrAdapterNotFound) {
		t.Errorf("Resolve(missing) = %v, want ErrAdapterNotFound", err)
	}
}

func TestRegistryRejectsDuplicatesAndEmpty(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register(registration("stub")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Register(registration("stub")); !errors.Is(err, ErrAdapterExists) {
		t.Errorf("duplicate Register = %v, want ErrAdapterExists", err)
	}
	if err := registry.Register(registration("")); !errors.Is(err, ErrEmptyAdapterID) {
		t.Errorf("empty-id Register = %v, want ErrEmptyAdapterID", err)
	}
	if err := registry.Register(Registration{ID: "nil-factory"}); err == nil {
		t.Error("Register accepted a nil factory")
	}
}

func TestRegistryListSortedAndClear(t *testing.T) {
	registry := NewRegistry()
	for _, id := range []string{"zeta", "alpha", "mid"} {
		if err := registry.Register(registration(id)); err != nil {
			t.Fatalf("Register(%s): %v", id, err)
		}
	}

	listed := registry.List()
	if len(listed) != 3 {
		t.Fatalf("List returned %d entries, want 3", len(listed))
	}
	for i, want := range []string{"alpha", "mid", "zeta"} {
		if listed[i].ID != want {
			t.Errorf("List[%d] = %q, want %q", i, listed[i].ID, want)
		}
	}

	registry.Clear()
	if remaining := registry.List(); len(remaining) != 0 {
		t.Errorf("List after Clear returned %d entries", len(remaining))
	}
	if _, err := registry.Resolve("alpha"); !errors.Is(err, ErrAdapterNotFound) {
		t.Errorf("Resolve after Clear = %v, want ErrAdapterNotFound", err)
	}
}
