// SPDX-License-Identifier: MIT

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"github.com/1001011000101101/lers-plugins-sub000/internal/lers"
)

// storeUnderTest runs the shared contract against every backend.
func storeUnderTest(t *testing.T, name string) Store {
	t.Helper()
	switch name {
	case "memory":
		return NewMemoryStore()
	case "redis":
		mr := miniredis.RunT(t)
		store, err := NewRedisStore(RedisConfig{Addr: mr.Addr()}, zerolog.Nop())
		if err != nil {
			t.Fatalf("NewRedisStore: %v", err)
		}
		return store
	default:
		t.Fatalf("unknown backend %q", name)
		return nil
	}
}

func backends() []string { return []string{"memory", "redis"} }

func sampleEntry(status Status) Entry {
	return Entry{
		Templates: []lers.ReportTemplate{
			{ReportID: 101, TemplateTitle: "Monthly consumption"},
			{ReportID: 102, TemplateTitle: "Daily archive", InstanceTitle: "Daily (site A)"},
		},
		Status:   status,
		LoadedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend, func(t *testing.T) {
			store := storeUnderTest(t, backend)
			ctx := context.Background()
			scope := Scope{Server: "https://lers.example", PointType: lers.PointTypeRegular, SystemTypeID: 2}

			if _, ok := store.Get(ctx, scope); ok {
				t.Fatal("Get on empty store returned a hit")
			}

			store.Set(ctx, scope, sampleEntry(StatusLoaded))
			entry, ok := store.Get(ctx, scope)
			if !ok {
				t.Fatal("Get after Set returned a miss")
			}
			if len(entry.Templates) != 2 {
				t.Errorf("got %d templates, want 2", len(entry.Templates))
			}
			if entry.Status != StatusLoaded {
				t.Errorf("status = %q, want %q", entry.Status, StatusLoaded)
			}
		})
	}
}

func TestStoreScopesAreIndependent(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend, func(t *testing.T) {
			store := storeUnderTest(t, backend)
			ctx := context.Background()
			regular := Scope{Server: "https://lers.example", PointType: lers.PointTypeRegular}
			communal := Scope{Server: "https://lers.example", PointType: lers.PointTypeCommunal}

			store.Set(ctx, regular, sampleEntry(StatusLoaded))
			if _, ok := store.Get(ctx, communal); ok {
				t.Error("communal scope served from regular scope's entry")
			}
		})
	}
}

func TestStoreErrorEntryIsNotAHit(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend, func(t *testing.T) {
			store := storeUnderTest(t, backend)
			ctx := context.Background()
			scope := Scope{Server: "https://lers.example", PointType: lers.PointTypeRegular}

			store.Set(ctx, scope, Entry{Status: StatusError, LoadedAt: time.Now()})
			if _, ok := store.Get(ctx, scope); ok {
				t.Error("error entry served as a hit; the next caller must retry")
			}
		})
	}
}

func TestStoreEmptyEntryIsAHit(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend, func(t *testing.T) {
			store := storeUnderTest(t, backend)
			ctx := context.Background()
			scope := Scope{Server: "https://lers.example", PointType: lers.PointTypeCommunal}

			store.Set(ctx, scope, Entry{Status: StatusEmpty, LoadedAt: time.Now()})
			entry, ok := store.Get(ctx, scope)
			if !ok {
				t.Fatal("empty entry not served as a hit; scope would be re-walked every call")
			}
			if len(entry.Templates) != 0 {
				t.Errorf("empty entry carries %d templates", len(entry.Templates))
			}
		})
	}
}

func TestStoreInvalidate(t *testing.T) {
	for _, backend := range backends() {
		t.Run(backend, func(t *testing.T) {
			store := storeUnderTest(t, backend)
			ctx := context.Background()
			scope := Scope{Server: "https://lers.example", PointType: lers.PointTypeRegular}
			other := Scope{Server: "https://lers.example", PointType: lers.PointTypeCommunal}

			store.Set(ctx, scope, sampleEntry(StatusLoaded))
			store.Set(ctx, other, sampleEntry(StatusLoaded))

			store.Invalidate(ctx, scope)
			if _, ok := store.Get(ctx, scope); ok {
				t.Error("invalidated scope still served")
			}
			if _, ok := store.Get(ctx, other); !ok {
				t.Error("unrelated scope invalidated")
			}

			store.InvalidateAll(ctx)
			if _, ok := store.Get(ctx, other); ok {
				t.Error("entry survived InvalidateAll")
			}
		})
	}
}

func TestScopeKey(t *testing.T) {
	scope := Scope{Server: "https://lers.example", PointType: "regular", SystemTypeID: 3}
	if got, want := scope.Key(), "https://lers.example|regular|3"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}
