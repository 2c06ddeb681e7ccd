// SPDX-License-Identifier: MIT

// Package cache is the cache-aside store for template enumeration results.
// Listing templates requires walking every measure point on a server, so the
// result is kept per scope until an operator invalidates it. Entries carry no
// TTL: templates are treated as static for the process lifetime.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/1001011000101101/lers-plugins-sub000/internal/lers"
	"github.com/1001011000101101/lers-plugins-sub000/internal/metrics"
)

// Status records how an entry was produced.
type Status string

const (
	// StatusLoaded marks an entry with at least one template.
	StatusLoaded Status = "loaded"
	// StatusEmpty marks a legitimately empty scope; cached so the scope is
	// not re-walked on every call.
	StatusEmpty Status = "empty"
	// StatusError marks a failed enumeration; not served as a hit.
	StatusError Status = "error"
)

// Scope keys one cached template list.
type Scope struct {
	Server       string `json:"server"`
	PointType    string `json:"pointType"`
	SystemTypeID int    `json:"systemTypeId"`
}

// Key renders the composite cache key.
func (s Scope) Key() string {
	return fmt.Sprintf("%s|%s|%d", s.Server, s.PointType, s.SystemTypeID)
}

// Entry is one cached enumeration result.
type Entry struct {
	Templates []lers.ReportTemplate `json:"templates"`
	Status    Status                `json:"status"`
	LoadedAt  time.Time             `json:"loadedAt"`
}

// Store is the template cache contract shared by the memory and Redis
// backends. Concurrent loaders may race on Set; last writer wins, which is
// acceptable because entries are idempotent per scope.
type Store interface {
	Get(ctx context.Context, scope Scope) (Entry, bool)
	Set(ctx context.Context, scope Scope, entry Entry)
	Invalidate(ctx context.Context, scope Scope)
	InvalidateAll(ctx context.Context)
}

// memoryStore is the default in-process backend.
type memoryStore struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewMemoryStore creates an in-memory template cache.
func NewMemoryStore() Store {
	return &memoryStore{entries: make(map[string]Entry)}
}

func (s *memoryStore) Get(_ context.Context, scope Scope) (Entry, bool) {
	s.mu.RLock()
	e, ok := s.entries[scope.Key()]
	s.mu.RUnlock()

	if !ok || e.Status == StatusError {
		metrics.TemplateCache.WithLabelValues("miss").Inc()
		return Entry{}, false
	}
	metrics.TemplateCache.WithLabelValues("hit").Inc()
	return e, true
}

func (s *memoryStore) Set(_ context.Context, scope Scope, entry Entry) {
	s.mu.Lock()
	s.entries[scope.Key()] = entry
	s.mu.Unlock()
}

func (s *memoryStore) Invalidate(_ context.Context, scope Scope) {
	s.mu.Lock()
	delete(s.entries, scope.Key())
	s.mu.Unlock()
}

func (s *memoryStore) InvalidateAll(_ context.Context) {
	s.mu.Lock()
	s.entries = make(map[string]Entry)
	s.mu.Unlock()
}
