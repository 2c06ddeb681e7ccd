// SPDX-License-Identifier: MIT

// Package ratelimit protects the vendor server from credential stuffing via
// the gateway login endpoint.
package ratelimit

import (
	"sync"
	"time"

	"github.com/1001011000101101/lers-plugins-sub000/internal/metrics"
)

// Config holds login limiter configuration.
type Config struct {
	// Limit is the maximum number of attempts per client address per window.
	Limit int
	// Window is the rolling window size.
	Window time.Duration
}

// DefaultConfig returns the documented login protection defaults.
func DefaultConfig() Config {
	return Config{Limit: 5, Window: time.Minute}
}

type window struct {
	start time.Time
	count int
}

// LoginLimiter counts login attempts per client address. Windows reset
// lazily on the next attempt; there is no background sweep. A successful
// login clears the client's counter.
type LoginLimiter struct {
	cfg Config

	mu      sync.Mutex
	clients map[string]*window

	now func() time.Time // stubbed in tests
}

// New creates a login limiter with the given config.
func New(cfg Config) *LoginLimiter {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultConfig().Limit
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	return &LoginLimiter{
		cfg:     cfg,
		clients: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow records one attempt for addr and reports whether it is within the
// limit. The attempt is counted before credentials are checked.
func (l *LoginLimiter) Allow(addr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.clients[addr]
	if !ok || now.Sub(w.start) >= l.cfg.Window {
		l.clients[addr] = &window{start: now, count: 1}
		return true
	}
	w.count++
	if w.count > l.cfg.Limit {
		metrics.LoginAttempts.WithLabelValues("rate_limited").Inc()
		return false
	}
	return true
}

// Success clears the counter for addr after a successful login.
func (l *LoginLimiter) Success(addr string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.clients, addr)
}
