// SPDX-License-Identifier: MIT

// Package session owns the table of authenticated vendor handles. One opaque
// token maps to one exclusively-owned connection; idle sessions are reaped
// lazily on access.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/1001011000101101/lers-plugins-sub000/internal/lers"
	"github.com/1001011000101101/lers-plugins-sub000/internal/log"
	"github.com/1001011000101101/lers-plugins-sub000/internal/metrics"
)

// Session is one authenticated handle. The connection belongs to the manager;
// callers must not close it themselves.
type Session struct {
	Token      string
	Login      string
	Conn       lers.API
	CreatedAt  time.Time
	lastAccess time.Time
}

// Connector establishes a vendor connection for the given credentials.
type Connector func(ctx context.Context, login, password string) (lers.API, error)

// Manager maps tokens to live sessions. Safe for concurrent use by request
// handlers; all mutation goes through one lock around the shared table.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	timeout  time.Duration
	connect  Connector
	now      func() time.Time // stubbed in tests
}

// NewManager builds a manager with the given idle timeout.
func NewManager(timeout time.Duration, connect Connector) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		timeout:  timeout,
		connect:  connect,
		now:      time.Now,
	}
}

// Login authenticates against the vendor server and registers a new session
// under a freshly generated unguessable token.
func (m *Manager) Login(ctx context.Context, login, password string) (string, error) {
	conn, err := m.connect(ctx, login, password)
	if err != nil {
		return "", err
	}

	token := uuid.NewString()
	now := m.now()
	sess := &Session{
		Token:      token,
		Login:      login,
		Conn:       conn,
		CreatedAt:  now,
		lastAccess: now,
	}

	m.mu.Lock()
	m.sessions[token] = sess
	m.mu.Unlock()

	metrics.ActiveSessions.Inc()
	logger := log.WithComponentFromContext(ctx, "session")
	logger.Info().
		Str("event", "session.created").
		Str("login", login).
		Msg("session created")
	return token, nil
}

// Get returns the session for a token, refreshing its idle clock. A session
// idle for longer than the timeout is closed and reported as not found.
func (m *Manager) Get(ctx context.Context, token string) (*Session, bool) {
	m.mu.Lock()
	sess, ok := m.sessions[token]
	if !ok {
		m.mu.Unlock()
		return nil, false
	}
	now := m.now()
	if now.Sub(sess.lastAccess) > m.timeout {
		delete(m.sessions, token)
		m.mu.Unlock()

		m.release(ctx, sess)
		metrics.SessionsExpired.Inc()
		logger := log.WithComponentFromContext(ctx, "session")
		logger.Info().
			Str("event", "session.expired").
			Str("login", sess.Login).
			Msg("idle session closed")
		return nil, false
	}
	sess.lastAccess = now
	m.mu.Unlock()
	return sess, true
}

// Close releases the vendor handle and removes the session. Idempotent;
// closing an unknown token is a no-op.
func (m *Manager) Close(ctx context.Context, token string) {
	m.mu.Lock()
	sess, ok := m.sessions[token]
	if ok {
		delete(m.sessions, token)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	m.release(ctx, sess)
	logger := log.WithComponentFromContext(ctx, "session")
	logger.Info().
		Str("event", "session.closed").
		Str("login", sess.Login).
		Msg("session closed")
}

// CloseAll releases every session; used during shutdown.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.Lock()
	remaining := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		remaining = append(remaining, sess)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, sess := range remaining {
		m.release(ctx, sess)
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) release(ctx context.Context, sess *Session) {
	if err := sess.Conn.Close(ctx); err != nil {
		logger := log.WithComponentFromContext(ctx, "session")
		logger.Warn().
			Err(err).
			Str("event", "session.release_failed").
			Str("login", sess.Login).
			Msg("failed to release vendor handle")
	}
	metrics.ActiveSessions.Dec()
}
