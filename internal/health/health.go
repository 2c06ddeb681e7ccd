// SPDX-License-Identifier: MIT

// Package health provides liveness and readiness checks for the gateway.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/1001011000101101/lers-plugins-sub000/internal/log"
)

// Status represents the overall health/readiness status.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// CheckResult represents the result of a component health check.
type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// HealthResponse represents the full health check response.
type HealthResponse struct {
	Status    Status                 `json:"status"`
	Version   string                 `json:"version,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// ReadinessResponse represents the readiness check response.
type ReadinessResponse struct {
	Ready     bool                   `json:"ready"`
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// Checker defines the interface for health checks.
type Checker interface {
	Name() string
	Check(ctx context.Context) CheckResult
}

// CheckerFunc adapts a named function to the Checker interface.
type CheckerFunc struct {
	CheckName string
	Fn        func(ctx context.Context) CheckResult
}

func (c CheckerFunc) Name() string                          { return c.CheckName }
func (c CheckerFunc) Check(ctx context.Context) CheckResult { return c.Fn(ctx) }

// Manager manages health and readiness checks.
type Manager struct {
	version  string
	checkers []Checker
}

// NewManager creates a new health check manager.
func NewManager(version string) *Manager {
	return &Manager{version: version}
}

// RegisterChecker adds a health checker to the manager.
func (m *Manager) RegisterChecker(checker Checker) {
	m.checkers = append(m.checkers, checker)
}

// Health performs the liveness check. It reports healthy as long as the
// process is alive; component results are informational.
func (m *Manager) Health(ctx context.Context) HealthResponse {
	resp := HealthResponse{
		Status:    StatusHealthy,
		Version:   m.version,
		Timestamp: time.Now(),
	}
	if len(m.checkers) == 0 {
		return resp
	}
	resp.Checks = make(map[string]CheckResult, len(m.checkers))
	for _, checker := range m.checkers {
		resp.Checks[checker.Name()] = checker.Check(ctx)
	}
	return resp
}

// Ready performs the readiness check: unhealthy components make the gateway
// not ready, degraded components keep it serving.
func (m *Manager) Ready(ctx context.Context) ReadinessResponse {
	resp := ReadinessResponse{
		Ready:     true,
		Status:    StatusHealthy,
		Timestamp: time.Now(),
	}
	if len(m.checkers) == 0 {
		return resp
	}
	resp.Checks = make(map[string]CheckResult, len(m.checkers))
	for _, checker := range m.checkers {
		result := checker.Check(ctx)
		resp.Checks[checker.Name()] = result
		switch result.Status {
		case StatusUnhealthy:
			resp.Ready = false
			resp.Status = StatusUnhealthy
		case StatusDegraded:
			if resp.Status == StatusHealthy {
				resp.Status = StatusDegraded
			}
		}
	}
	return resp
}

// ServeHealth writes the liveness response.
func (m *Manager) ServeHealth(w http.ResponseWriter, r *http.Request) {
	writeProbe(w, r, http.StatusOK, m.Health(r.Context()))
}

// ServeReady writes the readiness response with 503 when not ready.
func (m *Manager) ServeReady(w http.ResponseWriter, r *http.Request) {
	resp := m.Ready(r.Context())
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeProbe(w, r, status, resp)
}

func writeProbe(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger := log.WithComponentFromContext(r.Context(), "health")
		logger.Error().
			Err(err).
			Msg("failed to encode probe response")
	}
}
