// SPDX-License-Identifier: MIT

// Package metrics declares the gateway's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts counts login outcomes ("success", "failure", "rate_limited").
	LoginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lersproxy",
			Name:      "login_attempts_total",
			Help:      "Total login attempts by outcome",
		},
		[]string{"outcome"},
	)

	// ActiveSessions tracks live vendor sessions held by the gateway.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lersproxy",
			Name:      "active_sessions",
			Help:      "Number of live vendor sessions",
		},
	)

	// SessionsExpired counts sessions reaped by the idle timeout.
	SessionsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lersproxy",
			Name:      "sessions_expired_total",
			Help:      "Sessions closed due to idle timeout",
		},
	)

	// TemplateCache counts template cache lookups ("hit", "miss").
	TemplateCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lersproxy",
			Name:      "template_cache_total",
			Help:      "Template cache lookups by result",
		},
		[]string{"result"},
	)

	// Generations counts report generation outcomes ("success", "failure", "timeout").
	Generations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lersproxy",
			Name:      "generations_total",
			Help:      "Report generation calls by outcome",
		},
		[]string{"outcome"},
	)

	// GenerationDuration observes wall time of report generation calls.
	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lersproxy",
			Name:      "generation_duration_seconds",
			Help:      "Report generation latency",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
		},
	)
)
