// SPDX-License-Identifier: MIT

// Package config loads gateway configuration from the environment and the
// server-targets file. Precedence is ENV > defaults.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// AppConfig holds the full gateway daemon configuration.
type AppConfig struct {
	Listen   string // HTTP listen address
	MaxConns int    // max concurrent accepted connections (0 = unlimited)

	// Vendor server the gateway fronts.
	LERSBaseURL  string
	LERSTimeout  time.Duration
	LERSInsecure bool // skip TLS verification toward the vendor server

	// Session lifecycle.
	SessionTimeout time.Duration

	// Report generation ceiling, distinct from transport timeouts.
	GenerateTimeout time.Duration

	// Login brute-force protection.
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// Global API limiter (all authenticated routes, per client IP).
	APIRateLimit  int
	APIRateWindow time.Duration

	// Comma-separated CIDRs allowed to call the gateway. Empty allows all.
	ClientAllowlist string

	// Comma-separated CIDRs of proxies whose X-Forwarded-For is trusted.
	TrustedProxies string

	// Template cache backend: "memory" (default) or "redis".
	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LogLevel string
}

// Load reads the configuration from the environment with defaults matching
// the gateway's documented behaviour.
func Load() (AppConfig, error) {
	cfg := AppConfig{
		Listen:   ParseString("LERSPROXY_LISTEN", ":8084"),
		MaxConns: ParseInt("LERSPROXY_MAX_CONNS", 256),

		LERSBaseURL:  ParseString("LERSPROXY_LERS_URL", ""),
		LERSTimeout:  ParseDuration("LERSPROXY_LERS_TIMEOUT", 30*time.Second),
		LERSInsecure: ParseBool("LERSPROXY_LERS_INSECURE", false),

		SessionTimeout:  ParseDuration("LERSPROXY_SESSION_TIMEOUT", 30*time.Minute),
		GenerateTimeout: ParseDuration("LERSPROXY_GENERATE_TIMEOUT", 3*time.Minute),

		LoginRateLimit:  ParseInt("LERSPROXY_LOGIN_RATE_LIMIT", 5),
		LoginRateWindow: ParseDuration("LERSPROXY_LOGIN_RATE_WINDOW", time.Minute),

		APIRateLimit:  ParseInt("LERSPROXY_API_RATE_LIMIT", 600),
		APIRateWindow: ParseDuration("LERSPROXY_API_RATE_WINDOW", time.Minute),

		ClientAllowlist: ParseString("LERSPROXY_CLIENT_ALLOWLIST", ""),
		TrustedProxies:  ParseString("LERSPROXY_TRUSTED_PROXIES", ""),

		CacheBackend:  ParseString("LERSPROXY_CACHE_BACKEND", "memory"),
		RedisAddr:     ParseString("LERSPROXY_REDIS_ADDR", "localhost:6379"),
		RedisPassword: ParseString("LERSPROXY_REDIS_PASSWORD", ""),
		RedisDB:       ParseInt("LERSPROXY_REDIS_DB", 0),

		LogLevel: ParseString("LERSPROXY_LOG_LEVEL", "info"),
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate checks the loaded configuration for inconsistencies.
func (c AppConfig) Validate() error {
	if c.LERSBaseURL == "" {
		return fmt.Errorf("LERSPROXY_LERS_URL is required")
	}
	u, err := url.Parse(c.LERSBaseURL)
	if err != nil {
		return fmt.Errorf("invalid LERS base URL %q: %w", c.LERSBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported LERS base URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("LERS base URL %q is missing host", c.LERSBaseURL)
	}
	if c.SessionTimeout <= 0 {
		return fmt.Errorf("session timeout must be positive")
	}
	if c.GenerateTimeout <= 0 {
		return fmt.Errorf("generate timeout must be positive")
	}
	if c.LoginRateLimit <= 0 {
		return fmt.Errorf("login rate limit must be positive")
	}
	switch strings.ToLower(c.CacheBackend) {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown cache backend %q", c.CacheBackend)
	}
	return nil
}
