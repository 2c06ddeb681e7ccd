// SPDX-License-Identifier: MIT

package config

import (
	"testing"
	"time"
)

func TestLoadRequiresVendorURL(t *testing.T) {
	t.Setenv("LERSPROXY_LERS_URL", "")
	if _, err := Load(); err == nil {
		t.Error("Load succeeded without LERSPROXY_LERS_URL, want error")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LERSPROXY_LERS_URL", "https://lers.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":8084" {
		t.Errorf("Listen = %q, want :8084", cfg.Listen)
	}
	if cfg.SessionTimeout != 30*time.Minute {
		t.Errorf("SessionTimeout = %s, want 30m", cfg.SessionTimeout)
	}
	if cfg.GenerateTimeout != 3*time.Minute {
		t.Errorf("GenerateTimeout = %s, want 3m", cfg.GenerateTimeout)
	}
	if cfg.LoginRateLimit != 5 || cfg.LoginRateWindow != time.Minute {
		t.Errorf("login limits = %d/%s, want 5/1m", cfg.LoginRateLimit, cfg.LoginRateWindow)
	}
	if cfg.CacheBackend != "memory" {
		t.Errorf("CacheBackend = %q, want memory", cfg.CacheBackend)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LERSPROXY_LERS_URL", "https://lers.example")
	t.Setenv("LERSPROXY_LISTEN", ":9000")
	t.Setenv("LERSPROXY_SESSION_TIMEOUT", "10m")
	t.Setenv("LERSPROXY_CACHE_BACKEND", "redis")
	t.Setenv("LERSPROXY_REDIS_ADDR", "cache.internal:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":9000" {
		t.Errorf("Listen = %q, want :9000", cfg.Listen)
	}
	if cfg.SessionTimeout != 10*time.Minute {
		t.Errorf("SessionTimeout = %s, want 10m", cfg.SessionTimeout)
	}
	if cfg.CacheBackend != "redis" || cfg.RedisAddr != "cache.internal:6379" {
		t.Errorf("cache config = %q/%q", cfg.CacheBackend, cfg.RedisAddr)
	}
}

func TestValidate(t *testing.T) {
	base := AppConfig{
		LERSBaseURL:     "https://lers.example",
		SessionTimeout:  30 * time.Minute,
		GenerateTimeout: 3 * time.Minute,
		LoginRateLimit:  5,
		CacheBackend:    "memory",
	}

	tests := []struct {
		name   string
		mutate func(*AppConfig)
		wantOK bool
	}{
		{name: "valid", mutate: func(*AppConfig) {}, wantOK: true},
		{name: "bad scheme", mutate: func(c *AppConfig) { c.LERSBaseURL = "ftp://lers.example" }},
		{name: "missing host", mutate: func(c *AppConfig) { c.LERSBaseURL = "https://" }},
		{name: "zero session timeout", mutate: func(c *AppConfig) { c.SessionTimeout = 0 }},
		{name: "zero generate timeout", mutate: func(c *AppConfig) { c.GenerateTimeout = 0 }},
		{name: "zero login limit", mutate: func(c *AppConfig) { c.LoginRateLimit = 0 }},
		{name: "unknown cache backend", mutate: func(c *AppConfig) { c.CacheBackend = "memcached" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantOK && err != nil {
				t.Errorf("Validate: %v, want nil", err)
			}
			if !tc.wantOK && err == nil {
				t.Error("Validate succeeded, want error")
			}
		})
	}
}
