// SPDX-License-Identifier: MIT

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/1001011000101101/lers-plugins-sub000/internal/cache"
	"github.com/1001011000101101/lers-plugins-sub000/internal/config"
	"github.com/1001011000101101/lers-plugins-sub000/internal/health"
	"github.com/1001011000101101/lers-plugins-sub000/internal/ratelimit"
	"github.com/1001011000101101/lers-plugins-sub000/internal/session"
	"github.com/1001011000101101/lers-plugins-sub000/internal/version"
)

func serverWithProxies(trusted string) *Server {
	cfg := config.AppConfig{
		LERSBaseURL:     "https://lers.example",
		SessionTimeout:  30 * time.Minute,
		GenerateTimeout: time.Minute,
		LoginRateLimit:  5,
		LoginRateWindow: time.Minute,
		TrustedProxies:  trusted,
	}
	return NewServer(cfg, session.NewManager(cfg.SessionTimeout, nil), cache.NewMemoryStore(),
		ratelimit.New(ratelimit.DefaultConfig()), health.NewManager(version.Version))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		trusted string
		remote  string
		xff     string
		realIP  string
		want    string
	}{
		{
			name:   "direct client",
			remote: "10.0.0.1:40000",
			want:   "10.0.0.1",
		},
		{
			name:   "spoofed header from untrusted peer ignored",
			remote: "10.0.0.1:40000",
			xff:    "1.2.3.4",
			want:   "10.0.0.1",
		},
		{
			name:    "forwarded-for honoured from trusted proxy",
			trusted: "172.16.0.0/12",
			remote:  "172.16.0.10:40000",
			xff:     "203.0.113.9, 172.16.0.10",
			want:    "203.0.113.9",
		},
		{
			name:    "real-ip fallback from trusted proxy",
			trusted: "172.16.0.0/12",
			remote:  "172.16.0.10:40000",
			realIP:  "203.0.113.9",
			want:    "203.0.113.9",
		},
		{
			name:    "trusted proxy without headers",
			trusted: "172.16.0.0/12",
			remote:  "172.16.0.10:40000",
			want:    "172.16.0.10",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := serverWithProxies(tc.trusted)
			req := httptest.NewRequest(http.MethodGet, "/lersproxy/version", nil)
			req.RemoteAddr = tc.remote
			if tc.xff != "" {
				req.Header.Set("X-Forwarded-For", tc.xff)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			if got := s.clientIP(req); got != tc.want {
				t.Errorf("clientIP = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestParseCIDRs(t *testing.T) {
	nets := parseCIDRs("10.0.0.0/8, 192.168.1.5, garbage, 2001:db8::1")
	if len(nets) != 3 {
		t.Fatalf("parsed %d networks, want 3 (garbage skipped)", len(nets))
	}
	// Bare addresses become host routes.
	if ones, bits := nets[1].Mask.Size(); ones != 32 || bits != 32 {
		t.Errorf("IPv4 host mask = %d/%d, want 32/32", ones, bits)
	}
	if ones, bits := nets[2].Mask.Size(); ones != 128 || bits != 128 {
		t.Errorf("IPv6 host mask = %d/%d, want 128/128", ones, bits)
	}
}
