// SPDX-License-Identifier: MIT

// Package api provides the HTTP gateway in front of the vendor metering
// server. The endpoint set is fixed and narrow; clients drive report
// generation through it without depending on vendor internals.
package api

import (
	"net"
	"strings"
	"time"

	"github.com/1001011000101101/lers-plugins-sub000/internal/cache"
	"github.com/1001011000101101/lers-plugins-sub000/internal/config"
	"github.com/1001011000101101/lers-plugins-sub000/internal/health"
	"github.com/1001011000101101/lers-plugins-sub000/internal/ratelimit"
	"github.com/1001011000101101/lers-plugins-sub000/internal/session"
)

// Server carries the gateway's dependencies. Everything is injected at
// construction; there is no ambient global state.
type Server struct {
	cfg       config.AppConfig
	sessions  *session.Manager
	templates cache.Store
	limiter   *ratelimit.LoginLimiter
	health    *health.Manager

	generateTimeout time.Duration

	allowlist   []*net.IPNet
	trustedNets []*net.IPNet
}

// NewServer wires the gateway from its collaborators.
func NewServer(cfg config.AppConfig, sessions *session.Manager, templates cache.Store, limiter *ratelimit.LoginLimiter, healthMgr *health.Manager) *Server {
	return &Server{
		cfg:             cfg,
		sessions:        sessions,
		templates:       templates,
		limiter:         limiter,
		health:          healthMgr,
		generateTimeout: cfg.GenerateTimeout,
		allowlist:       parseCIDRs(cfg.ClientAllowlist),
		trustedNets:     parseCIDRs(cfg.TrustedProxies),
	}
}

// parseCIDRs parses a comma-separated CIDR list; bare addresses are accepted
// as /32 (or /128) networks. Invalid entries are skipped.
func parseCIDRs(csv string) []*net.IPNet {
	var nets []*net.IPNet
	for _, part := range strings.Split(csv, ",") {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		if _, ipnet, err := net.ParseCIDR(p); err == nil {
			nets = append(nets, ipnet)
			continue
		}
		if ip := net.ParseIP(p); ip != nil {
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			nets = append(nets, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
		}
	}
	return nets
}
