// SPDX-License-Identifier: MIT

package api

import (
	"net"
	"net/http"
	"strings"
)

// remoteIsTrusted checks whether the direct peer is a trusted proxy.
func (s *Server) remoteIsTrusted(remote string) bool {
	if len(s.trustedNets) == 0 {
		return false
	}
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, n := range s.trustedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// clientIP determines the originating client address. Forwarding headers are
// honoured only when the direct peer is a trusted proxy.
func (s *Server) clientIP(r *http.Request) string {
	if s.remoteIsTrusted(r.RemoteAddr) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			if ip := strings.TrimSpace(parts[0]); ip != "" {
				return ip
			}
		}
		if xr := r.Header.Get("X-Real-IP"); xr != "" {
			return xr
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// allowlistMiddleware rejects clients outside the configured address
// allowlist with 403. An empty allowlist admits everyone.
func (s *Server) allowlistMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.allowlist) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		ip := net.ParseIP(s.clientIP(r))
		if ip != nil {
			for _, n := range s.allowlist {
				if n.Contains(ip) {
					next.ServeHTTP(w, r)
					return
				}
			}
		}
		writeForbidden(w)
	})
}
