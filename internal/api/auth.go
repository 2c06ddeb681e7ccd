// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/1001011000101101/lers-plugins-sub000/internal/log"
	"github.com/1001011000101101/lers-plugins-sub000/internal/session"
)

// ctxSessionKey stores the authenticated session in the request context.
type ctxSessionKey struct{}

// extractToken retrieves the bearer token from the Authorization header.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

// authMiddleware resolves the bearer token to a live session and stores it
// in the request context. Absent, invalid and expired tokens all yield 401.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := log.WithComponentFromContext(r.Context(), "auth")

		token := extractToken(r)
		if token == "" {
			logger.Warn().Str("event", "auth.missing_header").Msg("authorization header missing")
			writeUnauthorized(w)
			return
		}

		sess, ok := s.sessions.Get(r.Context(), token)
		if !ok {
			logger.Warn().Str("event", "auth.invalid_token").Msg("unknown or expired session token")
			writeUnauthorized(w)
			return
		}

		ctx := context.WithValue(r.Context(), ctxSessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFromContext returns the session placed by authMiddleware.
func sessionFromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(ctxSessionKey{}).(*session.Session)
	return sess
}
