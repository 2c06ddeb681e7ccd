// SPDX-License-Identifier: MIT

package log

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// statusRecorder captures the response status code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware injects a request-scoped logger (carrying a request id) into the
// request context and emits one structured entry per completed request.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Header.Get("X-Request-Id")
			if rid == "" {
				rid = uuid.NewString()
			}

			ctx := ContextWithRequestID(r.Context(), rid)
			reqLogger := Base().With().Str("request_id", rid).Logger()
			ctx = reqLogger.WithContext(ctx)

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			w.Header().Set("X-Request-Id", rid)

			start := time.Now()
			next.ServeHTTP(rec, r.WithContext(ctx))

			reqLogger.Info().
				Str("event", "http.request").
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		})
	}
}
