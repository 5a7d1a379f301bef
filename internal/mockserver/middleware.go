package mockserver

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/al-bashkir/wwsvc-go/internal/logsanitize"
)

// loggingMiddleware logs HTTP requests. Paths are logged without the
// WWSERVICE segments, which carry secrets.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		s.logger.Debug("http request",
			"method", logsanitize.Sanitize(r.Method),
			"endpoint", endpointOf(r.URL.Path),
			"request_id", logsanitize.Sanitize(r.Header.Get("WWSVC-REQID")),
			"cursor", logsanitize.Sanitize(r.Header.Get("WWSVC-CURSOR")),
		)

		next.ServeHTTP(w, r)

		s.logger.Debug("http request completed",
			"endpoint", endpointOf(r.URL.Path),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// recoveryMiddleware recovers from panics
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered",
					"error", err,
					"stack", string(debug.Stack()),
				)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}
