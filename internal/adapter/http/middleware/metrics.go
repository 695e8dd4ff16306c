package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// HTTPMetrics receives request measurements.
type HTTPMetrics interface {
	RequestStarted()
	RequestFinished()
	ObserveHTTP(method, path string, status int, duration time.Duration)
}

// Metrics returns middleware that records HTTP metrics.
func Metrics(m HTTPMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.RequestStarted()
			defer m.RequestFinished()

			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			m.ObserveHTTP(r.Method, routePattern(r), responseStatus(ww), time.Since(start))
		})
	}
}

// routePattern returns the matched chi pattern so IDs do not become label
// values. Unrouted requests fall back to normalizePath.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}

	return normalizePath(r.URL.Path)
}

// normalizePath replaces the ID segment of account and operation paths.
// /api/v1/accounts/01ABC123/entries -> /api/v1/accounts/{id}/entries
func normalizePath(path string) string {
	for _, prefix := range []string{"/api/v1/accounts/", "/api/v1/operations/"} {
		rest, ok := strings.CutPrefix(path, prefix)
		if !ok || rest == "" {
			continue
		}

		suffix := ""
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			suffix = rest[i:]
		}

		return prefix + "{id}" + suffix
	}

	return path
}
