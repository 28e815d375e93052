package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

type httpObserver interface {
	ObserveHTTP(method, route string, status int, d time.Duration)
}

// AccessLog logs one line per request and feeds the HTTP metrics, labelled
// by the chi route pattern rather than the raw path.
func AccessLog(logger logrus.FieldLogger, obs httpObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			elapsed := time.Since(start)

			if obs != nil {
				obs.ObserveHTTP(r.Method, route, status, elapsed)
			}

			entry := logger.WithFields(logrus.Fields{
				"request_id": RequestIDFrom(r.Context()),
				"method":     r.Method,
				"route":      route,
				"status":     status,
				"bytes":      ww.BytesWritten(),
				"duration":   elapsed.String(),
			})
			if status >= 500 {
				entry.Warn("request")
				return
			}
			entry.Debug("request")
		})
	}
}
