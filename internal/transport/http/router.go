// Package httptransport assembles the public HTTP surface: middleware order,
// route groups and operational endpoints.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	credithandler "vatgate/internal/credit/handler"
	"vatgate/internal/platform/metrics"
	"vatgate/pkg/platform/httputil"
	"vatgate/pkg/platform/middleware/admin"
	"vatgate/pkg/platform/middleware/auth"
	"vatgate/pkg/platform/middleware/request"
	"vatgate/pkg/platform/middleware/requesttime"
)

// HealthCheck reports whether a dependency can serve traffic.
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators NewRouter mounts.
type Deps struct {
	Credit     *credithandler.Handler
	Validator  auth.JWTValidator
	AdminToken string
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	// Checks run on /readyz, keyed by dependency name.
	Checks map[string]HealthCheck
}

// NewRouter wires all public endpoints.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recover(logger))
	r.Use(request.AccessLog(logger))
	r.Use(requesttime.Middleware)
	if d.Metrics != nil {
		r.Use(routeMetrics(d.Metrics))
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(d.Checks, logger))

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.Validator, logger))
		d.Credit.Register(r)
	})
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(d.AdminToken, logger))
		d.Credit.RegisterAdmin(r)
	})
	return r
}

func readiness(checks map[string]HealthCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		report := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "readiness check failed", "dependency", name, "error", err)
				report[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			report[name] = "ok"
		}
		httputil.WriteJSON(w, status, report)
	}
}

// routeMetrics labels requests with the chi route pattern so path
// parameters do not explode cardinality.
func routeMetrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.ObserveRequest(route, rec.status, start)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusWriter) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *statusWriter) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
