/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. instrument: Structured request log + Prometheus request metrics
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/periods          Period resolution
  /api/persons/*        Person management, aggregates, compensation
  /api/evaluations/*    Evaluation records
  /api/cohorts/*        Cohort ranking
  /api/config           Compensation tables
  /api/payroll/*        Payroll runs
  /api/admin/*          Admin operations
  /api/scenarios/*      Demo scenarios
  /metrics              Prometheus exposition
  /healthz              Liveness

METRIC LABELS:
  Requests are labelled by chi route pattern ("/api/persons/{id}"), never
  by raw path, so person ids do not explode label cardinality.

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/evaluation-engine/logger"
	"github.com/warp/evaluation-engine/metrics"
)

// RouterConfig carries the cross-cutting pieces of the router.
type RouterConfig struct {
	AllowedOrigins []string
	Metrics        *metrics.Manager // nil disables /metrics
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(instrument(h.Log, cfg.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/periods", h.GetPeriod)

		// Person routes
		r.Route("/persons", func(r chi.Router) {
			r.Get("/", h.ListPersons)
			r.Post("/", h.CreatePerson)
			r.Get("/{id}", h.GetPerson)
			r.Delete("/{id}", h.DeletePerson)
			r.Get("/{id}/aggregate", h.GetAggregate)
			r.Get("/{id}/compensation", h.GetCompensation)
		})

		// Evaluation routes
		r.Route("/evaluations", func(r chi.Router) {
			r.Get("/", h.ListEvaluations)
			r.Post("/", h.CreateEvaluations)
			r.Get("/{id}", h.GetEvaluation)
		})

		r.Get("/cohorts/{role}", h.GetCohort)

		// Config routes
		r.Route("/config", func(r chi.Router) {
			r.Get("/", h.GetConfig)
			r.Post("/", h.CreateConfig)
		})

		// Payroll routes
		r.Route("/payroll/runs", func(r chi.Router) {
			r.Get("/", h.ListRuns)
			r.Post("/", h.CreateRun)
			r.Get("/{id}", h.GetRun)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/sweep", h.TriggerSweep)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// instrument logs every request and records it on the metrics manager.
func instrument(log logger.Logger, m *metrics.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			m.RecordHTTPRequest(route, r.Method, status, elapsed)

			fields := []logger.Field{
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", status),
				logger.Int("bytes", ww.BytesWritten()),
				logger.String("duration", elapsed.String()),
				logger.String("request_id", middleware.GetReqID(r.Context())),
			}
			if status >= http.StatusInternalServerError {
				log.Error(r.Context(), "http request failed", fields...)
				return
			}
			log.Debug(r.Context(), "http request", fields...)
		})
	}
}
