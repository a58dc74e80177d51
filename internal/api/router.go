package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/alecgard/clawdeck/internal/agent"
	"github.com/alecgard/clawdeck/internal/metering"
	"github.com/alecgard/clawdeck/internal/metrics"
	"github.com/alecgard/clawdeck/internal/persist"
	"github.com/alecgard/clawdeck/internal/ratelimit"
	"github.com/alecgard/clawdeck/internal/skill"
	"github.com/alecgard/clawdeck/internal/usage"
)

// RouterDeps holds all dependencies for the API router. Store routes are
// mounted only when their store is set.
type RouterDeps struct {
	Agents         *agent.Store
	APIMetrics     *metering.Store
	Skills         *skill.Store
	Recorder       *usage.Recorder
	Metrics        *metrics.Metrics
	WriteLimiter   *ratelimit.Limiter // nil disables write throttling
	AllowedOrigins []string
	StorageBackend string
	Version        string
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(slogRequestLogger)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed on "+r.URL.Path)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	slots := []string{persist.SlotAgents, persist.SlotMetrics, persist.SlotSkills}
	r.Get("/.well-known/clawdeck.json", wellKnownHandler(newManifest(deps.Version, deps.StorageBackend, slots)))

	if deps.Metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Metrics.Registry(), promhttp.HandlerOpts{}))
		r.Get("/api/v1/metrics/live", deps.Metrics.Handler())
	}

	r.Route("/api/v1", func(ar chi.Router) {
		if deps.WriteLimiter != nil {
			var onReject func()
			if deps.Metrics != nil {
				onReject = deps.Metrics.ObserveRateLimited
			}
			ar.Use(ratelimit.Middleware(deps.WriteLimiter, clientIP, onReject))
		}

		if deps.Agents != nil {
			agents := newAgentsHandler(deps.Agents)
			ar.Get("/agents", agents.ListAgents)
			ar.Post("/agents", agents.CreateAgent)
			ar.Get("/agents/{id}", agents.GetAgent)
			ar.Put("/agents/{id}", agents.UpdateAgent)
			ar.Delete("/agents/{id}", agents.DeleteAgent)
			ar.Post("/agents/{id}/status", agents.SetStatus)
			ar.Get("/presets/{type}", agents.GetPreset)

			ar.Get("/activities", agents.ListActivities)
			ar.Post("/activities", agents.CreateActivity)

			keys := newKeysHandler(deps.Agents)
			ar.Get("/keys", keys.ListKeys)
			ar.Post("/keys", keys.CreateKey)
			ar.Put("/keys/{id}", keys.UpdateKey)
			ar.Delete("/keys/{id}", keys.DeleteKey)
			ar.Get("/credit-limits", keys.ListCreditLimits)
			ar.Post("/credit-limits", keys.CreateCreditLimit)
		}

		if deps.APIMetrics != nil {
			u := newUsageHandler(deps.APIMetrics, deps.Recorder)
			if deps.Recorder != nil {
				ar.Post("/usage", u.RecordUsage)
			}
			ar.Get("/api-metrics", u.ListMetrics)
			ar.Delete("/api-metrics", u.ClearMetrics)
		}

		if deps.Skills != nil {
			skills := newSkillsHandler(deps.Skills)
			ar.Get("/marketplace", skills.SearchMarketplace)
			ar.Get("/skills", skills.ListSkills)
			ar.Post("/skills/{id}/install", skills.InstallSkill)
			ar.Delete("/skills/{id}", skills.UninstallSkill)
			ar.Post("/skills/{id}/enable", skills.EnableSkill)
			ar.Post("/skills/{id}/disable", skills.DisableSkill)
			ar.Post("/skills/{id}/update", skills.UpdateSkill)
			ar.Put("/skills/{id}/config", skills.ConfigureSkill)
			ar.Post("/skills/{id}/env", skills.SetEnvVar)
			ar.Get("/executions", skills.ListExecutions)
			ar.Post("/executions", skills.TrackExecution)
			ar.Put("/executions/{id}", skills.UpdateExecution)
		}

		if deps.Agents != nil && deps.APIMetrics != nil && deps.Skills != nil {
			dash := newDashboardHandler(deps.Agents, deps.APIMetrics, deps.Skills)
			ar.Get("/dashboard", dash.GetDashboard)
		}
	})

	return r
}

// slogRequestLogger is a simple structured logging middleware using slog.
func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", ww.BytesWritten(),
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}
