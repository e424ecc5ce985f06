package api

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/verity/internal/api/handlers"
	mw "github.com/Harshitk-cp/verity/internal/api/middleware"
	"github.com/Harshitk-cp/verity/internal/config"
	"github.com/Harshitk-cp/verity/internal/domain"
	"github.com/Harshitk-cp/verity/internal/oracle"
	"github.com/Harshitk-cp/verity/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// App holds the router and the interrogation pipeline for lifecycle
// management.
type App struct {
	Router       *chi.Mux
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(src domain.SourceOracle, logger *zap.Logger) (*App, error) {
	cfg := service.EngineConfig{
		MaxParallel:            config.MaxParallel(),
		GlobalDeadline:         config.GlobalDeadline(),
		PerQueryTimeout:        config.PerQueryTimeout(),
		ConfidenceThreshold:    config.ConfidenceThreshold(),
		MaxIterations:          config.MaxIterations(),
		BudgetCeiling:          config.BudgetCeiling(),
		MaxForkDepth:           config.MaxForkDepth(),
		MaxConsecutiveFailures: config.MaxConsecutiveFailures(),
		MinConfidence:          config.MinConfidence(),
		MinEvidence:            config.MinEvidence(),
		MaxCost:                config.MaxCost(),
	}

	// Fail fast on a bad base config; per-request overrides revalidate.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, service.ErrInvalidConfig
	}

	interrogateHandler := handlers.NewInterrogateHandler(src, service.DefaultScoring(), cfg, logger)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)
	r.Use(mw.RateLimit(config.RateLimitRPS(), config.RateLimitBurst()))

	r.Get("/healthz", healthHandler())
	r.Get("/metrics", app.metricsHandler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/interrogate", interrogateHandler.Interrogate)
	})

	return app, nil
}

// healthHandler reports liveness only; the oracle is not probed, its budget
// belongs to interrogations.
func healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) metricsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure oracle clients satisfy the interface at compile time.
var (
	_ domain.SourceOracle = (*oracle.HTTPClient)(nil)
	_ domain.SourceOracle = (*oracle.MockClient)(nil)
	_ domain.SourceOracle = (*oracle.RateLimited)(nil)
)
