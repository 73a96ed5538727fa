package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appMiddleware "github.com/FACorreiaa/go-trip-fusion/app/middleware"
	"github.com/FACorreiaa/go-trip-fusion/internal/api"
	"github.com/FACorreiaa/go-trip-fusion/internal/api/planner"
)

// Config contains dependencies needed for the router setup
type Config struct {
	PlannerHandler    *planner.PlannerHandler
	ServiceName       string
	RequestsPerMinute int
	// HealthChecks report "ok" or an error message per dependency.
	HealthChecks map[string]func(ctx context.Context) error
	Logger       *slog.Logger
}

// SetupRouter wires the public API. Server-wide middleware (request id,
// logging, recoverer) is applied in main before mounting this router.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})
	r.Get("/health", healthHandler(cfg))

	h := cfg.PlannerHandler
	r.Route("/api/v1", func(r chi.Router) {
		// Planning calls a paid upstream API, so it is rate limited per client.
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.RateLimitByIP(cfg.RequestsPerMinute, cfg.Logger))
			r.Post("/plans", h.CreatePlan)
			r.Post("/sessions/{sessionID}/plan", h.SubmitPlan)
		})

		r.Post("/sessions", h.CreateSession)
		r.Get("/sessions/{sessionID}", h.GetSession)
		r.Post("/sessions/{sessionID}/reset", h.ResetSession)
		r.Get("/sessions/{sessionID}/share", h.ShareItinerary)
		r.Post("/sessions/{sessionID}/share-links", h.CreateShareLink)
		r.Get("/shared/{token}", h.GetSharedItinerary)
	})

	return r
}

func healthHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := api.HealthResponse{
			Status:    "ok",
			Service:   cfg.ServiceName,
			Checks:    make(map[string]string, len(cfg.HealthChecks)),
			Timestamp: time.Now().UTC(),
		}
		status := http.StatusOK
		for name, check := range cfg.HealthChecks {
			if err := check(r.Context()); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		api.WriteJSONResponse(w, r, status, resp)
	}
}
