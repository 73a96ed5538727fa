package container

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	database "github.com/FACorreiaa/go-trip-fusion/app/db"
	"github.com/FACorreiaa/go-trip-fusion/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-fusion/config"
	"github.com/FACorreiaa/go-trip-fusion/internal/api/flights"
	generativeAI "github.com/FACorreiaa/go-trip-fusion/internal/api/generative_ai"
	llmInteraction "github.com/FACorreiaa/go-trip-fusion/internal/api/llm_interaction"
	"github.com/FACorreiaa/go-trip-fusion/internal/api/planner"
)

// Container holds all application dependencies
type Container struct {
	Config         *config.Config
	Logger         *slog.Logger
	Pool           *pgxpool.Pool
	Redis          *redis.Client
	PlannerHandler *planner.PlannerHandler
	PlannerService planner.Service
	Sessions       *planner.Sessions
	ShareLinks     *planner.ShareLinks
}

// NewContainer wires every service from cfg. Postgres and Redis are
// optional: without Postgres interactions are not recorded, and without
// Redis flight results are cached in memory.
func NewContainer(ctx context.Context, cfg *config.Config, m *metrics.AppMetrics, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}

	var recorderRepo llmInteraction.Repository = llmInteraction.NoopRepo{}
	if cfg.PostgresEnabled() {
		pool, err := c.initPostgres(ctx)
		if err != nil {
			return nil, err
		}
		c.Pool = pool
		recorderRepo = llmInteraction.NewPostgresLlmInteractionRepo(pool, logger)
	} else {
		logger.Info("Postgres not configured, llm interactions will not be recorded")
	}
	recorder := llmInteraction.NewServiceImpl(recorderRepo, m, logger)

	generator, err := generativeAI.NewAIClient(ctx, generativeAI.Config{
		APIKey:          cfg.Generative.APIKey,
		Model:           cfg.Generative.Model,
		BaseURL:         cfg.Generative.BaseURL,
		Temperature:     cfg.Generative.Temperature,
		MaxOutputTokens: cfg.Generative.MaxOutputTokens,
		Timeout:         cfg.Generative.Timeout,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create generative client: %w", err)
	}
	if strings.TrimSpace(cfg.Generative.APIKey) == "" {
		logger.Warn("GOOGLE_GEMINI_API_KEY not set, planning requests will fail with 503")
	}

	flightCache := c.flightCache()
	searcher := flights.NewSerpAPIClient(flights.ClientConfig{
		APIKey:        cfg.Flights.APIKey,
		BaseURL:       cfg.Flights.BaseURL,
		Engine:        cfg.Flights.Engine,
		Timeout:       cfg.Flights.Timeout,
		RatePerSecond: cfg.Flights.RatePerSecond,
		Burst:         cfg.Flights.Burst,
	})
	flightService := flights.NewServiceImpl(searcher, flightCache, m, logger)
	augmenter := flights.NewAugmenter(flightService, logger)

	plannerService := planner.NewServiceImpl(generator, augmenter, recorder, m, logger)
	sessions := planner.NewSessions(plannerService, cfg.Planner.RequestTimeout, cfg.Planner.SessionTTL, logger)
	shares := planner.NewShareLinks(cfg.Share.SigningKey, cfg.Share.TokenTTL, cfg.Share.PublicBaseURL)
	if !shares.Enabled() {
		logger.Info("SHARE_SIGNING_KEY not set, share links are disabled")
	}

	c.PlannerService = plannerService
	c.Sessions = sessions
	c.ShareLinks = shares
	c.PlannerHandler = planner.NewPlannerHandler(plannerService, sessions, shares, logger)
	return c, nil
}

func (c *Container) initPostgres(ctx context.Context) (*pgxpool.Pool, error) {
	dbConfig, err := database.NewDatabaseConfig(c.Config, c.Logger)
	if err != nil {
		c.Logger.Error("Failed to generate database config", slog.Any("error", err))
		return nil, err
	}

	if err := database.RunMigrations(dbConfig.ConnectionURL, c.Logger); err != nil {
		c.Logger.Error("Failed to run database migrations", slog.Any("error", err))
		return nil, err
	}

	pool, err := database.Init(ctx, dbConfig.ConnectionURL, c.Logger)
	if err != nil {
		c.Logger.Error("Failed to initialize database pool", slog.Any("error", err))
		return nil, err
	}
	if !database.WaitForDB(ctx, pool, c.Logger) {
		pool.Close()
		return nil, fmt.Errorf("database not ready")
	}
	return pool, nil
}

func (c *Container) flightCache() flights.Cache {
	cfg := c.Config
	if strings.EqualFold(cfg.Cache.Backend, "redis") {
		c.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Repositories.Redis.Addr,
			Password: cfg.Repositories.Redis.Password,
			DB:       cfg.Repositories.Redis.DB,
		})
		c.Logger.Info("Flight results cached in redis", slog.String("addr", cfg.Repositories.Redis.Addr))
		return flights.NewRedisCache(c.Redis, cfg.Flights.CacheTTL)
	}
	return flights.NewMemoryCache(cfg.Flights.CacheTTL)
}

// HealthChecks returns a probe per configured backing store.
func (c *Container) HealthChecks() map[string]func(ctx context.Context) error {
	checks := map[string]func(ctx context.Context) error{}
	if c.Pool != nil {
		checks["postgres"] = func(ctx context.Context) error { return c.Pool.Ping(ctx) }
	}
	if c.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return c.Redis.Ping(ctx).Err() }
	}
	return checks
}

// Close releases all resources held by the container
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Logger.Warn("Failed to close redis client", slog.Any("error", err))
		}
	}
}
