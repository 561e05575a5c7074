package components

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"incidentLog/internal/api"
	"incidentLog/internal/config"
	"incidentLog/internal/service"
	"incidentLog/internal/storage/postgres"
	"incidentLog/internal/storage/redis"
	"incidentLog/internal/workers"
	"incidentLog/pkg/logger"
)

// Worker is a background loop that runs until its context is cancelled.
type Worker interface {
	Run(ctx context.Context)
}

type Components struct {
	logger     *slog.Logger
	HttpServer *api.Server
	Postgres   *postgres.Postgres
	Redis      *redis.Redis
	Workers    []Worker
}

func InitComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Components, error) {
	logger.Info("Initializing Postgres")

	storage, err := postgres.NewPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to init postgres",
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("failed to init postgres: %w", err)
	}

	c := &Components{
		logger:   logger,
		Postgres: storage,
	}

	var (
		cache  service.IncidentCache
		events service.EventQueue
	)

	if !cfg.Redis.Enabled() {
		logger.Warn("REDIS_ADDR is empty, list cache and webhook events are disabled")
	} else {
		logger.Info("Initializing Redis")
		redisClient, err := redis.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			storage.Close()
			return nil, fmt.Errorf("failed to init redis: %w", err)
		}
		c.Redis = redisClient

		listCache := redisClient.IncidentCache()
		cache = listCache
		c.Workers = append(c.Workers,
			workers.NewCacheWarmer(logger, storage.IncidentRepository(), listCache, cfg.Cache.WarmInterval, cfg.Cache.TTL))

		if cfg.Webhook.URL == "" {
			logger.Info("WEBHOOK_URL is empty, incident events are not published")
		} else {
			queue := redisClient.EventQueue()
			events = queue
			c.Workers = append(c.Workers, workers.NewEventSender(logger, cfg.Webhook, queue))
		}
	}

	incidentSvc := service.NewIncidentService(storage.IncidentRepository(), cache, events, logger, cfg.Cache.TTL)
	statsSvc := service.NewStatsService(storage.Stats())

	srv := service.NewService(incidentSvc, statsSvc)

	c.HttpServer = api.NewServer(cfg, logger, srv)
	logger.Info("Initialized server", slog.Int("workers", len(c.Workers)))

	return c, nil
}

// SetupLogger builds the env-specific handler and wraps it with the noise filter.
func SetupLogger(env string, suppress []string) *slog.Logger {
	var l *slog.Logger

	switch env {
	case "local":
		l = logger.SetupPrettySlog()
	case "dev":
		l = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelDebug,
			}),
		)
	default:
		l = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
				Level: slog.LevelInfo,
			}),
		)
	}

	return logger.WithFilter(l, suppress)
}

func (c *Components) ShutdownAll() {
	start := time.Now()
	c.logger.Info("Shutting down components")

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.logger.Error("Redis close failed", slog.String("err", err.Error()))
		}
	}
	c.Postgres.Close()

	c.logger.Info("All components stopped",
		slog.Duration("latency", time.Since(start)))
}
