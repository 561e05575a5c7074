package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"incidentLog/internal/components"
	"incidentLog/internal/config"
	"incidentLog/internal/domain"
	"incidentLog/internal/storage/postgres"
	"incidentLog/internal/storage/redis"
)

type incidentReplacer interface {
	ReplaceAll(ctx context.Context, incidents []*domain.Incident) error
}

type listInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Seed replaces every stored incident with the sample set and, when Redis is
// configured, drops the cached list so readers see the new rows.
func Seed() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		components.SetupLogger("local", nil).Error("load config failed", "err", err)
		return err
	}
	logger := components.SetupLogger(cfg.Env, cfg.Log.Suppress)

	storage, err := postgres.NewPostgres(ctx, cfg, logger)
	if err != nil {
		logger.Error("could not connect to postgres", "err", err)
		return err
	}
	defer storage.Close()

	var cache listInvalidator
	if cfg.Redis.Enabled() {
		rdb, err := redis.NewRedis(ctx, cfg.Redis, logger)
		if err != nil {
			logger.Error("could not connect to redis", "err", err)
			return err
		}
		defer rdb.Close()
		cache = rdb.IncidentCache()
	}

	return seedIncidents(ctx, storage.IncidentRepository(), cache, logger)
}

// seedIncidents writes the samples and invalidates cache, which may be nil.
// A failed invalidation is an error: the old list would be served until its TTL.
func seedIncidents(ctx context.Context, store incidentReplacer, cache listInvalidator, logger *slog.Logger) error {
	incidents := sampleIncidents()
	if err := store.ReplaceAll(ctx, incidents); err != nil {
		logger.Error("seeding failed", "err", err)
		return err
	}

	if cache != nil {
		if err := cache.Invalidate(ctx); err != nil {
			logger.Error("incident cache invalidation failed", "err", err)
			return fmt.Errorf("invalidate incident cache: %w", err)
		}
	}

	logger.Info("incidents successfully seeded", "count", len(incidents), "cache_invalidated", cache != nil)
	return nil
}

func sampleIncidents() []*domain.Incident {
	return []*domain.Incident{
		{
			Title:       "Unintended Bias in Language Model Output",
			Description: "An AI language model produced outputs containing gender and racial biases when responding to certain prompts, potentially reinforcing harmful stereotypes. The model was deployed in a customer service application.",
			Severity:    domain.SeverityHigh,
			ReportedAt:  time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC),
		},
		{
			Title:       "Data Privacy Breach in Recommendation System",
			Description: "AI recommendation system inadvertently revealed private user information through pattern analysis that could be reverse-engineered. The issue was discovered during internal review before widespread impact.",
			Severity:    domain.SeverityMedium,
			ReportedAt:  time.Date(2025, 3, 20, 14, 45, 0, 0, time.UTC),
		},
		{
			Title:       "Resource Consumption Anomaly",
			Description: "AI system entered an unexpected optimization loop causing excessive server resource usage. No data was compromised but the incident highlighted potential vulnerabilities in resource allocation constraints.",
			Severity:    domain.SeverityLow,
			ReportedAt:  time.Date(2025, 3, 25, 11, 15, 0, 0, time.UTC),
		},
	}
}
