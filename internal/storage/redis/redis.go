package redis

import (
	"context"
	"fmt"
	"log/slog"

	"incidentLog/internal/config"

	"github.com/redis/go-redis/v9"
)

// Redis owns the client shared by the list cache and the event queue.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects and pings within cfg.Timeout. The same timeout bounds
// dial, reads and writes, except BRPOP, which go-redis extends by its own block time.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*Redis, error) {
	const op = "storage.redis.NewRedis"

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		logger.Error("Failed to ping Redis",
			slog.String("addr", cfg.Addr),
			slog.Int("db", cfg.DB),
			slog.String("error", err.Error()),
		)
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}
	logger.Info("Connected to Redis",
		slog.String("addr", cfg.Addr),
		slog.Int("db", cfg.DB),
		slog.Bool("auth", cfg.Password != ""),
	)

	return &Redis{Client: rdb}, nil
}

func (r *Redis) IncidentCache() *IncidentCache {
	return NewIncidentCache(r.Client)
}

func (r *Redis) EventQueue() *EventQueue {
	return NewEventQueue(r.Client)
}

func (r *Redis) Close() error {
	return r.Client.Close()
}
