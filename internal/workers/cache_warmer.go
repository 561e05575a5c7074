package workers

import (
	"context"
	"log/slog"
	"time"

	"incidentLog/internal/domain"
)

type IncidentLister interface {
	List(ctx context.Context) ([]*domain.Incident, error)
}

// ListCache drops a fill whose generation was invalidated in the meantime.
type ListCache interface {
	Generation(ctx context.Context) (int64, error)
	SetAll(ctx context.Context, incidents []*domain.Incident, ttl time.Duration, gen int64) (bool, error)
}

// CacheWarmer reloads the sorted incident list into the cache on start and then
// on every tick, so reads after a TTL expiry rarely reach the store.
type CacheWarmer struct {
	logger   *slog.Logger
	store    IncidentLister
	cache    ListCache
	interval time.Duration
	ttl      time.Duration
}

func NewCacheWarmer(logger *slog.Logger, store IncidentLister, cache ListCache, interval, ttl time.Duration) *CacheWarmer {
	return &CacheWarmer{
		logger:   logger,
		store:    store,
		cache:    cache,
		interval: interval,
		ttl:      ttl,
	}
}

func (w *CacheWarmer) Run(ctx context.Context) {
	w.logger.Info("cacheWarmer STARTED", slog.Duration("interval", w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.warm(ctx)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("cacheWarmer STOPPED", slog.String("reason", ctx.Err().Error()))
			return
		case <-ticker.C:
			w.warm(ctx)
		}
	}
}

func (w *CacheWarmer) warm(ctx context.Context) {
	gen, err := w.cache.Generation(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("cacheWarmer: generation failed", slog.Any("error", err))
		}
		return
	}

	incidents, err := w.store.List(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.Warn("cacheWarmer: list failed", slog.Any("error", err))
		}
		return
	}

	stored, err := w.cache.SetAll(ctx, incidents, w.ttl, gen)
	switch {
	case err != nil:
		w.logger.Warn("cacheWarmer: set failed", slog.Any("error", err))
	case !stored:
		w.logger.Debug("cacheWarmer: list changed during read, next tick retries")
	default:
		w.logger.Debug("cache warmed", slog.Int("count", len(incidents)))
	}
}
