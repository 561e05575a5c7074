package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"incidentLog/internal/domain"
	"incidentLog/pkg/e"
	"incidentLog/pkg/validator"

	"github.com/google/uuid"
)

type incidentService struct {
	repo     IncidentRepository
	cache    IncidentCache
	events   EventQueue
	logger   *slog.Logger
	cacheTTL time.Duration
	now      func() time.Time
}

// NewIncidentService wires the incident use cases. A nil cache or queue
// disables that concern.
func NewIncidentService(
	repo IncidentRepository,
	cache IncidentCache,
	events EventQueue,
	logger *slog.Logger,
	cacheTTL time.Duration,
) IncidentService {
	if cache == nil {
		cache = noopCache{}
	}
	if events == nil {
		events = noopQueue{}
	}
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}
	return &incidentService{
		repo:     repo,
		cache:    cache,
		events:   events,
		logger:   logger,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

func (s *incidentService) List(ctx context.Context) ([]*domain.Incident, error) {
	cached, err := s.cache.GetAll(ctx)
	if err != nil {
		s.logger.Warn("cache.GetAll failed, reading store", slog.Any("error", err))
	} else if cached != nil {
		s.logger.Debug("incident list served from cache", slog.Int("count", len(cached)))
		return cached, nil
	}

	gen, genErr := s.cache.Generation(ctx)
	if genErr != nil {
		s.logger.Warn("cache.Generation failed, skipping cache fill", slog.Any("error", genErr))
	}

	incidents, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	if genErr == nil {
		stored, err := s.cache.SetAll(ctx, incidents, s.cacheTTL, gen)
		switch {
		case err != nil:
			s.logger.Warn("cache.SetAll failed", slog.Any("error", err))
		case !stored:
			s.logger.Debug("cache fill dropped, list changed during read")
		}
	}
	return incidents, nil
}

func (s *incidentService) Create(ctx context.Context, req domain.CreateIncidentRequest) (*domain.Incident, error) {
	clean, err := validator.ValidateIncident(req)
	if err != nil {
		s.logger.Debug("incident rejected", slog.String("reason", err.Error()))
		return nil, err
	}

	inc := &domain.Incident{
		Title:       clean.Title,
		Description: clean.Description,
		Severity:    clean.Severity,
	}
	if clean.ReportedAt != nil {
		inc.ReportedAt = *clean.ReportedAt
	}

	if err := s.repo.Create(ctx, inc); err != nil {
		return nil, err
	}

	s.invalidate(ctx)
	s.publish(ctx, domain.IncidentCreated, *inc)

	return inc, nil
}

func (s *incidentService) Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	return s.repo.Get(ctx, id)
}

func (s *incidentService) GetByTitle(ctx context.Context, title string, ignoreCase bool) (*domain.Incident, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("service.Incident.GetByTitle: title is required: %w", e.ErrInvalidInput)
	}
	return s.repo.FindByTitle(ctx, title, ignoreCase)
}

func (s *incidentService) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	s.invalidate(ctx)
	s.publish(ctx, domain.IncidentDeleted, *deleted)

	return nil
}

func (s *incidentService) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("cache.Invalidate failed", slog.Any("error", err))
	}
}

func (s *incidentService) publish(ctx context.Context, typ domain.IncidentEventType, inc domain.Incident) {
	ev := domain.IncidentEvent{
		Type:       typ,
		Incident:   inc,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Enqueue(ctx, ev); err != nil {
		s.logger.Error("enqueue event failed",
			slog.String("type", string(typ)),
			slog.String("id", inc.ID.String()),
			slog.Any("error", err),
		)
		return
	}
	s.logger.Debug("event enqueued", slog.String("type", string(typ)), slog.String("id", inc.ID.String()))
}
