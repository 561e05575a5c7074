package service

import (
	"context"
	"time"

	"incidentLog/internal/domain"

	"github.com/google/uuid"
)

//go:generate mockgen -source=service.go -destination=mocks/mock.go
type IncidentService interface {
	List(ctx context.Context) ([]*domain.Incident, error)
	Create(ctx context.Context, req domain.CreateIncidentRequest) (*domain.Incident, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	GetByTitle(ctx context.Context, title string, ignoreCase bool) (*domain.Incident, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type IncidentRepository interface {
	Create(ctx context.Context, incident *domain.Incident) error
	List(ctx context.Context) ([]*domain.Incident, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	FindByTitle(ctx context.Context, title string, ignoreCase bool) (*domain.Incident, error)
	Delete(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
}

// IncidentCache holds the sorted list. GetAll returns nil, nil on a miss.
// Invalidate advances the generation; SetAll is a no-op (false) once the
// generation differs from gen.
type IncidentCache interface {
	GetAll(ctx context.Context) ([]*domain.Incident, error)
	Generation(ctx context.Context) (int64, error)
	SetAll(ctx context.Context, incidents []*domain.Incident, ttl time.Duration, gen int64) (bool, error)
	Invalidate(ctx context.Context) error
}

type EventQueue interface {
	Enqueue(ctx context.Context, event domain.IncidentEvent) error
}

// Dashboard counters.
type StatsService interface {
	GetStats(ctx context.Context) (*domain.SeverityStats, error)
}

type StatsRepository interface {
	CountBySeverity(ctx context.Context) (*domain.SeverityStats, error)
}

type Service struct {
	IncidentService IncidentService
	StatsService    StatsService
}

func NewService(
	incidentService IncidentService,
	statsService StatsService,
) *Service {
	return &Service{
		IncidentService: incidentService,
		StatsService:    statsService,
	}
}

type noopCache struct{}

func (noopCache) GetAll(context.Context) ([]*domain.Incident, error) {
	return nil, nil
}

func (noopCache) Generation(context.Context) (int64, error) {
	return 0, nil
}

func (noopCache) SetAll(context.Context, []*domain.Incident, time.Duration, int64) (bool, error) {
	return false, nil
}

func (noopCache) Invalidate(context.Context) error {
	return nil
}

type noopQueue struct{}

func (noopQueue) Enqueue(context.Context, domain.IncidentEvent) error {
	return nil
}
