package postgres

import (
	"context"

	"incidentLog/internal/domain"

	"github.com/google/uuid"
)

type IncidentRepository interface {
	Create(ctx context.Context, incident *domain.Incident) error
	List(ctx context.Context) ([]*domain.Incident, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	FindByTitle(ctx context.Context, title string, ignoreCase bool) (*domain.Incident, error)
	Delete(ctx context.Context, id uuid.UUID) (*domain.Incident, error) // hard delete
	ReplaceAll(ctx context.Context, incidents []*domain.Incident) error
}

type StatsRepository interface {
	CountBySeverity(ctx context.Context) (*domain.SeverityStats, error)
}

func (p *Postgres) IncidentRepository() IncidentRepository { return p.Incidents }
func (p *Postgres) Stats() StatsRepository                 { return p.Stat }
