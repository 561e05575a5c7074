package postgres

import (
	"context"
	"log/slog"

	"incidentLog/internal/domain"
	"incidentLog/pkg/e"

	"github.com/jackc/pgx/v5/pgxpool"
)

type StatsRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewStats(pool *pgxpool.Pool, logger *slog.Logger) *StatsRepo {
	return &StatsRepo{pool: pool, logger: logger}
}

func (p *StatsRepo) CountBySeverity(ctx context.Context) (*domain.SeverityStats, error) {
	const op = "postgres.Incident.CountBySeverity"

	const query = `
		SELECT COUNT(*),
			   COUNT(*) FILTER (WHERE severity = 'Low'),
			   COUNT(*) FILTER (WHERE severity = 'Medium'),
			   COUNT(*) FILTER (WHERE severity = 'High')
		FROM incidents
	`

	var st domain.SeverityStats
	if err := p.pool.QueryRow(ctx, query).Scan(&st.Total, &st.Low, &st.Medium, &st.High); err != nil {
		p.logger.Error("db queryrow scan failed",
			slog.String("op", op),
			slog.Any("error", err),
		)
		return nil, e.WrapError(ctx, op, err)
	}

	return &st, nil
}
