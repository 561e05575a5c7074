package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"incidentLog/internal/domain"
	"incidentLog/pkg/e"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const incidentColumns = `id, title, description, severity, reported_at, created_at, updated_at`

const insertIncident = `
	INSERT INTO incidents (` + incidentColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

type IncidentRepo struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewIncidentRepo(pool *pgxpool.Pool, logger *slog.Logger) *IncidentRepo {
	return &IncidentRepo{pool: pool, logger: logger}
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var inc domain.Incident
	err := row.Scan(
		&inc.ID,
		&inc.Title,
		&inc.Description,
		&inc.Severity,
		&inc.ReportedAt,
		&inc.CreatedAt,
		&inc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inc, nil
}

// applyDefaults fills the generated fields. Timestamps are truncated to the
// microsecond precision Postgres stores so the returned value matches a re-read.
func applyDefaults(inc *domain.Incident, now time.Time) {
	now = now.UTC().Truncate(time.Microsecond)
	if inc.ID == uuid.Nil {
		inc.ID = uuid.New()
	}
	if inc.ReportedAt.IsZero() {
		inc.ReportedAt = now
	} else {
		inc.ReportedAt = inc.ReportedAt.UTC().Truncate(time.Microsecond)
	}
	inc.CreatedAt = now
	inc.UpdatedAt = now
}

func (p *IncidentRepo) Create(ctx context.Context, incident *domain.Incident) error {
	const op = "postgres.Incident.Create"

	applyDefaults(incident, time.Now())

	_, err := p.pool.Exec(ctx, insertIncident,
		incident.ID,
		incident.Title,
		incident.Description,
		incident.Severity,
		incident.ReportedAt,
		incident.CreatedAt,
		incident.UpdatedAt,
	)
	if err != nil {
		p.logger.Error("db exec failed",
			slog.String("op", op),
			slog.Any("error", err),
		)
		return e.WrapError(ctx, op, err)
	}

	return nil
}

func (p *IncidentRepo) List(ctx context.Context) ([]*domain.Incident, error) {
	const op = "postgres.Incident.List"

	const query = `SELECT ` + incidentColumns + ` FROM incidents ORDER BY reported_at DESC, created_at DESC`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		p.logger.Error("db query failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}
	defer rows.Close()

	incidents := make([]*domain.Incident, 0)
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			p.logger.Error("row scan failed", slog.String("op", op), slog.Any("error", err))
			return nil, e.WrapError(ctx, op, err)
		}
		incidents = append(incidents, inc)
	}
	if err := rows.Err(); err != nil {
		p.logger.Error("rows err", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}

	return incidents, nil
}

func (p *IncidentRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	const op = "postgres.Incident.Get"

	const query = `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1`

	inc, err := scanIncident(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, e.ErrNotFound)
		}
		p.logger.Error("db queryrow scan failed", slog.String("op", op), slog.Any("error", err), slog.String("id", id.String()))
		return nil, e.WrapError(ctx, op, err)
	}

	return inc, nil
}

// FindByTitle returns the most recently reported incident with the given title.
// Titles are not unique, so older duplicates are shadowed.
func (p *IncidentRepo) FindByTitle(ctx context.Context, title string, ignoreCase bool) (*domain.Incident, error) {
	const op = "postgres.Incident.FindByTitle"

	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE title = $1 ORDER BY reported_at DESC LIMIT 1`
	if ignoreCase {
		query = `SELECT ` + incidentColumns + ` FROM incidents WHERE lower(title) = lower($1) ORDER BY reported_at DESC LIMIT 1`
	}

	inc, err := scanIncident(p.pool.QueryRow(ctx, query, title))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, e.ErrNotFound)
		}
		p.logger.Error("db queryrow scan failed", slog.String("op", op), slog.Any("error", err))
		return nil, e.WrapError(ctx, op, err)
	}

	return inc, nil
}

func (p *IncidentRepo) Delete(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	const op = "postgres.Incident.Delete"

	const query = `DELETE FROM incidents WHERE id = $1 RETURNING ` + incidentColumns

	inc, err := scanIncident(p.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, e.ErrNotFound)
		}
		p.logger.Error("db delete failed", slog.String("op", op), slog.Any("error", err), slog.String("id", id.String()))
		return nil, e.WrapError(ctx, op, err)
	}

	return inc, nil
}

// ReplaceAll wipes the table and inserts incidents in one transaction.
func (p *IncidentRepo) ReplaceAll(ctx context.Context, incidents []*domain.Incident) error {
	const op = "postgres.Incident.ReplaceAll"

	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM incidents`); err != nil {
			return err
		}

		now := time.Now()
		batch := &pgx.Batch{}
		for _, inc := range incidents {
			applyDefaults(inc, now)
			batch.Queue(insertIncident,
				inc.ID,
				inc.Title,
				inc.Description,
				inc.Severity,
				inc.ReportedAt,
				inc.CreatedAt,
				inc.UpdatedAt,
			)
		}

		br := tx.SendBatch(ctx, batch)
		for range incidents {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return err
			}
		}
		return br.Close()
	})
	if err != nil {
		p.logger.Error("db replace failed", slog.String("op", op), slog.Any("error", err))
		return e.WrapError(ctx, op, err)
	}

	return nil
}
