package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// The CHECK constraints repeat the validator rules so rows written around the
// service still hold the incident invariants.
const schema = `
CREATE TABLE IF NOT EXISTS incidents (
	id          uuid PRIMARY KEY,
	title       varchar(100) NOT NULL CHECK (btrim(title) <> ''),
	description text NOT NULL CHECK (btrim(description) <> ''),
	severity    text NOT NULL CHECK (severity IN ('Low', 'Medium', 'High')),
	reported_at timestamptz NOT NULL DEFAULT now(),
	created_at  timestamptz NOT NULL DEFAULT now(),
	updated_at  timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS incidents_reported_at_idx ON incidents (reported_at DESC);
CREATE INDEX IF NOT EXISTS incidents_title_idx ON incidents (title);
CREATE INDEX IF NOT EXISTS incidents_title_lower_idx ON incidents (lower(title));
`

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	return err
}
