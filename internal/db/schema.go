package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            UUID PRIMARY KEY,
		email         TEXT NOT NULL UNIQUE,
		full_name     TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS assessments (
		id              UUID PRIMARY KEY,
		assessment_type TEXT NOT NULL,
		user_id         UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		status          TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'completed')),
		user_context    TEXT NOT NULL DEFAULT '',
		analysis        JSONB,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT assessments_analysis_iff_completed
			CHECK ((status = 'completed') = (analysis IS NOT NULL))
	)`,
	`CREATE INDEX IF NOT EXISTS ix_assessments_user_created ON assessments (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS ix_assessments_type ON assessments (assessment_type)`,
	`CREATE TABLE IF NOT EXISTS assessment_messages (
		id            UUID PRIMARY KEY,
		assessment_id UUID NOT NULL REFERENCES assessments(id) ON DELETE CASCADE,
		seq           INTEGER NOT NULL,
		sender        TEXT NOT NULL CHECK (sender IN ('user', 'system')),
		message       TEXT NOT NULL CHECK (message <> ''),
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (assessment_id, seq)
	)`,
}

// Migrate crea las tablas si no existen.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i, err)
		}
	}
	return nil
}
