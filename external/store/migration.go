package store

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS templates (
		guid TEXT PRIMARY KEY,
		language TEXT NOT NULL,
		name TEXT NOT NULL,
		template TEXT NOT NULL,
		speciality INTEGER NOT NULL,
		category TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_templates_language ON templates (language, name)`,
	`CREATE TABLE IF NOT EXISTS specialities (
		code INTEGER PRIMARY KEY,
		language TEXT NOT NULL,
		prompt TEXT NOT NULL,
		en TEXT NOT NULL DEFAULT '',
		es TEXT NOT NULL DEFAULT '',
		fr TEXT NOT NULL DEFAULT '',
		de TEXT NOT NULL DEFAULT '',
		it TEXT NOT NULL DEFAULT '',
		ca TEXT NOT NULL DEFAULT '',
		pt TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS preferences (
		id INTEGER PRIMARY KEY,
		selected_template_guid TEXT NOT NULL DEFAULT '',
		selected_speciality_code INTEGER NOT NULL DEFAULT 0,
		selected_language TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
