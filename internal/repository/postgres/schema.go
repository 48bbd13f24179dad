// Package postgres implements the pipeline's repository interfaces against
// PostgreSQL using database/sql and lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the pipeline tables. Signals are append-only; prospects
// hold only the latest score per organization (full replace on conflict).
var schema = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		organization_key TEXT PRIMARY KEY,
		display_name     TEXT NOT NULL DEFAULT '',
		industry         TEXT NOT NULL DEFAULT '',
		employee_count   INTEGER NOT NULL DEFAULT 0,
		location         TEXT NOT NULL DEFAULT '',
		key_guessed      BOOLEAN NOT NULL DEFAULT FALSE,
		scored           BOOLEAN NOT NULL DEFAULT FALSE,
		last_scored_at   TIMESTAMPTZ,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS signals (
		organization_key TEXT NOT NULL,
		signal_type      TEXT NOT NULL,
		strength         DOUBLE PRECISION NOT NULL,
		observed_at      TIMESTAMPTZ NOT NULL,
		source           TEXT NOT NULL,
		payload          JSONB,
		PRIMARY KEY (organization_key, signal_type, source, observed_at)
	)`,
	`CREATE TABLE IF NOT EXISTS prospects (
		organization_key TEXT PRIMARY KEY,
		pain_score       DOUBLE PRECISION NOT NULL,
		component_scores JSONB NOT NULL,
		primary_driver   TEXT NOT NULL,
		segment          TEXT NOT NULL,
		recommendation   TEXT NOT NULL,
		computed_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS campaign_messages (
		id                TEXT PRIMARY KEY,
		organization_key  TEXT NOT NULL,
		contact_email     TEXT NOT NULL,
		channel           TEXT NOT NULL DEFAULT 'email',
		template_id       TEXT NOT NULL,
		rendered_subject  TEXT NOT NULL,
		rendered_body     TEXT NOT NULL,
		segment           TEXT NOT NULL,
		pain_score        DOUBLE PRECISION NOT NULL,
		scheduled_send_at TIMESTAMPTZ NOT NULL,
		status            TEXT NOT NULL,
		attempts          INTEGER NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_status ON campaign_messages(status)`,
	`CREATE INDEX IF NOT EXISTS idx_orgs_scored ON organizations(scored, last_scored_at)`,
}

// EnsureSchema creates the pipeline tables if they don't exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
