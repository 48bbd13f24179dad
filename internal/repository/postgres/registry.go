package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/blueteamalpha/prospector/internal/domain"
	"github.com/blueteamalpha/prospector/internal/registry"
)

// RegistryRepo implements registry.Repository against PostgreSQL.
type RegistryRepo struct{ db *sql.DB }

// NewRegistryRepo creates a Postgres-backed organization repository.
func NewRegistryRepo(db *sql.DB) *RegistryRepo { return &RegistryRepo{db: db} }

func (r *RegistryRepo) GetOrganization(ctx context.Context, key string) (*domain.Organization, error) {
	org := &domain.Organization{}
	err := r.db.QueryRowContext(ctx, `
		SELECT organization_key, display_name, industry, employee_count, location,
		       key_guessed, scored, last_scored_at, created_at, updated_at
		FROM organizations
		WHERE organization_key = $1
	`, key).Scan(
		&org.Key, &org.DisplayName, &org.Industry, &org.EmployeeCount, &org.Location,
		&org.KeyGuessed, &org.Scored, &org.LastScoredAt, &org.CreatedAt, &org.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, registry.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}
	return org, nil
}

func (r *RegistryRepo) SaveOrganization(ctx context.Context, org *domain.Organization) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO organizations (organization_key, display_name, industry, employee_count,
		                           location, key_guessed, scored, last_scored_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (organization_key) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			industry = EXCLUDED.industry,
			employee_count = EXCLUDED.employee_count,
			location = EXCLUDED.location,
			key_guessed = EXCLUDED.key_guessed,
			scored = EXCLUDED.scored,
			last_scored_at = EXCLUDED.last_scored_at,
			updated_at = EXCLUDED.updated_at
	`, org.Key, org.DisplayName, org.Industry, org.EmployeeCount,
		org.Location, org.KeyGuessed, org.Scored, org.LastScoredAt, org.CreatedAt, org.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save organization: %w", err)
	}
	return nil
}

func (r *RegistryRepo) AppendSignal(ctx context.Context, sig domain.Signal) error {
	// Signals are immutable: conflicts on the identity key are absorbed,
	// never applied over the stored row.
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO signals (organization_key, signal_type, strength, observed_at, source, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (organization_key, signal_type, source, observed_at) DO NOTHING
	`, sig.OrganizationKey, sig.Type, sig.Strength, sig.ObservedAt, sig.Source, []byte(sig.Payload))
	if err != nil {
		return fmt.Errorf("append signal: %w", err)
	}
	return nil
}

func (r *RegistryRepo) SignalsFor(ctx context.Context, key string) ([]domain.Signal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT organization_key, signal_type, strength, observed_at, source, COALESCE(payload, 'null')
		FROM signals
		WHERE organization_key = $1
		ORDER BY observed_at ASC
	`, key)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	var out []domain.Signal
	for rows.Next() {
		var s domain.Signal
		var payload []byte
		if err := rows.Scan(&s.OrganizationKey, &s.Type, &s.Strength, &s.ObservedAt, &s.Source, &payload); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		if string(payload) != "null" {
			s.Payload = payload
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *RegistryRepo) ListUnscored(ctx context.Context, cooldown time.Duration) ([]domain.Organization, error) {
	horizon := time.Now().UTC().Add(-cooldown)
	rows, err := r.db.QueryContext(ctx, `
		SELECT organization_key, display_name, industry, employee_count, location,
		       key_guessed, scored, last_scored_at, created_at, updated_at
		FROM organizations
		WHERE scored = FALSE OR last_scored_at IS NULL OR last_scored_at < $1
		ORDER BY updated_at ASC
	`, horizon)
	if err != nil {
		return nil, fmt.Errorf("list unscored: %w", err)
	}
	defer rows.Close()

	var out []domain.Organization
	for rows.Next() {
		var org domain.Organization
		if err := rows.Scan(
			&org.Key, &org.DisplayName, &org.Industry, &org.EmployeeCount, &org.Location,
			&org.KeyGuessed, &org.Scored, &org.LastScoredAt, &org.CreatedAt, &org.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		out = append(out, org)
	}
	return out, rows.Err()
}

func (r *RegistryRepo) MarkScored(ctx context.Context, key string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE organizations
		SET scored = TRUE, last_scored_at = $2, updated_at = $2
		WHERE organization_key = $1
	`, key, at)
	if err != nil {
		return fmt.Errorf("mark scored: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return registry.ErrNotFound
	}
	return nil
}
