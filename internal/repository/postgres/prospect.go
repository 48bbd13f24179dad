package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/blueteamalpha/prospector/internal/domain"
	"github.com/blueteamalpha/prospector/internal/registry"
)

// ProspectRepo persists the latest ScoredProspect per organization. A new
// score fully replaces the previous one; the core keeps no history.
type ProspectRepo struct{ db *sql.DB }

// NewProspectRepo creates a Postgres-backed prospect repository.
func NewProspectRepo(db *sql.DB) *ProspectRepo { return &ProspectRepo{db: db} }

func (r *ProspectRepo) SaveProspect(ctx context.Context, p *domain.ScoredProspect) error {
	components, err := json.Marshal(p.ComponentScores)
	if err != nil {
		return fmt.Errorf("encode component scores: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO prospects (organization_key, pain_score, component_scores,
		                       primary_driver, segment, recommendation, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (organization_key) DO UPDATE SET
			pain_score = EXCLUDED.pain_score,
			component_scores = EXCLUDED.component_scores,
			primary_driver = EXCLUDED.primary_driver,
			segment = EXCLUDED.segment,
			recommendation = EXCLUDED.recommendation,
			computed_at = EXCLUDED.computed_at
	`, p.OrganizationKey, p.PainScore, components,
		p.PrimaryDriver, p.Segment, p.Recommendation, p.ComputedAt)
	if err != nil {
		return fmt.Errorf("save prospect: %w", err)
	}
	return nil
}

func (r *ProspectRepo) GetProspect(ctx context.Context, key string) (*domain.ScoredProspect, error) {
	p := &domain.ScoredProspect{}
	var components []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT organization_key, pain_score, component_scores,
		       primary_driver, segment, recommendation, computed_at
		FROM prospects
		WHERE organization_key = $1
	`, key).Scan(
		&p.OrganizationKey, &p.PainScore, &components,
		&p.PrimaryDriver, &p.Segment, &p.Recommendation, &p.ComputedAt,
	)
	if err == sql.ErrNoRows {
		return nil, registry.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get prospect: %w", err)
	}
	if err := json.Unmarshal(components, &p.ComponentScores); err != nil {
		return nil, fmt.Errorf("decode component scores: %w", err)
	}
	return p, nil
}
