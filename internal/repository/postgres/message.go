package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/blueteamalpha/prospector/internal/domain"
)

// MessageRepo implements scheduler.MessageStore against PostgreSQL.
type MessageRepo struct{ db *sql.DB }

// NewMessageRepo creates a Postgres-backed message store.
func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

func (r *MessageRepo) SaveMessage(ctx context.Context, msg *domain.CampaignMessage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO campaign_messages (id, organization_key, contact_email, channel,
		                               template_id, rendered_subject, rendered_body,
		                               segment, pain_score, scheduled_send_at, status,
		                               attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, msg.ID, msg.OrganizationKey, msg.ContactEmail, msg.Channel,
		msg.TemplateID, msg.Subject, msg.Body,
		msg.Segment, msg.PainScore, msg.ScheduledSendAt, msg.Status,
		msg.Attempts, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

func (r *MessageRepo) UpdateMessageStatus(ctx context.Context, id string, status domain.MessageStatus, attempts int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE campaign_messages SET status = $2, attempts = $3 WHERE id = $1
	`, id, status, attempts)
	if err != nil {
		return fmt.Errorf("update message status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *MessageRepo) ListMessagesByStatus(ctx context.Context, status domain.MessageStatus) ([]domain.CampaignMessage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, organization_key, contact_email, channel, template_id,
		       rendered_subject, rendered_body, segment, pain_score,
		       scheduled_send_at, status, attempts, created_at
		FROM campaign_messages
		WHERE status = $1
		ORDER BY created_at ASC
	`, status)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []domain.CampaignMessage
	for rows.Next() {
		var m domain.CampaignMessage
		if err := rows.Scan(
			&m.ID, &m.OrganizationKey, &m.ContactEmail, &m.Channel, &m.TemplateID,
			&m.Subject, &m.Body, &m.Segment, &m.PainScore,
			&m.ScheduledSendAt, &m.Status, &m.Attempts, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
