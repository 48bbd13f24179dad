package registry

import (
	"context"
	"time"

	"github.com/blueteamalpha/prospector/internal/domain"
)

// Repository defines the data access contract for organizations and their
// signal history. Implementations must be safe for concurrent use; they do
// not need to serialize per-key merges — the service layer does that.
type Repository interface {
	// GetOrganization returns one organization. Returns ErrNotFound if it
	// doesn't exist.
	GetOrganization(ctx context.Context, key string) (*domain.Organization, error)

	// SaveOrganization inserts or fully replaces an organization record.
	SaveOrganization(ctx context.Context, org *domain.Organization) error

	// AppendSignal appends to the organization's immutable signal history.
	AppendSignal(ctx context.Context, sig domain.Signal) error

	// SignalsFor returns the full signal history for an organization,
	// oldest first.
	SignalsFor(ctx context.Context, key string) ([]domain.Signal, error)

	// ListUnscored returns organizations with scored=false or last scored
	// before the cooldown horizon.
	ListUnscored(ctx context.Context, cooldown time.Duration) ([]domain.Organization, error)

	// MarkScored flips the scored flag and stamps last_scored_at.
	MarkScored(ctx context.Context, key string, at time.Time) error
}
