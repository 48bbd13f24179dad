package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/blueteamalpha/prospector/internal/domain"
	"github.com/blueteamalpha/prospector/internal/pkg/distlock"
)

// Service implements registry business logic. All public methods are safe
// for concurrent use; mutations of a single organization are serialized
// through a keyed mutex (single-writer-per-key, no global lock).
type Service struct {
	repo  Repository
	locks *distlock.KeyedMutex
}

// NewService creates a registry service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		locks: distlock.NewKeyedMutex(),
	}
}

// Get returns a single organization.
func (s *Service) Get(ctx context.Context, key string) (*domain.Organization, error) {
	return s.repo.GetOrganization(ctx, key)
}

// SignalsFor returns the full signal history for an organization.
func (s *Service) SignalsFor(ctx context.Context, key string) ([]domain.Signal, error) {
	return s.repo.SignalsFor(ctx, key)
}

// UpsertOrganization merges non-empty fields into the existing record, or
// creates a new one. Last writer wins per field, not per record.
func (s *Service) UpsertOrganization(ctx context.Context, fields domain.Organization) error {
	if fields.Key == "" {
		return ErrMissingKey
	}

	s.locks.Lock(fields.Key)
	defer s.locks.Unlock(fields.Key)

	now := time.Now().UTC()
	existing, err := s.repo.GetOrganization(ctx, fields.Key)
	switch {
	case errors.Is(err, ErrNotFound):
		fields.CreatedAt = now
		fields.UpdatedAt = now
		existing = &fields
	case err != nil:
		return fmt.Errorf("get organization %s: %w", fields.Key, err)
	default:
		existing.Merge(fields)
		existing.UpdatedAt = now
	}

	if err := s.repo.SaveOrganization(ctx, existing); err != nil {
		return fmt.Errorf("save organization %s: %w", fields.Key, err)
	}
	return nil
}

// AttachSignal appends a validated signal to the organization's history,
// creating a minimal placeholder record from the signal's embedded context
// when the organization is new. Arrival of a signal makes the organization
// eligible for the next scoring cycle.
func (s *Service) AttachSignal(ctx context.Context, sig domain.Signal, orgCtx domain.Organization) error {
	if sig.OrganizationKey == "" {
		return ErrMissingKey
	}

	s.locks.Lock(sig.OrganizationKey)
	defer s.locks.Unlock(sig.OrganizationKey)

	now := time.Now().UTC()
	org, err := s.repo.GetOrganization(ctx, sig.OrganizationKey)
	switch {
	case errors.Is(err, ErrNotFound):
		orgCtx.Key = sig.OrganizationKey
		orgCtx.CreatedAt = now
		org = &orgCtx
	case err != nil:
		return fmt.Errorf("get organization %s: %w", sig.OrganizationKey, err)
	default:
		org.Merge(orgCtx)
	}

	org.Scored = false
	org.UpdatedAt = now

	if err := s.repo.SaveOrganization(ctx, org); err != nil {
		return fmt.Errorf("save organization %s: %w", sig.OrganizationKey, err)
	}
	if err := s.repo.AppendSignal(ctx, sig); err != nil {
		return fmt.Errorf("append signal: %w", err)
	}
	return nil
}

// ListUnscored returns organizations due for scoring: never scored, or last
// scored before the cooldown horizon.
func (s *Service) ListUnscored(ctx context.Context, cooldown time.Duration) ([]domain.Organization, error) {
	return s.repo.ListUnscored(ctx, cooldown)
}

// MarkScored records that an organization was scored in the current cycle.
func (s *Service) MarkScored(ctx context.Context, key string, at time.Time) error {
	s.locks.Lock(key)
	defer s.locks.Unlock(key)
	return s.repo.MarkScored(ctx, key, at)
}
