// Package memory implements the pipeline's repository interfaces in
// process memory. It backs tests and single-node development runs where a
// Postgres instance would be overkill.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/blueteamalpha/prospector/internal/domain"
	"github.com/blueteamalpha/prospector/internal/registry"
)

// Store implements registry.Repository, the pipeline's prospect store, and
// scheduler.MessageStore over in-process maps. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	orgs      map[string]domain.Organization
	signals   map[string][]domain.Signal
	seen      map[string]struct{}
	prospects map[string]domain.ScoredProspect
	messages  map[string]domain.CampaignMessage
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		orgs:      make(map[string]domain.Organization),
		signals:   make(map[string][]domain.Signal),
		seen:      make(map[string]struct{}),
		prospects: make(map[string]domain.ScoredProspect),
		messages:  make(map[string]domain.CampaignMessage),
	}
}

// ---- registry.Repository ----

func (s *Store) GetOrganization(_ context.Context, key string) (*domain.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[key]
	if !ok {
		return nil, registry.ErrNotFound
	}
	cp := org
	return &cp, nil
}

func (s *Store) SaveOrganization(_ context.Context, org *domain.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orgs[org.Key] = *org
	return nil
}

func (s *Store) AppendSignal(_ context.Context, sig domain.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Absorb identity-key duplicates; stored signals are immutable.
	if _, dup := s.seen[sig.IdentityKey()]; dup {
		return nil
	}
	s.seen[sig.IdentityKey()] = struct{}{}
	s.signals[sig.OrganizationKey] = append(s.signals[sig.OrganizationKey], sig)
	return nil
}

func (s *Store) SignalsFor(_ context.Context, key string) ([]domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sigs := s.signals[key]
	out := make([]domain.Signal, len(sigs))
	copy(out, sigs)
	sort.Slice(out, func(i, j int) bool { return out[i].ObservedAt.Before(out[j].ObservedAt) })
	return out, nil
}

func (s *Store) ListUnscored(_ context.Context, cooldown time.Duration) ([]domain.Organization, error) {
	horizon := time.Now().UTC().Add(-cooldown)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Organization
	for _, org := range s.orgs {
		if !org.Scored || org.LastScoredAt == nil || org.LastScoredAt.Before(horizon) {
			out = append(out, org)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *Store) MarkScored(_ context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[key]
	if !ok {
		return registry.ErrNotFound
	}
	org.Scored = true
	org.LastScoredAt = &at
	org.UpdatedAt = at
	s.orgs[key] = org
	return nil
}

// ---- prospect store ----

func (s *Store) SaveProspect(_ context.Context, p *domain.ScoredProspect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prospects[p.OrganizationKey] = *p
	return nil
}

func (s *Store) GetProspect(_ context.Context, key string) (*domain.ScoredProspect, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prospects[key]
	if !ok {
		return nil, registry.ErrNotFound
	}
	cp := p
	return &cp, nil
}

// ---- scheduler.MessageStore ----

func (s *Store) SaveMessage(_ context.Context, msg *domain.CampaignMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ID] = *msg
	return nil
}

func (s *Store) UpdateMessageStatus(_ context.Context, id string, status domain.MessageStatus, attempts int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg, ok := s.messages[id]
	if !ok {
		return sql.ErrNoRows
	}
	msg.Status = status
	msg.Attempts = attempts
	s.messages[id] = msg
	return nil
}

func (s *Store) ListMessagesByStatus(_ context.Context, status domain.MessageStatus) ([]domain.CampaignMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.CampaignMessage
	for _, m := range s.messages {
		if m.Status == status {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
