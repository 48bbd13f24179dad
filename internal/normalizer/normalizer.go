// Package normalizer validates and canonicalizes inbound signal events from
// the external producers. It is dedup-only: the registry remains the source
// of truth for which organizations and signals exist.
package normalizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/blueteamalpha/prospector/internal/domain"
	"github.com/blueteamalpha/prospector/internal/pkg/logger"
	"github.com/blueteamalpha/prospector/internal/registry"
)

// ErrInvalidSignal marks a malformed or unidentifiable event. Invalid events
// are dropped and logged; they never fail the batch they arrived in.
var ErrInvalidSignal = errors.New("invalid signal")

// defaultStrengths supplies the per-type strength when a producer omits it.
// Relative severities follow the producers: an active ransomware observation
// is certain evidence, a long-open vacancy is weak evidence.
var defaultStrengths = map[domain.SignalType]float64{
	domain.SignalRansomware: 1.0,
	domain.SignalDarkWeb:    0.9,
	domain.SignalBreach:     0.8,
	domain.SignalExposure:   0.6,
	domain.SignalCompliance: 0.6,
	domain.SignalVacancy:    0.5,
}

// defaultStrength for signal types not in the table.
const defaultStrength = 0.5

// InboundEvent is the loosely typed wire schema emitted by every producer.
type InboundEvent struct {
	OrganizationIdentifier string          `json:"organization_identifier"`
	SignalType             string          `json:"signal_type"`
	Strength               *float64        `json:"strength,omitempty"`
	ObservedAt             time.Time       `json:"observed_at"`
	Source                 string          `json:"source"`
	Payload                json.RawMessage `json:"payload,omitempty"`
}

// orgContext is the organization metadata a producer may embed in the payload.
type orgContext struct {
	CompanyName   string `json:"company_name"`
	Industry      string `json:"industry"`
	EmployeeCount int    `json:"employee_count"`
	Location      string `json:"location"`
}

// Deduper answers whether a signal identity key has been seen before and
// records it if not. MarkSeen must be atomic: two concurrent calls for the
// same key must report seen=false exactly once.
type Deduper interface {
	MarkSeen(ctx context.Context, identityKey string) (alreadySeen bool, err error)
}

// BatchResult reports per-item outcomes for one ingested batch.
type BatchResult struct {
	Processed  int `json:"processed"`
	Duplicates int `json:"duplicates"`
	Dropped    int `json:"dropped"`
}

// Service normalizes inbound events and forwards validated signals to the
// registry merge step.
type Service struct {
	registry *registry.Service
	dedup    Deduper
}

// NewService creates a normalizer backed by the given registry and deduper.
func NewService(reg *registry.Service, dedup Deduper) *Service {
	return &Service{registry: reg, dedup: dedup}
}

// IngestBatch normalizes and applies a batch of producer events. Malformed
// events are dropped and counted, duplicates are absorbed as no-ops, and no
// single bad item aborts the batch.
func (s *Service) IngestBatch(ctx context.Context, events []InboundEvent) (BatchResult, error) {
	var res BatchResult
	for _, ev := range events {
		sig, org, err := Normalize(ev)
		if err != nil {
			logger.Warn("dropping invalid signal",
				"source", ev.Source, "type", ev.SignalType, "error", err.Error())
			res.Dropped++
			continue
		}

		seen, err := s.dedup.MarkSeen(ctx, sig.IdentityKey())
		if err != nil {
			return res, fmt.Errorf("dedup check: %w", err)
		}
		if seen {
			res.Duplicates++
			continue
		}

		if err := s.registry.AttachSignal(ctx, sig, org); err != nil {
			return res, fmt.Errorf("attach signal for %s: %w", sig.OrganizationKey, err)
		}
		res.Processed++
	}
	return res, nil
}

// Normalize validates one event and produces an immutable Signal plus the
// minimal organization context embedded in the payload. It never mutates
// the input.
func Normalize(ev InboundEvent) (domain.Signal, domain.Organization, error) {
	if ev.SignalType == "" {
		return domain.Signal{}, domain.Organization{}, fmt.Errorf("%w: missing signal_type", ErrInvalidSignal)
	}
	if ev.Source == "" {
		return domain.Signal{}, domain.Organization{}, fmt.Errorf("%w: missing source", ErrInvalidSignal)
	}
	if ev.ObservedAt.IsZero() {
		return domain.Signal{}, domain.Organization{}, fmt.Errorf("%w: missing observed_at", ErrInvalidSignal)
	}

	var octx orgContext
	if len(ev.Payload) > 0 {
		// Payload stays opaque beyond the embedded org context; a payload
		// that isn't a JSON object is invalid even though we don't read
		// the rest of it.
		if err := json.Unmarshal(ev.Payload, &octx); err != nil {
			return domain.Signal{}, domain.Organization{}, fmt.Errorf("%w: malformed payload: %v", ErrInvalidSignal, err)
		}
	}

	key, guessed, ok := CanonicalKey(ev.OrganizationIdentifier, octx.CompanyName)
	if !ok {
		return domain.Signal{}, domain.Organization{}, fmt.Errorf("%w: no organization identifier derivable", ErrInvalidSignal)
	}

	strength := defaultStrengthFor(domain.SignalType(ev.SignalType))
	if ev.Strength != nil {
		strength = domain.Clamp01(*ev.Strength)
	}

	sig := domain.Signal{
		OrganizationKey: key,
		Type:            domain.SignalType(ev.SignalType),
		Strength:        strength,
		ObservedAt:      ev.ObservedAt.UTC(),
		Source:          ev.Source,
		Payload:         ev.Payload,
	}
	org := domain.Organization{
		Key:           key,
		DisplayName:   octx.CompanyName,
		Industry:      strings.ToLower(octx.Industry),
		EmployeeCount: octx.EmployeeCount,
		Location:      octx.Location,
		KeyGuessed:    guessed,
	}
	return sig, org, nil
}

func defaultStrengthFor(t domain.SignalType) float64 {
	if v, ok := defaultStrengths[t]; ok {
		return v
	}
	return defaultStrength
}

// CanonicalKey derives the canonical organization key. An explicitly
// supplied identifier always wins; the name-to-domain guess is a lossy
// best-effort fallback and is flagged as such so merges can be audited.
func CanonicalKey(identifier, companyName string) (key string, guessed bool, ok bool) {
	if d := CanonicalDomain(identifier); d != "" {
		return d, false, true
	}
	if g := guessDomainFromName(companyName); g != "" {
		return g, true, true
	}
	return "", false, false
}

// CanonicalDomain canonicalizes a raw identifier into a bare domain:
// strips scheme, www. prefix, port, path/query, lowercases and trims.
// Returns "" when no domain is derivable.
func CanonicalDomain(raw string) string {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return ""
	}
	if strings.Contains(raw, "://") {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			raw = u.Host
		}
	}
	// Trim any path that survived (bare "example.com/about" input)
	if i := strings.IndexAny(raw, "/?#"); i >= 0 {
		raw = raw[:i]
	}
	if i := strings.Index(raw, ":"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.TrimPrefix(raw, "www.")
	raw = strings.Trim(raw, ".")
	if !strings.Contains(raw, ".") {
		return ""
	}
	return raw
}

var legalSuffixes = []string{
	"incorporated", "corporation", "company", "holdings", "group",
	"inc", "llc", "ltd", "corp", "plc", "co",
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// guessDomainFromName concatenates a cleaned company name into a guessed
// .com domain. Lossy by construction: it can merge unrelated organizations
// or split one organization across spellings, so callers flag the result.
func guessDomainFromName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	words := strings.Fields(nonAlnum.ReplaceAllString(name, " "))
	for len(words) > 0 {
		last := words[len(words)-1]
		trimmed := false
		for _, suf := range legalSuffixes {
			if last == suf {
				words = words[:len(words)-1]
				trimmed = true
				break
			}
		}
		if !trimmed {
			break
		}
	}
	joined := strings.Join(words, "")
	if joined == "" {
		return ""
	}
	return joined + ".com"
}
