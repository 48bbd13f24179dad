// Package pipeline orchestrates the scoring cycle: list organizations due
// for scoring, score and segment them concurrently, generate campaigns for
// qualifying prospects, and hand the messages to the scheduler.
//
// Scoring and segmentation are pure per-organization work, so the cycle
// fans out across a bounded worker pool. Overlapping cycles for one
// organization are prevented by the scored flag and cooldown; overlapping
// cycles across hosts by a Redis lock.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/blueteamalpha/prospector/internal/campaign"
	"github.com/blueteamalpha/prospector/internal/domain"
	"github.com/blueteamalpha/prospector/internal/pkg/distlock"
	"github.com/blueteamalpha/prospector/internal/pkg/logger"
	"github.com/blueteamalpha/prospector/internal/registry"
	"github.com/blueteamalpha/prospector/internal/scheduler"
	"github.com/blueteamalpha/prospector/internal/scoring"
	"github.com/blueteamalpha/prospector/internal/segment"
)

// ProspectStore persists the latest score per organization.
type ProspectStore interface {
	SaveProspect(ctx context.Context, p *domain.ScoredProspect) error
	GetProspect(ctx context.Context, key string) (*domain.ScoredProspect, error)
}

// ContactSource supplies ranked contacts for an organization. Ranking and
// enrichment are the external collaborator's concern.
type ContactSource interface {
	ContactsFor(ctx context.Context, orgKey string) ([]domain.Contact, error)
}

// CycleReport summarizes one scoring cycle.
type CycleReport struct {
	Candidates int `json:"candidates"`
	Scored     int `json:"scored"`
	Skipped    int `json:"skipped"`
	Generated  int `json:"generated"`
	Sent       int `json:"sent"`
	Deferred   int `json:"deferred"`
	Failed     int `json:"failed"`
}

// Options configure a pipeline.
type Options struct {
	Weights     scoring.Weights
	Thresholds  segment.Thresholds
	Cooldown    time.Duration
	Concurrency int
	CycleLock   distlock.DistLock // optional; nil disables cross-host locking
}

// Pipeline wires the stages together.
type Pipeline struct {
	registry  *registry.Service
	prospects ProspectStore
	contacts  ContactSource
	generator *campaign.Generator
	scheduler *scheduler.Scheduler
	opts      Options
}

// New creates a pipeline.
func New(reg *registry.Service, prospects ProspectStore, contacts ContactSource,
	gen *campaign.Generator, sched *scheduler.Scheduler, opts Options) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = 24 * time.Hour
	}
	return &Pipeline{
		registry:  reg,
		prospects: prospects,
		contacts:  contacts,
		generator: gen,
		scheduler: sched,
		opts:      opts,
	}
}

// RunCycle executes one full scoring cycle and dispatches due messages.
func (p *Pipeline) RunCycle(ctx context.Context) (CycleReport, error) {
	var report CycleReport

	if p.opts.CycleLock != nil {
		ok, err := p.opts.CycleLock.Acquire(ctx)
		if err != nil {
			return report, fmt.Errorf("acquire cycle lock: %w", err)
		}
		if !ok {
			logger.Info("scoring cycle already running elsewhere, skipping")
			return report, nil
		}
		defer p.opts.CycleLock.Release(ctx)
	}

	orgs, err := p.registry.ListUnscored(ctx, p.opts.Cooldown)
	if err != nil {
		return report, fmt.Errorf("list unscored: %w", err)
	}
	report.Candidates = len(orgs)

	var mu sync.Mutex
	var wg sync.WaitGroup
	work := make(chan domain.Organization)

	for i := 0; i < p.opts.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for org := range work {
				generated, err := p.processOrganization(ctx, org)
				mu.Lock()
				switch {
				case errors.Is(err, scoring.ErrMissingBaseData):
					// Skipped this cycle, retried on the next eligible one.
					report.Skipped++
				case err != nil:
					report.Skipped++
					logger.Error("scoring failed", "org", org.Key, "error", err.Error())
				default:
					report.Scored++
					report.Generated += generated
				}
				mu.Unlock()
			}
		}()
	}

	for _, org := range orgs {
		select {
		case work <- org:
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return report, ctx.Err()
		}
	}
	close(work)
	wg.Wait()

	dispatch, err := p.scheduler.DispatchDue(ctx, time.Now().UTC())
	if err != nil {
		return report, fmt.Errorf("dispatch due: %w", err)
	}
	report.Sent = dispatch.Sent
	report.Deferred = dispatch.Deferred
	report.Failed = dispatch.Failed

	logger.Info("scoring cycle complete",
		"candidates", report.Candidates, "scored", report.Scored,
		"skipped", report.Skipped, "generated", report.Generated,
		"sent", report.Sent, "deferred", report.Deferred, "failed", report.Failed)
	return report, nil
}

// processOrganization scores, segments, and (for qualifying prospects)
// generates campaign messages for one organization. Returns the number of
// messages scheduled.
func (p *Pipeline) processOrganization(ctx context.Context, org domain.Organization) (int, error) {
	signals, err := p.registry.SignalsFor(ctx, org.Key)
	if err != nil {
		return 0, fmt.Errorf("signals for %s: %w", org.Key, err)
	}

	now := time.Now().UTC()
	result, err := scoring.Compute(org, signals, p.opts.Weights, now)
	if err != nil {
		return 0, err
	}

	prospect := domain.ScoredProspect{
		OrganizationKey: org.Key,
		PainScore:       result.PainScore,
		ComponentScores: result.Components,
		PrimaryDriver:   result.Primary,
		Segment:         segment.Assign(org, signals, result.Components, p.opts.Thresholds, now),
		Recommendation:  segment.Recommend(result.PainScore),
		ComputedAt:      now,
	}

	if err := p.prospects.SaveProspect(ctx, &prospect); err != nil {
		return 0, fmt.Errorf("save prospect %s: %w", org.Key, err)
	}
	if err := p.registry.MarkScored(ctx, org.Key, now); err != nil {
		return 0, fmt.Errorf("mark scored %s: %w", org.Key, err)
	}

	if !prospect.Qualified() {
		return 0, nil
	}

	contacts, err := p.contacts.ContactsFor(ctx, org.Key)
	if err != nil {
		return 0, fmt.Errorf("contacts for %s: %w", org.Key, err)
	}

	msgs, err := p.generator.Generate(prospect, org, signals, contacts)
	if err != nil {
		return 0, fmt.Errorf("generate campaign for %s: %w", org.Key, err)
	}
	if len(msgs) == 0 {
		return 0, nil
	}

	if err := p.scheduler.Schedule(ctx, msgs); err != nil {
		return 0, fmt.Errorf("schedule for %s: %w", org.Key, err)
	}
	return len(msgs), nil
}

// Run executes cycles on a fixed period until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := p.RunCycle(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scoring cycle failed", "error", err.Error())
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
