package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blueteamalpha/prospector/internal/campaign"
	"github.com/blueteamalpha/prospector/internal/domain"
	"github.com/blueteamalpha/prospector/internal/registry"
	"github.com/blueteamalpha/prospector/internal/repository/memory"
	"github.com/blueteamalpha/prospector/internal/scheduler"
	"github.com/blueteamalpha/prospector/internal/scoring"
	"github.com/blueteamalpha/prospector/internal/segment"
)

// recordingDeliverer accepts every batch and remembers it.
type recordingDeliverer struct {
	mu      sync.Mutex
	batches [][]domain.CampaignMessage
}

func (d *recordingDeliverer) Deliver(_ context.Context, batch []domain.CampaignMessage) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.batches = append(d.batches, batch)
	return nil
}

// skipLock simulates another host holding the cycle lock.
type skipLock struct{}

func (skipLock) Acquire(context.Context) (bool, error) { return false, nil }
func (skipLock) Release(context.Context) error         { return nil }

type testHarness struct {
	store     *memory.Store
	registry  *registry.Service
	deliverer *recordingDeliverer
	pipeline  *Pipeline
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := memory.NewStore()
	reg := registry.NewService(store)
	deliverer := &recordingDeliverer{}

	caps := scheduler.NewSendCaps(client, scheduler.CapLimits{Daily: 500, PerOrg: 3, PerContact: 1})
	sched := scheduler.New(caps, deliverer, store,
		scheduler.Timing{BusinessHour: 10, Location: time.UTC}, 3)

	pl := New(reg, store, FallbackContacts{}, campaign.NewGenerator(3), sched, Options{
		Weights:     scoring.DefaultWeights,
		Thresholds:  segment.DefaultThresholds,
		Cooldown:    24 * time.Hour,
		Concurrency: 4,
	})

	return &testHarness{store: store, registry: reg, deliverer: deliverer, pipeline: pl}
}

func attachBreach(t *testing.T, h *testHarness, key string, daysAgo int, org domain.Organization) {
	t.Helper()
	sig := domain.Signal{
		OrganizationKey: key,
		Type:            domain.SignalBreach,
		Strength:        0.8,
		ObservedAt:      time.Now().UTC().AddDate(0, 0, -daysAgo),
		Source:          "breach-feed",
	}
	require.NoError(t, h.registry.AttachSignal(context.Background(), sig, org))
}

func TestRunCycleScoresAndGenerates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	attachBreach(t, h, "acme.com", 10, domain.Organization{
		DisplayName: "Acme Corp", Industry: "healthcare", EmployeeCount: 6000,
	})

	report, err := h.pipeline.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 1, report.Scored)
	assert.Equal(t, 0, report.Skipped)
	assert.Equal(t, 1, report.Generated)

	prospect, err := h.store.GetProspect(ctx, "acme.com")
	require.NoError(t, err)
	assert.Equal(t, domain.SegmentPostBreachSurvivor, prospect.Segment)
	assert.Equal(t, domain.DriverBreachCost, prospect.PrimaryDriver)
	assert.InDelta(t, 62.5, prospect.PainScore, 0.5)
	assert.True(t, prospect.Qualified())

	// Post-breach sends go out 15 minutes after scheduling: queued, not yet
	// dispatched by this cycle's pass.
	queued, err := h.store.ListMessagesByStatus(ctx, domain.MessageQueued)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	assert.Equal(t, "security@acme.com", queued[0].ContactEmail)
	assert.Equal(t, "dwell_time", queued[0].TemplateID)
	assert.Empty(t, h.deliverer.batches)

	org, err := h.registry.Get(ctx, "acme.com")
	require.NoError(t, err)
	assert.True(t, org.Scored)
}

func TestRunCycleSkipsUnscorable(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// No signals, no employee count: nothing to base a score on.
	require.NoError(t, h.registry.UpsertOrganization(ctx, domain.Organization{Key: "ghost.com"}))

	report, err := h.pipeline.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 0, report.Scored)
	assert.Equal(t, 1, report.Skipped)

	_, err = h.store.GetProspect(ctx, "ghost.com")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestRunCycleUnqualifiedGeneratesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// Small org with no signals scores ~35: below the outreach bar.
	require.NoError(t, h.registry.UpsertOrganization(ctx, domain.Organization{
		Key: "quiet.com", EmployeeCount: 120,
	}))

	report, err := h.pipeline.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Scored)
	assert.Equal(t, 0, report.Generated)

	prospect, err := h.store.GetProspect(ctx, "quiet.com")
	require.NoError(t, err)
	assert.False(t, prospect.Qualified())
	assert.Equal(t, domain.RecommendNotQualified, prospect.Recommendation)
	// No higher-priority rule matches a quiet small business.
	assert.Equal(t, domain.SegmentOverwhelmedGeneralist, prospect.Segment)
}

func TestRunCycleCooldownExcludesScored(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	attachBreach(t, h, "acme.com", 10, domain.Organization{EmployeeCount: 6000, Industry: "healthcare"})

	_, err := h.pipeline.RunCycle(ctx)
	require.NoError(t, err)

	// Scored within the cooldown: not a candidate again.
	report, err := h.pipeline.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Candidates)

	// A new signal re-arms the organization immediately.
	attachBreach(t, h, "acme.com", 5, domain.Organization{})
	report, err = h.pipeline.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Candidates)
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	h := newHarness(t)
	h.pipeline.opts.CycleLock = skipLock{}
	ctx := context.Background()

	attachBreach(t, h, "acme.com", 10, domain.Organization{EmployeeCount: 6000})

	report, err := h.pipeline.RunCycle(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Candidates)
	assert.Zero(t, report.Scored)
}

func TestRunCycleConcurrentOrganizations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	keys := []string{"a.com", "b.com", "c.com", "d.com", "e.com", "f.com"}
	for _, key := range keys {
		attachBreach(t, h, key, 10, domain.Organization{EmployeeCount: 6000, Industry: "finance"})
	}

	report, err := h.pipeline.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, len(keys), report.Candidates)
	assert.Equal(t, len(keys), report.Scored)
	assert.Equal(t, len(keys), report.Generated)

	for _, key := range keys {
		prospect, err := h.store.GetProspect(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, key, prospect.OrganizationKey)
	}
}

func TestFallbackContacts(t *testing.T) {
	contacts, err := FallbackContacts{}.ContactsFor(context.Background(), "acme.com")
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "security@acme.com", contacts[0].Email)
}
