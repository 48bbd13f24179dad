// Package scheduler orders, rate-limits, and schedules generated campaign
// messages for delivery to the external collaborator.
//
// Messages wait in an in-process priority queue ordered by pain score
// descending, then scheduled send time. The three daily send caps (global,
// per-organization, per-contact) are enforced by one atomic Redis
// check-and-increment, so concurrent dispatch can never overrun a cap.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/blueteamalpha/prospector/internal/domain"
	"github.com/blueteamalpha/prospector/internal/pkg/logger"
)

// MessageStore persists message lifecycle for operator visibility.
// Implementations must be safe for concurrent use.
type MessageStore interface {
	// SaveMessage inserts a newly scheduled message.
	SaveMessage(ctx context.Context, msg *domain.CampaignMessage) error

	// UpdateMessageStatus transitions a message and records the attempt count.
	UpdateMessageStatus(ctx context.Context, id string, status domain.MessageStatus, attempts int) error

	// ListMessagesByStatus returns messages in the given state, oldest first.
	ListMessagesByStatus(ctx context.Context, status domain.MessageStatus) ([]domain.CampaignMessage, error)
}

// Timing holds the send-time assignment knobs.
type Timing struct {
	BusinessHour int            // local hour for standard sends
	Location     *time.Location // business-day timezone
}

// DispatchReport summarizes one dispatch pass.
type DispatchReport struct {
	Dispatched int `json:"dispatched"`
	Sent       int `json:"sent"`
	Deferred   int `json:"deferred"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}

// Scheduler owns the pending queue and drives delivery.
type Scheduler struct {
	mu        sync.Mutex
	queue     *priorityQueue
	cancelled map[string]bool

	caps      *SendCaps
	deliverer Deliverer
	store     MessageStore
	timing    Timing
	retries   int
}

// New creates a scheduler. retryBudget is recorded on failed messages so
// operators can see the budget was exhausted.
func New(caps *SendCaps, deliverer Deliverer, store MessageStore, timing Timing, retryBudget int) *Scheduler {
	if timing.Location == nil {
		timing.Location = time.UTC
	}
	if timing.BusinessHour == 0 {
		timing.BusinessHour = 10
	}
	return &Scheduler{
		queue:     newPriorityQueue(),
		cancelled: make(map[string]bool),
		caps:      caps,
		deliverer: deliverer,
		store:     store,
		timing:    timing,
		retries:   retryBudget,
	}
}

// Schedule assigns send times to the messages, persists them, and enqueues
// them for dispatch. Safe for concurrent use.
func (s *Scheduler) Schedule(ctx context.Context, msgs []domain.CampaignMessage) error {
	now := time.Now().UTC()
	for i := range msgs {
		msg := msgs[i]
		if msg.ScheduledSendAt.IsZero() {
			msg.ScheduledSendAt = AssignSendTime(msg.Segment, msg.PainScore, now, s.timing)
		}
		msg.Status = domain.MessageQueued

		if err := s.store.SaveMessage(ctx, &msg); err != nil {
			return fmt.Errorf("save message %s: %w", msg.ID, err)
		}

		s.mu.Lock()
		s.queue.push(&msg)
		s.mu.Unlock()
	}
	return nil
}

// Restore reloads queued and deferred messages from the store into the
// queue, so a restarted process picks up where the previous one stopped.
// Returns the number of messages recovered.
func (s *Scheduler) Restore(ctx context.Context) (int, error) {
	var recovered []domain.CampaignMessage
	for _, status := range []domain.MessageStatus{domain.MessageQueued, domain.MessageDeferred} {
		msgs, err := s.store.ListMessagesByStatus(ctx, status)
		if err != nil {
			return 0, fmt.Errorf("list %s messages: %w", status, err)
		}
		recovered = append(recovered, msgs...)
	}

	s.mu.Lock()
	for i := range recovered {
		msg := recovered[i]
		s.queue.push(&msg)
	}
	s.mu.Unlock()
	return len(recovered), nil
}

// Cancel transitions a pending message to cancelled. A message already
// handed to a dispatch pass is not retractable; Cancel reports whether the
// cancellation landed in time.
func (s *Scheduler) Cancel(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	found := false
	for _, item := range s.queue.items {
		if item.msg.ID == id {
			found = true
			break
		}
	}
	if found {
		s.cancelled[id] = true
	}
	s.mu.Unlock()

	if !found {
		return false, nil
	}
	if err := s.store.UpdateMessageStatus(ctx, id, domain.MessageCancelled, 0); err != nil {
		return true, err
	}
	return true, nil
}

// Pending returns the number of queued messages, mainly for tests and the
// health endpoint.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.len()
}

// DispatchDue sends every message whose scheduled time has arrived.
// Messages denied by a cap are deferred to the next eligible business day
// and requeued FIFO; delivery failures after the retry budget transition
// to failed.
func (s *Scheduler) DispatchDue(ctx context.Context, now time.Time) (DispatchReport, error) {
	var report DispatchReport

	due, cancelled := s.takeDue(now)
	report.Cancelled = len(cancelled)
	for _, id := range cancelled {
		if err := s.store.UpdateMessageStatus(ctx, id, domain.MessageCancelled, 0); err != nil {
			logger.Error("failed to persist cancellation", "message_id", id, "error", err.Error())
		}
	}
	if len(due) == 0 {
		return report, nil
	}

	var allowed []*domain.CampaignMessage
	for i, msg := range due {
		verdict, err := s.caps.Reserve(ctx, msg.OrganizationKey, msg.ContactEmail, now)
		if err != nil {
			// Transient cap-store failure: nothing has been sent yet, so
			// put everything back and retry on the next pass.
			s.requeue(allowed)
			s.requeue(due[i:])
			return report, fmt.Errorf("reserve send slot: %w", err)
		}
		if verdict != CapAllowed {
			// Cap exhaustion is deferral, not failure.
			s.deferMessage(ctx, msg, now, verdict)
			report.Deferred++
			continue
		}
		allowed = append(allowed, msg)
	}

	if len(allowed) == 0 {
		return report, nil
	}
	report.Dispatched = len(allowed)

	batch := make([]domain.CampaignMessage, len(allowed))
	for i, msg := range allowed {
		batch[i] = *msg
	}

	if err := s.deliverer.Deliver(ctx, batch); err != nil {
		logger.Error("delivery batch failed", "count", len(batch), "error", err.Error())
		for _, msg := range batch {
			report.Failed++
			if uerr := s.store.UpdateMessageStatus(ctx, msg.ID, domain.MessageFailed, s.retries+1); uerr != nil {
				logger.Error("failed to persist failure", "message_id", msg.ID, "error", uerr.Error())
			}
		}
		return report, nil
	}

	for _, msg := range batch {
		report.Sent++
		if err := s.store.UpdateMessageStatus(ctx, msg.ID, domain.MessageSent, msg.Attempts+1); err != nil {
			logger.Error("failed to persist send", "message_id", msg.ID, "error", err.Error())
		}
	}
	return report, nil
}

// takeDue removes and returns all due, non-cancelled messages in priority
// order, plus the IDs of cancelled messages it swept out of the queue.
func (s *Scheduler) takeDue(now time.Time) ([]*domain.CampaignMessage, []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*domain.CampaignMessage
	var cancelled []string
	var keep []*domain.CampaignMessage

	for s.queue.len() > 0 {
		msg := s.queue.pop()
		switch {
		case s.cancelled[msg.ID]:
			delete(s.cancelled, msg.ID)
			cancelled = append(cancelled, msg.ID)
		case !msg.ScheduledSendAt.After(now):
			due = append(due, msg)
		default:
			keep = append(keep, msg)
		}
	}
	for _, msg := range keep {
		s.queue.push(msg)
	}
	return due, cancelled
}

// requeue returns unprocessed messages to the queue. Used when a dispatch
// pass aborts after takeDue has already popped them.
func (s *Scheduler) requeue(msgs []*domain.CampaignMessage) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	for _, msg := range msgs {
		s.queue.push(msg)
	}
	s.mu.Unlock()
}

func (s *Scheduler) deferMessage(ctx context.Context, msg *domain.CampaignMessage, now time.Time, verdict CapVerdict) {
	msg.Status = domain.MessageDeferred
	msg.ScheduledSendAt = nextBusinessDay(now, s.timing)

	logger.Info("deferring message",
		"message_id", msg.ID, "org", msg.OrganizationKey,
		"reason", verdict.String(), "rescheduled", msg.ScheduledSendAt.Format(time.RFC3339))

	s.mu.Lock()
	s.queue.push(msg)
	s.mu.Unlock()

	if err := s.store.UpdateMessageStatus(ctx, msg.ID, domain.MessageDeferred, msg.Attempts); err != nil {
		logger.Error("failed to persist deferral", "message_id", msg.ID, "error", err.Error())
	}
}

// AssignSendTime implements the urgency tiers: post-breach survivors go out
// in 15 minutes, any prospect over 85 within the hour, everyone else next
// business day at the configured local hour.
func AssignSendTime(seg domain.Segment, painScore float64, now time.Time, timing Timing) time.Time {
	switch {
	case seg == domain.SegmentPostBreachSurvivor:
		return now.Add(15 * time.Minute)
	case painScore > 85:
		return now.Add(1 * time.Hour)
	default:
		return nextBusinessDayOrToday(now, timing)
	}
}

// nextBusinessDayOrToday returns today at the business hour when that is
// still ahead on a weekday, otherwise the next business day.
func nextBusinessDayOrToday(now time.Time, timing Timing) time.Time {
	local := now.In(timing.Location)
	if isWeekday(local.Weekday()) && local.Hour() < timing.BusinessHour {
		return at(local, timing.BusinessHour)
	}
	return nextBusinessDay(now, timing)
}

// nextBusinessDay returns the next weekday strictly after now's date, at
// the business hour.
func nextBusinessDay(now time.Time, timing Timing) time.Time {
	local := now.In(timing.Location)
	for {
		local = local.AddDate(0, 0, 1)
		if isWeekday(local.Weekday()) {
			return at(local, timing.BusinessHour)
		}
	}
}

func isWeekday(d time.Weekday) bool {
	return d != time.Saturday && d != time.Sunday
}

func at(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}
