// Package reminders delivers due reminders in batches. Each sweep selects up
// to a fixed number of unnotified reminders whose due time has passed, pushes
// them to the owner's chat, and marks the outcome.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mlemos/sagebot/internal/sagebot/channel"
	"github.com/mlemos/sagebot/internal/sagebot/observability"
	"github.com/mlemos/sagebot/internal/sagebot/store"
)

// DefaultBatchSize bounds how many reminders one sweep processes. Anything
// beyond the limit waits for the next run.
const DefaultBatchSize = 100

// ReminderStore is the slice of the record store a sweep needs. Satisfied by
// *store.Store.
type ReminderStore interface {
	DueReminders(ctx context.Context, now time.Time, limit int) ([]store.Reminder, error)
	MarkNotified(ctx context.Context, id, errorNote string) error
}

// Sweeper delivers due reminders over a chat channel.
type Sweeper struct {
	store     ReminderStore
	channel   channel.Channel
	batchSize int
	now       func() time.Time
}

// NewSweeper wires a Sweeper. batchSize <= 0 falls back to DefaultBatchSize;
// now may be nil (wall clock).
func NewSweeper(st ReminderStore, ch channel.Channel, batchSize int, now func() time.Time) *Sweeper {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if now == nil {
		now = time.Now
	}
	return &Sweeper{store: st, channel: ch, batchSize: batchSize, now: now}
}

// Sweep runs one delivery batch and returns how many reminders it attempted.
//
// Outcomes per reminder:
//   - delivered: marked notified with no error note.
//   - recipient unreachable (blocked the bot, left the chat): marked notified
//     with an explanatory note so the sweep never retries a dead recipient.
//   - transient failure: left untouched; the reminder is still due and the
//     next sweep picks it up again.
//
// Deliveries within a batch run concurrently; marking is per reminder, so a
// crash mid-batch at worst redelivers the not-yet-marked remainder.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	log := observability.WithTrace(ctx)

	due, err := s.store.DueReminders(ctx, s.now(), s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("select due reminders: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}
	log.Info("sweeping due reminders", "count", len(due))

	var wg sync.WaitGroup
	for _, reminder := range due {
		wg.Add(1)
		go func(r store.Reminder) {
			defer wg.Done()
			s.deliver(ctx, r)
		}(reminder)
	}
	wg.Wait()

	return len(due), nil
}

func (s *Sweeper) deliver(ctx context.Context, r store.Reminder) {
	log := observability.WithTrace(ctx)

	text := fmt.Sprintf("🔔 Reminder: %s", r.Message)
	err := s.channel.Send(ctx, r.OwnerID, text)
	switch {
	case err == nil:
		if markErr := s.store.MarkNotified(ctx, r.ID, ""); markErr != nil {
			log.Error("reminder delivered but not marked",
				"reminder", r.ID, "err", markErr)
			return
		}
		log.Info("reminder delivered", "reminder", r.ID, "owner", r.OwnerID)

	case errors.Is(err, channel.ErrBlocked):
		// Permanent: the recipient cannot be reached, ever. Mark it so the
		// sweep stops retrying, and keep the cause on the record.
		note := fmt.Sprintf("delivery failed: %s", err)
		if markErr := s.store.MarkNotified(ctx, r.ID, note); markErr != nil {
			log.Error("blocked reminder not marked",
				"reminder", r.ID, "err", markErr)
			return
		}
		log.Warn("reminder recipient unreachable; marked with error note",
			"reminder", r.ID, "owner", r.OwnerID)

	default:
		// Transient: leave the row alone and let the next sweep retry.
		log.Warn("reminder delivery failed; will retry next sweep",
			"reminder", r.ID, "owner", r.OwnerID, "err", err)
	}
}
