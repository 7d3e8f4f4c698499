// Package observer is the event-log surface of the pipeline: append-only
// activity writes plus the read heuristics the state updater consumes.
package observer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sagebot/sage/internal/core"
	"github.com/sagebot/sage/internal/store"
	"github.com/sagebot/sage/internal/timeutil"
)

// Observer logs and queries user activity events. Reads fail soft: they
// feed heuristics, not correctness-critical logic, so a storage error
// yields an empty list rather than propagating.
type Observer struct {
	db    *store.DB
	log   *zap.Logger
	clock timeutil.Clock
}

func New(db *store.DB, log *zap.Logger, clock timeutil.Clock) *Observer {
	return &Observer{db: db, log: log.Named("observer"), clock: clock}
}

// LogEvent appends an activity record. No-op for tiers without durable
// memory.
func (o *Observer) LogEvent(ctx context.Context, user core.User, typ core.EventType, payload map[string]any, source string) error {
	if !user.Tier.HasDurableMemory() {
		return nil
	}
	return o.db.InsertEvent(ctx, user.Email, typ, payload, source, o.clock.Now())
}

// RecentEvents returns events within the window, newest first, optionally
// filtered by type.
func (o *Observer) RecentEvents(ctx context.Context, userEmail string, windowHours int, types ...core.EventType) []core.Event {
	since := o.clock.Now().Add(-time.Duration(windowHours) * time.Hour)
	events, err := o.db.EventsSince(ctx, userEmail, since, types...)
	if err != nil {
		o.log.Warn("event query failed, returning empty", zap.String("user", userEmail), zap.Error(err))
		return nil
	}
	return events
}

// DetectConsecutiveSkips reports whether the user has missed or snoozed at
// least threshold schedules of the category within the last 7 days.
func (o *Observer) DetectConsecutiveSkips(ctx context.Context, userEmail, category string, threshold int) bool {
	events := o.RecentEvents(ctx, userEmail, 7*24, core.EventScheduleMissed, core.EventScheduleSnoozed)
	count := 0
	for _, e := range events {
		if c, ok := e.Payload["category"].(string); ok && c == category {
			count++
		}
	}
	return count >= threshold
}

// overbookedMinutes is the daily booked-time threshold (8 hours).
const overbookedMinutes = 8 * 60

// DetectOverbooking reports whether the total scheduled duration on the
// given date exceeds 8 hours.
func (o *Observer) DetectOverbooking(schedules []core.Schedule, date string) bool {
	total := 0
	for _, s := range schedules {
		if s.Date == date {
			total += s.DurationMinutes
		}
	}
	return total > overbookedMinutes
}
