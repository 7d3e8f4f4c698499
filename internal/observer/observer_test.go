package observer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sagebot/sage/internal/core"
	"github.com/sagebot/sage/internal/store"
	"github.com/sagebot/sage/internal/timeutil"
)

var testNow = time.Date(2026, 8, 30, 5, 0, 0, 0, time.UTC)

func newTestObserver(t *testing.T) (*Observer, *store.DB) {
	t.Helper()
	db, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, zap.NewNop(), timeutil.FixedClock{T: testNow}), db
}

func TestLogEvent_FreeTierIsNoOp(t *testing.T) {
	o, db := newTestObserver(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertUser(ctx, "u@test.com", "", core.TierFree))

	require.NoError(t, o.LogEvent(ctx, core.User{Email: "u@test.com", Tier: core.TierFree}, core.EventScheduleCompleted, nil, "dashboard"))
	require.Empty(t, o.RecentEvents(ctx, "u@test.com", 24))

	require.NoError(t, o.LogEvent(ctx, core.User{Email: "u@test.com", Tier: core.TierPlus}, core.EventScheduleCompleted, nil, "dashboard"))
	require.Len(t, o.RecentEvents(ctx, "u@test.com", 24), 1)
}

func TestDetectConsecutiveSkips(t *testing.T) {
	o, db := newTestObserver(t)
	ctx := context.Background()
	require.NoError(t, db.UpsertUser(ctx, "u@test.com", "", core.TierPlus))

	// Two misses and a snooze of the category count together.
	require.NoError(t, db.InsertEvent(ctx, "u@test.com", core.EventScheduleMissed, map[string]any{"category": "exercise"}, "dashboard", testNow.Add(-24*time.Hour)))
	require.NoError(t, db.InsertEvent(ctx, "u@test.com", core.EventScheduleMissed, map[string]any{"category": "exercise"}, "dashboard", testNow.Add(-48*time.Hour)))
	require.False(t, o.DetectConsecutiveSkips(ctx, "u@test.com", "exercise", 3))

	require.NoError(t, db.InsertEvent(ctx, "u@test.com", core.EventScheduleSnoozed, map[string]any{"category": "exercise"}, "dashboard", testNow.Add(-72*time.Hour)))
	require.True(t, o.DetectConsecutiveSkips(ctx, "u@test.com", "exercise", 3))

	// Other categories and completed events do not count.
	require.False(t, o.DetectConsecutiveSkips(ctx, "u@test.com", "sleep", 3))

	// Events older than 7 days fall out of the window.
	require.NoError(t, db.InsertEvent(ctx, "u@test.com", core.EventScheduleMissed, map[string]any{"category": "sleep"}, "dashboard", testNow.Add(-8*24*time.Hour)))
	require.False(t, o.DetectConsecutiveSkips(ctx, "u@test.com", "sleep", 1))
}

func TestDetectOverbooking(t *testing.T) {
	o, _ := newTestObserver(t)

	schedules := []core.Schedule{
		{ID: "s1", Date: "2026-08-30", DurationMinutes: 240},
		{ID: "s2", Date: "2026-08-30", DurationMinutes: 240},
		{ID: "s3", Date: "2026-08-31", DurationMinutes: 600},
	}
	// Exactly 8 hours is not overbooked; the threshold is strict.
	require.False(t, o.DetectOverbooking(schedules, "2026-08-30"))
	require.True(t, o.DetectOverbooking(schedules, "2026-08-31"))
	require.False(t, o.DetectOverbooking(schedules, "2026-09-01"))
}
