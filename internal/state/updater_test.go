package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sagebot/sage/internal/core"
	"github.com/sagebot/sage/internal/observer"
	"github.com/sagebot/sage/internal/store"
	"github.com/sagebot/sage/internal/timeutil"
)

// 05:00 UTC on 2026-08-30 is 14:00 KST the same day.
var testNow = time.Date(2026, 8, 30, 5, 0, 0, 0, time.UTC)

func newTestUpdater(t *testing.T) (*Updater, *store.DB) {
	t.Helper()
	db, err := store.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	clock := timeutil.FixedClock{T: testNow}
	obs := observer.New(db, zap.NewNop(), clock)
	return NewUpdater(db, obs, zap.NewNop(), clock), db
}

func seedUser(t *testing.T, db *store.DB, tier core.Tier, profile core.Profile) core.User {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, db.UpsertUser(ctx, "u@test.com", "", tier))
	require.NoError(t, db.UpdateProfile(ctx, "u@test.com", profile))
	return core.User{Email: "u@test.com", Tier: tier}
}

func TestUpdateState_FreeTierOmitsGatedScores(t *testing.T) {
	u, db := newTestUpdater(t)
	user := seedUser(t, db, core.TierFree, core.Profile{})

	s, err := u.UpdateState(context.Background(), user)
	require.NoError(t, err)
	require.Equal(t, 70, s.EnergyLevel) // baseline, no events
	require.Nil(t, s.FocusWindowScore)
	require.Nil(t, s.RoutineDeviation)
	require.Nil(t, s.DeadlinePressure)

	stored, err := db.GetState(context.Background(), user.Email)
	require.NoError(t, err)
	require.Nil(t, stored.FocusWindowScore)
}

func TestCalcEnergy_ClampsToBounds(t *testing.T) {
	u, db := newTestUpdater(t)
	user := seedUser(t, db, core.TierPlus, core.Profile{})
	ctx := context.Background()

	// 8 misses pull 70 - 80 below zero; must clamp to 0.
	for i := 0; i < 8; i++ {
		require.NoError(t, db.InsertEvent(ctx, user.Email, core.EventScheduleMissed, nil, "dashboard", testNow.Add(-time.Hour)))
	}
	require.Equal(t, 0, u.calcEnergy(ctx, user.Email))
}

func TestCalcEnergy_CompletionsRaise(t *testing.T) {
	u, db := newTestUpdater(t)
	user := seedUser(t, db, core.TierPlus, core.Profile{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, db.InsertEvent(ctx, user.Email, core.EventScheduleCompleted, nil, "dashboard", testNow.Add(-time.Hour)))
	}
	require.Equal(t, 85, u.calcEnergy(ctx, user.Email))

	// Events outside the 24h window do not count.
	require.NoError(t, db.InsertEvent(ctx, user.Email, core.EventScheduleMissed, nil, "dashboard", testNow.Add(-25*time.Hour)))
	require.Equal(t, 85, u.calcEnergy(ctx, user.Email))
}

func TestCalcStress_DensityMissesOverdue(t *testing.T) {
	u, db := newTestUpdater(t)
	today := timeutil.Today(timeutil.FixedClock{T: testNow})
	profile := core.Profile{
		// 8 booked hours of 16 -> density 20.
		CustomGoals: []core.Schedule{
			{ID: "s1", Date: today, StartTime: "09:00", DurationMinutes: 240},
			{ID: "s2", Date: today, StartTime: "14:00", DurationMinutes: 240},
		},
		LongTermGoals: core.LongTermGoals{
			Weekly: []core.LongTermGoal{{ID: "g1", DueDate: "2026-08-20"}}, // overdue -> 15
		},
	}
	user := seedUser(t, db, core.TierPlus, profile)
	ctx := context.Background()

	// Two misses within 48h -> 20.
	require.NoError(t, db.InsertEvent(ctx, user.Email, core.EventScheduleMissed, nil, "dashboard", testNow.Add(-3*time.Hour)))
	require.NoError(t, db.InsertEvent(ctx, user.Email, core.EventScheduleMissed, nil, "dashboard", testNow.Add(-40*time.Hour)))

	require.Equal(t, 55, u.calcStress(ctx, user.Email, profile, today))
}

func TestCalcStress_ComponentCaps(t *testing.T) {
	u, db := newTestUpdater(t)
	today := timeutil.Today(timeutil.FixedClock{T: testNow})
	profile := core.Profile{
		// 20 booked hours caps density at 40.
		CustomGoals: []core.Schedule{{ID: "s1", Date: today, StartTime: "00:00", DurationMinutes: 1200}},
		LongTermGoals: core.LongTermGoals{
			Weekly: []core.LongTermGoal{
				{ID: "g1", DueDate: "2026-08-01"},
				{ID: "g2", DueDate: "2026-08-02"},
				{ID: "g3", DueDate: "2026-08-03"}, // 3 overdue cap at 30
			},
		},
	}
	user := seedUser(t, db, core.TierPlus, profile)
	ctx := context.Background()

	// 5 misses cap at 30.
	for i := 0; i < 5; i++ {
		require.NoError(t, db.InsertEvent(ctx, user.Email, core.EventScheduleMissed, nil, "dashboard", testNow.Add(-time.Hour)))
	}
	require.Equal(t, 100, u.calcStress(ctx, user.Email, profile, today))
}

func TestCalcFocusWindow_EmptyDayIsMaximal(t *testing.T) {
	u, db := newTestUpdater(t)
	seedUser(t, db, core.TierPlus, core.Profile{})
	today := timeutil.Today(timeutil.FixedClock{T: testNow})

	// A schedule on another day does not count as today's.
	schedules := []core.Schedule{{ID: "s1", Date: "2026-09-01", StartTime: "10:00", DurationMinutes: 60}}
	require.Equal(t, 90, u.calcFocusWindow(context.Background(), "u@test.com", schedules, today))
}

func TestCalcFocusWindow_GapsAndFragmentation(t *testing.T) {
	u, db := newTestUpdater(t)
	user := seedUser(t, db, core.TierPlus, core.Profile{})
	ctx := context.Background()
	today := timeutil.Today(timeutil.FixedClock{T: testNow})

	// 09:00+60 -> 10:00, next at 12:30: 150min gap -> gapScore 50.
	// No completion history -> timeBonus 10. No short gaps.
	schedules := []core.Schedule{
		{ID: "s1", Date: today, StartTime: "09:00", DurationMinutes: 60},
		{ID: "s2", Date: today, StartTime: "12:30", DurationMinutes: 60},
	}
	require.Equal(t, 60, u.calcFocusWindow(ctx, user.Email, schedules, today))

	// Back-to-back with 10-minute slivers: gapScore 5, two short gaps -> -14.
	tight := []core.Schedule{
		{ID: "s1", Date: today, StartTime: "09:00", DurationMinutes: 60},
		{ID: "s2", Date: today, StartTime: "10:10", DurationMinutes: 60},
		{ID: "s3", Date: today, StartTime: "11:20", DurationMinutes: 60},
	}
	require.Equal(t, 1, u.calcFocusWindow(ctx, user.Email, tight, today))
}

func TestTimeBonus_TopCompletionHour(t *testing.T) {
	u, db := newTestUpdater(t)
	user := seedUser(t, db, core.TierPlus, core.Profile{})
	ctx := context.Background()

	// Clock reads 14:00 KST. Stack completions at 14:00 KST on prior days.
	for i := 1; i <= 4; i++ {
		require.NoError(t, db.InsertEvent(ctx, user.Email, core.EventScheduleCompleted, nil, "dashboard", testNow.Add(-time.Duration(i)*24*time.Hour)))
	}
	require.Equal(t, 30, u.timeBonus(ctx, user.Email))
}

func TestCalcRoutineDeviation_SkipCategories(t *testing.T) {
	u, db := newTestUpdater(t)
	user := seedUser(t, db, core.TierPlus, core.Profile{})
	ctx := context.Background()

	require.Equal(t, 0, u.calcRoutineDeviation(ctx, user.Email))

	for i := 0; i < 3; i++ {
		require.NoError(t, db.InsertEvent(ctx, user.Email, core.EventScheduleMissed,
			map[string]any{"category": "exercise"}, "dashboard", testNow.Add(-time.Duration(i+1)*24*time.Hour)))
	}
	require.Equal(t, 40, u.calcRoutineDeviation(ctx, user.Email))

	for i := 0; i < 3; i++ {
		require.NoError(t, db.InsertEvent(ctx, user.Email, core.EventScheduleSnoozed,
			map[string]any{"category": "sleep"}, "dashboard", testNow.Add(-time.Duration(i+1)*24*time.Hour)))
	}
	require.Equal(t, 80, u.calcRoutineDeviation(ctx, user.Email))
}

func TestCalcDeadlinePressure_ProximityAndKeywords(t *testing.T) {
	u, db := newTestUpdater(t)
	seedUser(t, db, core.TierPlus, core.Profile{})
	today := timeutil.Today(timeutil.FixedClock{T: testNow})
	tomorrow := timeutil.Tomorrow(timeutil.FixedClock{T: testNow})

	profile := core.Profile{
		CustomGoals: []core.Schedule{
			{ID: "s1", Title: "기말 시험", Date: today},               // keyword, today -> 15
			{ID: "s2", Title: "standup", Date: tomorrow},           // not important
			{ID: "s3", Title: "project deadline", Date: tomorrow},  // keyword, tomorrow -> 8
			{ID: "s4", Title: "리뷰", Date: today, Important: true}, // flag, today -> 15
		},
		LongTermGoals: core.LongTermGoals{
			Weekly: []core.LongTermGoal{
				{ID: "g1", DueDate: today, Progress: 80},            // due today -> 25
				{ID: "g2", DueDate: "2026-09-02", Progress: 20},     // 3 days, lagging -> 15+10
				{ID: "g3", DueDate: today, Completed: true},         // ignored
			},
		},
	}
	require.Equal(t, 88, u.calcDeadlinePressure(profile, today))
}

func TestCalcDeadlinePressure_UnparseableDueDate(t *testing.T) {
	u, db := newTestUpdater(t)
	seedUser(t, db, core.TierPlus, core.Profile{})
	today := timeutil.Today(timeutil.FixedClock{T: testNow})

	profile := core.Profile{
		LongTermGoals: core.LongTermGoals{
			Weekly: []core.LongTermGoal{{ID: "g1", DueDate: "someday"}},
		},
	}
	require.Equal(t, 0, u.calcDeadlinePressure(profile, today))
}
