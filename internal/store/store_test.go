package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sagebot/sage/internal/core"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestUsers_UpsertGetAndProfile(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.UpsertUser(ctx, "a@test.com", "민수", core.TierPlus))

	u, err := db.GetUser(ctx, "a@test.com")
	require.NoError(t, err)
	require.Equal(t, "민수", u.Name)
	require.Equal(t, core.TierPlus, u.Tier)

	// Re-upsert changes the tier but not the profile.
	require.NoError(t, db.UpsertUser(ctx, "a@test.com", "민수", core.TierPro))
	u, err = db.GetUser(ctx, "a@test.com")
	require.NoError(t, err)
	require.Equal(t, core.TierPro, u.Tier)

	p, err := db.GetProfile(ctx, "a@test.com")
	require.NoError(t, err)
	require.Empty(t, p.CustomGoals)

	p.CustomGoals = []core.Schedule{{ID: "s1", Title: "알고리즘 공부", Date: "2026-08-30", StartTime: "10:00", DurationMinutes: 60}}
	require.NoError(t, db.UpdateProfile(ctx, "a@test.com", p))

	got, err := db.GetProfile(ctx, "a@test.com")
	require.NoError(t, err)
	require.Len(t, got.CustomGoals, 1)
	require.Equal(t, "알고리즘 공부", got.CustomGoals[0].Title)

	require.Error(t, db.UpdateProfile(ctx, "nobody@test.com", p))
}

func TestUsers_ListByTier(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.UpsertUser(ctx, "free@test.com", "", core.TierFree))
	require.NoError(t, db.UpsertUser(ctx, "plus@test.com", "", core.TierPlus))
	require.NoError(t, db.UpsertUser(ctx, "pro@test.com", "", core.TierPro))

	users, err := db.ListUsersByTier(ctx, core.TierPlus, core.TierPro)
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		require.NotEqual(t, core.TierFree, u.Tier)
	}
}

func TestStates_NullScoresRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.UpsertUser(ctx, "a@test.com", "", core.TierFree))

	s, err := db.GetState(ctx, "a@test.com")
	require.NoError(t, err)
	require.Nil(t, s)

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	require.NoError(t, db.UpsertState(ctx, core.UserState{
		UserEmail:      "a@test.com",
		EnergyLevel:    70,
		StressLevel:    20,
		StateUpdatedAt: now,
	}))

	s, err = db.GetState(ctx, "a@test.com")
	require.NoError(t, err)
	require.NotNil(t, s)
	require.Equal(t, 70, s.EnergyLevel)
	// Unknown scores stay unknown, never become zero.
	require.Nil(t, s.FocusWindowScore)
	require.Nil(t, s.RoutineDeviation)
	require.Nil(t, s.DeadlinePressure)
	require.Nil(t, s.LastInterventionAt)

	focus := 85
	require.NoError(t, db.UpsertState(ctx, core.UserState{
		UserEmail:        "a@test.com",
		EnergyLevel:      65,
		StressLevel:      30,
		FocusWindowScore: &focus,
		StateUpdatedAt:   now.Add(time.Hour),
	}))
	require.NoError(t, db.TouchLastIntervention(ctx, "a@test.com", now.Add(2*time.Hour)))

	s, err = db.GetState(ctx, "a@test.com")
	require.NoError(t, err)
	require.NotNil(t, s.FocusWindowScore)
	require.Equal(t, 85, *s.FocusWindowScore)
	require.NotNil(t, s.LastInterventionAt)
}

func TestInterventions_FeedbackCounts(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.UpsertUser(ctx, "a@test.com", "", core.TierPlus))

	now := time.Now().UTC()
	insert := func(id string, action core.ActionType) {
		require.NoError(t, db.InsertIntervention(ctx, core.InterventionLog{
			ID: id, UserEmail: "a@test.com", Level: core.LevelSoft,
			ReasonCodes: []string{core.ReasonHighStress}, ActionType: action, IntervenedAt: now,
		}))
	}
	insert("l1", core.ActionNudge)
	insert("l2", core.ActionNudge)
	insert("l3", core.ActionNudge)
	insert("l4", core.ActionMoveSchedule)

	require.NoError(t, db.UpdateInterventionFeedback(ctx, "l1", "helpful", now))
	require.NoError(t, db.UpdateInterventionFeedback(ctx, "l2", "helpful", now))
	require.NoError(t, db.UpdateInterventionFeedback(ctx, "l3", "not_helpful", now))
	require.NoError(t, db.UpdateInterventionFeedback(ctx, "l4", "rolled_back", now))

	counts, err := db.FeedbackCounts(ctx, "a@test.com")
	require.NoError(t, err)
	require.Equal(t, [2]int{2, 1}, counts[core.ActionNudge])
	require.Equal(t, [2]int{0, 1}, counts[core.ActionMoveSchedule])

	got, err := db.GetIntervention(ctx, "l1")
	require.NoError(t, err)
	require.Equal(t, "helpful", got.UserFeedback)
	require.NotNil(t, got.FeedbackAt)
	require.Equal(t, []string{core.ReasonHighStress}, got.ReasonCodes)

	missing, err := db.GetIntervention(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestPreferences_DefaultsAndUpsert(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.UpsertUser(ctx, "a@test.com", "", core.TierPlus))

	p, err := db.GetPreferences(ctx, "a@test.com")
	require.NoError(t, err)
	require.True(t, p.Enabled)
	require.Equal(t, core.LevelSoft, p.MaxLevel)
	require.Equal(t, 22, p.QuietHoursStart)
	require.Equal(t, 7, p.QuietHoursEnd)
	require.Equal(t, 120, p.CooldownMinutes)
	require.False(t, p.AutoActionOptIn)

	p.MaxLevel = core.LevelAuto
	p.AutoActionOptIn = true
	p.CooldownMinutes = 30
	require.NoError(t, db.UpsertPreferences(ctx, "a@test.com", p))

	got, err := db.GetPreferences(ctx, "a@test.com")
	require.NoError(t, err)
	require.Equal(t, core.LevelAuto, got.MaxLevel)
	require.True(t, got.AutoActionOptIn)
	require.Equal(t, 30, got.CooldownMinutes)
}

func TestEvents_TypeFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.UpsertUser(ctx, "a@test.com", "", core.TierPlus))

	base := time.Date(2026, 8, 30, 8, 0, 0, 0, time.UTC)
	require.NoError(t, db.InsertEvent(ctx, "a@test.com", core.EventScheduleMissed, map[string]any{"category": "exercise"}, "dashboard", base))
	require.NoError(t, db.InsertEvent(ctx, "a@test.com", core.EventScheduleCompleted, nil, "dashboard", base.Add(time.Hour)))
	require.NoError(t, db.InsertEvent(ctx, "a@test.com", core.EventScheduleMissed, map[string]any{"category": "sleep"}, "dashboard", base.Add(2*time.Hour)))

	all, err := db.EventsSince(ctx, "a@test.com", base.Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, core.EventScheduleMissed, all[0].Type) // newest first
	require.Equal(t, "sleep", all[0].Payload["category"])

	missed, err := db.EventsSince(ctx, "a@test.com", base.Add(-time.Minute), core.EventScheduleMissed)
	require.NoError(t, err)
	require.Len(t, missed, 2)
}

func TestNotificationsAndActions(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.UpsertUser(ctx, "a@test.com", "", core.TierPlus))

	now := time.Now().UTC()
	id, err := db.InsertNotification(ctx, "a@test.com", "nudge", "잠깐 쉬어가도 괜찮아요", "body", now)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	recent, err := db.HasRecentNotification(ctx, "a@test.com", "nudge", now.Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, recent)

	recent, err = db.HasRecentNotification(ctx, "a@test.com", "briefing", now.Add(-time.Hour))
	require.NoError(t, err)
	require.False(t, recent)

	n, err := db.CountNotifications(ctx, "a@test.com", "nudge")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	require.NoError(t, db.InsertAgentAction(ctx, "a@test.com", "react", "add_schedule", now))
	acted, err := db.HasRecentAgentAction(ctx, "a@test.com", "react", now.Add(-time.Minute))
	require.NoError(t, err)
	require.True(t, acted)
	acted, err = db.HasRecentAgentAction(ctx, "a@test.com", "scheduled", now.Add(-time.Minute))
	require.NoError(t, err)
	require.False(t, acted)
}

func TestAIUsage_MonthlyCounter(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.UpsertUser(ctx, "a@test.com", "", core.TierPlus))

	n, err := db.AIUsage(ctx, "a@test.com", "2026-08")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	require.NoError(t, db.IncrementAIUsage(ctx, "a@test.com", "2026-08"))
	require.NoError(t, db.IncrementAIUsage(ctx, "a@test.com", "2026-08"))
	require.NoError(t, db.IncrementAIUsage(ctx, "a@test.com", "2026-09"))

	n, err = db.AIUsage(ctx, "a@test.com", "2026-08")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestFeedbackWeights_RoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.UpsertUser(ctx, "a@test.com", "", core.TierPlus))

	w, err := db.FeedbackWeights(ctx, "a@test.com")
	require.NoError(t, err)
	require.Empty(t, w)

	require.NoError(t, db.UpsertFeedbackWeight(ctx, "a@test.com", core.ActionNudge, 1.2))
	require.NoError(t, db.UpsertFeedbackWeight(ctx, "a@test.com", core.ActionNudge, 0.8))

	w, err = db.FeedbackWeights(ctx, "a@test.com")
	require.NoError(t, err)
	require.InDelta(t, 0.8, w[core.ActionNudge], 1e-9)
}
