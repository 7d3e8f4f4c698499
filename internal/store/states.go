package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/sagebot/sage/internal/core"
)

// UpsertState writes the singleton per-user state row. Nil score pointers
// store NULL, which readers must treat as "unknown", never zero.
func (db *DB) UpsertState(ctx context.Context, s core.UserState) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO user_states (user_email, energy_level, stress_level, focus_window_score,
			routine_deviation_score, deadline_pressure_score, last_active_at, state_updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_email) DO UPDATE SET
			energy_level = excluded.energy_level,
			stress_level = excluded.stress_level,
			focus_window_score = excluded.focus_window_score,
			routine_deviation_score = excluded.routine_deviation_score,
			deadline_pressure_score = excluded.deadline_pressure_score,
			last_active_at = excluded.last_active_at,
			state_updated_at = excluded.state_updated_at`,
		s.UserEmail, s.EnergyLevel, s.StressLevel,
		nullableInt(s.FocusWindowScore), nullableInt(s.RoutineDeviation), nullableInt(s.DeadlinePressure),
		nullableTime(s.LastActiveAt), s.StateUpdatedAt.UTC())
	return err
}

// GetState returns the user's state row, or (nil, nil) when none exists yet.
func (db *DB) GetState(ctx context.Context, userEmail string) (*core.UserState, error) {
	var s core.UserState
	var focus, routine, deadline sql.NullInt64
	var lastActive, lastIntervention, updated sql.NullTime
	err := db.QueryRowContext(ctx, `
		SELECT user_email, energy_level, stress_level, focus_window_score,
			routine_deviation_score, deadline_pressure_score,
			last_active_at, last_intervention_at, state_updated_at
		FROM user_states WHERE user_email = ?`, userEmail).
		Scan(&s.UserEmail, &s.EnergyLevel, &s.StressLevel, &focus, &routine, &deadline,
			&lastActive, &lastIntervention, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.FocusWindowScore = intPtr(focus)
	s.RoutineDeviation = intPtr(routine)
	s.DeadlinePressure = intPtr(deadline)
	if lastActive.Valid {
		s.LastActiveAt = &lastActive.Time
	}
	if lastIntervention.Valid {
		s.LastInterventionAt = &lastIntervention.Time
	}
	if updated.Valid {
		s.StateUpdatedAt = updated.Time
	}
	return &s, nil
}

// TouchLastIntervention records when the scheduled pipeline last acted on
// the user; the policy engine's cooldown check reads it.
func (db *DB) TouchLastIntervention(ctx context.Context, userEmail string, at time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE user_states SET last_intervention_at = ? WHERE user_email = ?`,
		at.UTC(), userEmail)
	return err
}

func nullableInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullableTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}
