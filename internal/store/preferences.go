package store

import (
	"context"
	"database/sql"

	"github.com/sagebot/sage/internal/core"
)

// DefaultPreferences are applied when a user has no row yet. Cold start
// must never suppress the agent outright.
func DefaultPreferences() core.Preferences {
	return core.Preferences{
		Enabled:           true,
		MaxLevel:          core.LevelSoft,
		NotificationStyle: "gentle",
		QuietHoursStart:   22,
		QuietHoursEnd:     7,
		CooldownMinutes:   120,
		AutoActionOptIn:   false,
	}
}

// GetPreferences returns the user's agent preferences, or defaults when
// no row exists.
func (db *DB) GetPreferences(ctx context.Context, userEmail string) (core.Preferences, error) {
	var p core.Preferences
	var maxLevel int
	var style sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT enabled, max_intervention_level, notification_style,
			quiet_hours_start, quiet_hours_end, intervention_cooldown_minutes, auto_action_opt_in
		FROM agent_preferences WHERE user_email = ?`, userEmail).
		Scan(&p.Enabled, &maxLevel, &style, &p.QuietHoursStart, &p.QuietHoursEnd,
			&p.CooldownMinutes, &p.AutoActionOptIn)
	if err == sql.ErrNoRows {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return core.Preferences{}, err
	}
	p.MaxLevel = core.Level(maxLevel)
	p.NotificationStyle = style.String
	return p, nil
}

// UpsertPreferences writes the user's agent preferences.
func (db *DB) UpsertPreferences(ctx context.Context, userEmail string, p core.Preferences) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO agent_preferences (user_email, enabled, max_intervention_level, notification_style,
			quiet_hours_start, quiet_hours_end, intervention_cooldown_minutes, auto_action_opt_in)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_email) DO UPDATE SET
			enabled = excluded.enabled,
			max_intervention_level = excluded.max_intervention_level,
			notification_style = excluded.notification_style,
			quiet_hours_start = excluded.quiet_hours_start,
			quiet_hours_end = excluded.quiet_hours_end,
			intervention_cooldown_minutes = excluded.intervention_cooldown_minutes,
			auto_action_opt_in = excluded.auto_action_opt_in`,
		userEmail, p.Enabled, int(p.MaxLevel), p.NotificationStyle,
		p.QuietHoursStart, p.QuietHoursEnd, p.CooldownMinutes, p.AutoActionOptIn)
	return err
}
