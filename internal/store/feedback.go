package store

import (
	"context"

	"github.com/sagebot/sage/internal/core"
)

// FeedbackWeights returns the per-action-type weight multipliers for a
// user. Absent entries are simply missing from the map; callers default
// them to 1.0 so cold start never suppresses scoring.
func (db *DB) FeedbackWeights(ctx context.Context, userEmail string) (map[core.ActionType]float64, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT action_type, weight_multiplier FROM feedback_stats WHERE user_email = ?`, userEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[core.ActionType]float64)
	for rows.Next() {
		var action string
		var w float64
		if err := rows.Scan(&action, &w); err != nil {
			return nil, err
		}
		out[core.ActionType(action)] = w
	}
	return out, rows.Err()
}

// UpsertFeedbackWeight writes one weight multiplier.
func (db *DB) UpsertFeedbackWeight(ctx context.Context, userEmail string, action core.ActionType, weight float64) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO feedback_stats (user_email, action_type, weight_multiplier, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_email, action_type) DO UPDATE SET
			weight_multiplier = excluded.weight_multiplier,
			updated_at = CURRENT_TIMESTAMP`,
		userEmail, string(action), weight)
	return err
}
