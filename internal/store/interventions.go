package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sagebot/sage/internal/core"
)

// InsertIntervention persists one acted-upon decision.
func (db *DB) InsertIntervention(ctx context.Context, l core.InterventionLog) error {
	reasons, _ := json.Marshal(l.ReasonCodes)
	payload := "{}"
	if l.ActionPayload != nil {
		if b, err := json.Marshal(l.ActionPayload); err == nil {
			payload = string(b)
		}
	}
	_, err := db.ExecContext(ctx, `
		INSERT INTO intervention_logs (id, user_email, intervention_level, reason_codes, action_type, action_payload, user_feedback, intervened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.UserEmail, int(l.Level), string(reasons), string(l.ActionType), payload,
		nullableString(l.UserFeedback), l.IntervenedAt.UTC())
	return err
}

// GetIntervention loads one log row by id.
func (db *DB) GetIntervention(ctx context.Context, id string) (*core.InterventionLog, error) {
	var l core.InterventionLog
	var level int
	var reasons, payload, feedback sql.NullString
	var feedbackAt sql.NullTime
	err := db.QueryRowContext(ctx, `
		SELECT id, user_email, intervention_level, reason_codes, action_type, action_payload, user_feedback, intervened_at, feedback_at
		FROM intervention_logs WHERE id = ?`, id).
		Scan(&l.ID, &l.UserEmail, &level, &reasons, (*string)(&l.ActionType), &payload, &feedback, &l.IntervenedAt, &feedbackAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.Level = core.Level(level)
	if reasons.Valid {
		_ = json.Unmarshal([]byte(reasons.String), &l.ReasonCodes)
	}
	if payload.Valid && payload.String != "" {
		_ = json.Unmarshal([]byte(payload.String), &l.ActionPayload)
	}
	l.UserFeedback = feedback.String
	if feedbackAt.Valid {
		l.FeedbackAt = &feedbackAt.Time
	}
	return &l, nil
}

// UpdateInterventionFeedback sets user_feedback and feedback_at. These are
// the only fields ever updated after insert.
func (db *DB) UpdateInterventionFeedback(ctx context.Context, id, feedback string, at time.Time) error {
	_, err := db.ExecContext(ctx,
		`UPDATE intervention_logs SET user_feedback = ?, feedback_at = ? WHERE id = ?`,
		feedback, at.UTC(), id)
	return err
}

// FeedbackCounts returns per-action-type positive/negative feedback tallies
// for the user, feeding the feedback weight recompute.
func (db *DB) FeedbackCounts(ctx context.Context, userEmail string) (map[core.ActionType][2]int, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT action_type, user_feedback, COUNT(*) FROM intervention_logs
		WHERE user_email = ? AND user_feedback IN ('helpful', 'not_helpful', 'rolled_back')
		GROUP BY action_type, user_feedback`, userEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[core.ActionType][2]int)
	for rows.Next() {
		var action, feedback string
		var n int
		if err := rows.Scan(&action, &feedback, &n); err != nil {
			return nil, err
		}
		c := out[core.ActionType(action)]
		if feedback == "helpful" {
			c[0] += n
		} else {
			c[1] += n
		}
		out[core.ActionType(action)] = c
	}
	return out, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
