package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sagebot/sage/internal/core"
)

// InsertNotification writes one UI-facing notification and returns its id.
func (db *DB) InsertNotification(ctx context.Context, userEmail, typ, title, body string, at time.Time) (string, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO agent_notifications (id, user_email, type, title, body, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, userEmail, typ, title, body, at.UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

// HasRecentNotification reports whether an undismissed notification of the
// same (user, type) exists within the window. The check is advisory, not
// transactional: a race duplicates a soft notification at worst.
func (db *DB) HasRecentNotification(ctx context.Context, userEmail, typ string, since time.Time) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM agent_notifications
		WHERE user_email = ? AND type = ? AND dismissed = 0 AND created_at >= ?`,
		userEmail, typ, since.UTC()).Scan(&n)
	return n > 0, err
}

// CountNotifications returns how many notifications of a type exist for a
// user. Test and status helper.
func (db *DB) CountNotifications(ctx context.Context, userEmail, typ string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM agent_notifications WHERE user_email = ? AND type = ?`,
		userEmail, typ).Scan(&n)
	return n, err
}

// InsertConfirmationRequest writes a pending request tied to a log entry.
// The request is resolved by the user, not by this process.
func (db *DB) InsertConfirmationRequest(ctx context.Context, userEmail, logID string, actionType core.ActionType, payloadJSON, message string, at time.Time) (string, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx, `
		INSERT INTO confirmation_requests (id, user_email, intervention_log_id, action_type, action_payload, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, userEmail, logID, string(actionType), payloadJSON, message, at.UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

// InsertResource stores a silently prepared artifact (briefing checklist,
// resource list, habit insight).
func (db *DB) InsertResource(ctx context.Context, userEmail, kind, title, content string, at time.Time) (string, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO resources (id, user_email, kind, title, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, userEmail, kind, title, content, at.UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}
