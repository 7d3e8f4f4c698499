package store

import (
	"context"
	"time"
)

// InsertAgentAction records a schedule-affecting action tagged with the
// originating agent. The scheduled pipeline reads this to avoid colliding
// with the interactive loop, and vice versa.
func (db *DB) InsertAgentAction(ctx context.Context, userEmail, agentType, action string, at time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO agent_actions (user_email, agent_type, action, created_at) VALUES (?, ?, ?, ?)`,
		userEmail, agentType, action, at.UTC())
	return err
}

// HasRecentAgentAction reports whether the given agent acted on the user
// since the cutoff. Advisory: races resolve by last write observed.
func (db *DB) HasRecentAgentAction(ctx context.Context, userEmail, agentType string, since time.Time) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM agent_actions
		WHERE user_email = ? AND agent_type = ? AND created_at >= ?`,
		userEmail, agentType, since.UTC()).Scan(&n)
	return n > 0, err
}
