package store

import "context"

// IncrementAIUsage counts one model call against the user's monthly budget.
func (db *DB) IncrementAIUsage(ctx context.Context, userEmail, month string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO ai_usage (user_email, month, calls) VALUES (?, ?, 1)
		ON CONFLICT(user_email, month) DO UPDATE SET calls = calls + 1`,
		userEmail, month)
	return err
}

// AIUsage returns how many model calls the user has consumed this month.
func (db *DB) AIUsage(ctx context.Context, userEmail, month string) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(calls), 0) FROM ai_usage WHERE user_email = ? AND month = ?`,
		userEmail, month).Scan(&n)
	return n, err
}
