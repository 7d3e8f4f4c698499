package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sagebot/sage/internal/core"
)

// InsertEvent appends one activity record. Events are immutable; nothing
// in the core ever updates or deletes them.
func (db *DB) InsertEvent(ctx context.Context, userEmail string, typ core.EventType, payload map[string]any, source string, occurredAt time.Time) error {
	raw := "{}"
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			raw = string(b)
		}
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO event_logs (user_email, event_type, payload, source, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		userEmail, string(typ), raw, source, occurredAt.UTC())
	return err
}

// EventsSince returns events for a user newer than since, newest first,
// optionally filtered by type.
func (db *DB) EventsSince(ctx context.Context, userEmail string, since time.Time, types ...core.EventType) ([]core.Event, error) {
	query := `SELECT id, user_email, event_type, payload, source, occurred_at FROM event_logs WHERE user_email = ? AND occurred_at >= ?`
	args := []any{userEmail, since.UTC()}
	if len(types) > 0 {
		query += ` AND event_type IN (?` + repeat(",?", len(types)-1) + `)`
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	query += ` ORDER BY occurred_at DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Event
	for rows.Next() {
		var e core.Event
		var typ string
		var payload, source sql.NullString
		if err := rows.Scan(&e.ID, &e.UserEmail, &typ, &payload, &source, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.Type = core.EventType(typ)
		e.Source = source.String
		if payload.Valid && payload.String != "" {
			_ = json.Unmarshal([]byte(payload.String), &e.Payload)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
