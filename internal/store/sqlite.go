package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps *sql.DB for sage storage. Schema is owned by the app.
type DB struct {
	*sql.DB
}

// Open opens the SQLite database at path and applies the schema. Creates
// the file if missing.
func Open(ctx context.Context, path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}

	// Migration: confirmation_requests.message added after first release.
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pragma_table_info('confirmation_requests') WHERE name='message'").Scan(&count); err == nil && count == 0 {
		if _, err := db.ExecContext(ctx, "ALTER TABLE confirmation_requests ADD COLUMN message TEXT"); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating schema (confirmation_requests.message): %w", err)
		}
	}
	// Migration: agent_actions gained agent_type when the interactive loop
	// and the scheduled pipeline started sharing the table.
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pragma_table_info('agent_actions') WHERE name='agent_type'").Scan(&count); err == nil && count == 0 {
		if _, err := db.ExecContext(ctx, "ALTER TABLE agent_actions ADD COLUMN agent_type TEXT NOT NULL DEFAULT 'react'"); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrating schema (agent_actions.agent_type): %w", err)
		}
	}

	return &DB{db}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.DB.Close()
}
