package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/sagebot/sage/internal/core"
)

// UpsertUser creates or updates a user row. Profile is left untouched on
// update unless profileJSON is non-empty.
func (db *DB) UpsertUser(ctx context.Context, email, name string, tier core.Tier) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO users (email, name, tier) VALUES (?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET name = excluded.name, tier = excluded.tier, updated_at = CURRENT_TIMESTAMP`,
		email, name, string(tier))
	return err
}

// GetUser returns the user row, or an error when absent.
func (db *DB) GetUser(ctx context.Context, email string) (core.User, error) {
	var u core.User
	var name, tier sql.NullString
	err := db.QueryRowContext(ctx, `SELECT email, name, tier FROM users WHERE email = ?`, email).
		Scan(&u.Email, &name, &tier)
	if err != nil {
		return core.User{}, err
	}
	u.Name = name.String
	u.Tier = core.ParseTier(tier.String)
	return u, nil
}

// ListUsersByTier returns all users on the given tiers, for the batch
// entry point.
func (db *DB) ListUsersByTier(ctx context.Context, tiers ...core.Tier) ([]core.User, error) {
	if len(tiers) == 0 {
		return nil, nil
	}
	query := `SELECT email, name, tier FROM users WHERE tier IN (?` + repeat(",?", len(tiers)-1) + `)`
	args := make([]any, len(tiers))
	for i, t := range tiers {
		args[i] = string(t)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.User
	for rows.Next() {
		var u core.User
		var name, tier sql.NullString
		if err := rows.Scan(&u.Email, &name, &tier); err != nil {
			return nil, err
		}
		u.Name = name.String
		u.Tier = core.ParseTier(tier.String)
		out = append(out, u)
	}
	return out, rows.Err()
}

// GetProfile returns the user's parsed profile JSON. A missing or empty
// profile yields a zero Profile, not an error.
func (db *DB) GetProfile(ctx context.Context, email string) (core.Profile, error) {
	var raw sql.NullString
	err := db.QueryRowContext(ctx, `SELECT profile FROM users WHERE email = ?`, email).Scan(&raw)
	if err != nil {
		return core.Profile{}, err
	}
	var p core.Profile
	if raw.Valid && raw.String != "" {
		if err := json.Unmarshal([]byte(raw.String), &p); err != nil {
			return core.Profile{}, fmt.Errorf("parsing profile for %s: %w", email, err)
		}
	}
	return p, nil
}

// UpdateProfile writes the whole profile back in a single UPDATE, so the
// read-modify-write of a schedule list cannot interleave with another
// writer at the row level.
func (db *DB) UpdateProfile(ctx context.Context, email string, p core.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`UPDATE users SET profile = ?, updated_at = CURRENT_TIMESTAMP WHERE email = ?`,
		string(raw), email)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no such user: %s", email)
	}
	return nil
}

func repeat(s string, n int) string {
	out := ""
	for i := 0; i < n; i++ {
		out += s
	}
	return out
}
