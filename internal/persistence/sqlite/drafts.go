package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetDraft returns the cached value for key.
func (db *DB) GetDraft(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM drafts WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read draft: %w", err)
	}
	return value, true, nil
}

// PutDraft stores value under key, replacing any previous value.
func (db *DB) PutDraft(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO drafts (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, db.timestamp())
	if err != nil {
		return fmt.Errorf("failed to write draft: %w", err)
	}
	return nil
}

// DeleteDraft removes key. Deleting a missing key is not an error.
func (db *DB) DeleteDraft(ctx context.Context, key string) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM drafts WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
