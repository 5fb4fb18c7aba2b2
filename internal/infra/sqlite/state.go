package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ─── Local State Repository ─────────────────────────────────────────────────
// Implements domain.LocalStore. Every write bumps the row version so
// callers can detect concurrent modification.

// Get returns the value and version stored under key.
// A missing key yields ("", 0, nil).
func (d *DB) Get(ctx context.Context, key string) (string, int64, error) {
	var (
		value   string
		version int64
	)
	err := d.db.QueryRowContext(ctx,
		`SELECT value, version FROM local_state WHERE key = ?`, key,
	).Scan(&value, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", 0, nil
	}
	if err != nil {
		return "", 0, fmt.Errorf("get %q: %w", key, err)
	}
	return value, version, nil
}

// Set unconditionally writes value under key.
func (d *DB) Set(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO local_state (key, value, version, updated_at) VALUES (?, ?, 1, ?)
		 ON CONFLICT(key) DO UPDATE SET
			value=excluded.value,
			version=local_state.version + 1,
			updated_at=excluded.updated_at`,
		key, value, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// CompareAndSwap writes value iff key is still at version.
// version 0 means "key must not exist yet".
func (d *DB) CompareAndSwap(ctx context.Context, key, value string, version int64) (bool, error) {
	var (
		res sql.Result
		err error
	)
	now := time.Now().Unix()
	if version == 0 {
		res, err = d.db.ExecContext(ctx,
			`INSERT INTO local_state (key, value, version, updated_at) VALUES (?, ?, 1, ?)
			 ON CONFLICT(key) DO NOTHING`,
			key, value, now,
		)
	} else {
		res, err = d.db.ExecContext(ctx,
			`UPDATE local_state SET value = ?, version = version + 1, updated_at = ?
			 WHERE key = ? AND version = ?`,
			value, now, key, version,
		)
	}
	if err != nil {
		return false, fmt.Errorf("cas %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cas %q: %w", key, err)
	}
	return n == 1, nil
}

// Remove deletes key. Removing a missing key is not an error.
func (d *DB) Remove(ctx context.Context, key string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM local_state WHERE key = ?`, key); err != nil {
		return fmt.Errorf("remove %q: %w", key, err)
	}
	return nil
}
