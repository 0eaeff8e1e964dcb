package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ecoquest/internal/database"
)

// StateRepository stores namespaced client-state values with an optional expiry
type StateRepository struct {
	db  database.DBTX
	now func() time.Time
}

// NewStateRepository creates a new client-state repository
func NewStateRepository(db database.DBTX) *StateRepository {
	return &StateRepository{db: db, now: time.Now}
}

// Get returns the value stored under key. Missing and expired entries report found=false.
func (r *StateRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var expiresAt sql.NullTime
	query := `SELECT value, expires_at FROM client_state WHERE state_key = ?`
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read state %s: %w", key, err)
	}

	if expiresAt.Valid && !r.now().Before(expiresAt.Time) {
		return "", false, nil
	}
	return value, true, nil
}

// Set inserts or replaces the value under key. A zero expiresAt never expires.
func (r *StateRepository) Set(ctx context.Context, key, value string, expiresAt time.Time) error {
	var expires sql.NullTime
	if !expiresAt.IsZero() {
		expires = sql.NullTime{Time: expiresAt.UTC(), Valid: true}
	}

	query := r.db.GetDialect().UpsertStateQuery()
	if _, err := r.db.ExecContext(ctx, query, key, value, expires, r.now().UTC()); err != nil {
		return fmt.Errorf("failed to save state %s: %w", key, err)
	}
	return nil
}

// Delete removes the value under key; deleting a missing key is not an error
func (r *StateRepository) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM client_state WHERE state_key = ?`
	if _, err := r.db.ExecContext(ctx, query, key); err != nil {
		return fmt.Errorf("failed to delete state %s: %w", key, err)
	}
	return nil
}

// PurgeExpired deletes every expired entry and returns how many were removed
func (r *StateRepository) PurgeExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM client_state WHERE expires_at IS NOT NULL AND expires_at <= ?`
	result, err := r.db.ExecContext(ctx, query, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired state: %w", err)
	}
	return result.RowsAffected()
}
