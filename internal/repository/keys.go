// Package repository provides persistence implementations for the master-key
// vault using a PostgreSQL database.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// PostgresKeyRepository implements master-key persistence against a
// PostgreSQL database.
type PostgresKeyRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresKeyRepository creates a new PostgresKeyRepository with the given
// database connection. db must be a valid *sql.DB connected to a PostgreSQL
// instance.
func NewPostgresKeyRepository(db *sql.DB) *PostgresKeyRepository {
	return &PostgresKeyRepository{DB: db}
}

// Get returns the stored key bytes for the owner, or nil if no key exists.
func (r *PostgresKeyRepository) Get(ctx context.Context, ownerID string) ([]byte, error) {
	var key []byte
	err := r.DB.QueryRowContext(
		ctx,
		`SELECT key FROM master_keys WHERE owner_id = $1`,
		ownerID,
	).Scan(&key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Get failed: %w", err)
	}
	return key, nil
}

// Create inserts a key for the owner if none exists. The ON CONFLICT DO
// NOTHING clause makes the insert atomic under concurrent first access;
// the returned bool reports whether this call inserted the row.
func (r *PostgresKeyRepository) Create(ctx context.Context, ownerID string, key []byte) (bool, error) {
	res, err := r.DB.ExecContext(
		ctx,
		`INSERT INTO master_keys (owner_id, key) VALUES ($1, $2) ON CONFLICT (owner_id) DO NOTHING`,
		ownerID, key,
	)
	if err != nil {
		return false, fmt.Errorf("Create failed: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("Create failed: %w", err)
	}
	return rows == 1, nil
}

// Count returns the number of owners with a persisted master key.
func (r *PostgresKeyRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM master_keys`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("Count failed: %w", err)
	}
	return count, nil
}
