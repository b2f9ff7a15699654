package settings

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the settings table.
const Schema = `
CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL settings repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the settings table if it does not exist.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, Schema)
	return err
}

// Get retrieves a single setting by key.
func (r *PostgresRepository) Get(ctx context.Context, key string) (*Entry, error) {
	query := `
		SELECT key, value, updated_at
		FROM settings
		WHERE key = $1
	`

	var (
		entry     Entry
		valueJSON []byte
	)

	err := r.pool.QueryRow(ctx, query, key).Scan(
		&entry.Key,
		&valueJSON,
		&entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	entry.Value = valueJSON

	return &entry, nil
}

// GetAll retrieves every stored setting.
func (r *PostgresRepository) GetAll(ctx context.Context) (map[string]*Entry, error) {
	query := `
		SELECT key, value, updated_at
		FROM settings
		ORDER BY key
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make(map[string]*Entry)
	for rows.Next() {
		var (
			entry     Entry
			valueJSON []byte
		)
		if err := rows.Scan(&entry.Key, &valueJSON, &entry.UpdatedAt); err != nil {
			return nil, err
		}
		entry.Value = valueJSON
		entries[entry.Key] = &entry
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// Set creates or updates a setting.
func (r *PostgresRepository) Set(ctx context.Context, entry *Entry) error {
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`

	updatedAt := entry.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	_, err := r.pool.Exec(ctx, query, entry.Key, []byte(entry.Value), updatedAt)
	return err
}

// Delete removes a setting by key.
func (r *PostgresRepository) Delete(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM settings WHERE key = $1`, key)
	return err
}

var _ Repository = (*PostgresRepository)(nil)
