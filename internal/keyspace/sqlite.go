package keyspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"apply-desk/internal/common/database"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS local_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// SQLite keeps slots in a single table of a local database file.
type SQLite struct {
	client *database.SQLiteClient
}

// NewSQLite opens path and ensures the slot table exists.
func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	client, err := database.NewSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := client.Migrate(ctx, sqliteSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("keyspace: migrate: %w", err)
	}
	return &SQLite{client: client}, nil
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.client.DB.QueryRowContext(ctx, `SELECT value FROM local_kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("keyspace: get %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	_, err := s.client.DB.ExecContext(ctx, `
		INSERT INTO local_kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("keyspace: set %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.client.DB.ExecContext(ctx, `DELETE FROM local_kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("keyspace: delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.client.Close()
}
