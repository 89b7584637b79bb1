// ABOUTME: SQLite-backed key-value area for persisting the session between runs
// ABOUTME: Uses modernc.org/sqlite with optional sealing of stored values

package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrSealed is returned when a sealed value is read without a seal key.
var ErrSealed = errors.New("value is sealed and no key is configured")

// Store implements KV on top of a single sqlite table.
type Store struct {
	db     *sql.DB
	sealer *Sealer
	logger *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSealer seals every value written and opens sealed values on read.
func WithSealer(s *Sealer) StoreOption {
	return func(st *Store) { st.sealer = s }
}

// WithStoreLogger sets the store logger.
func WithStoreLogger(l *slog.Logger) StoreOption {
	return func(st *Store) {
		if l != nil {
			st.logger = l.With("component", "session_store")
		}
	}
}

// OpenStore opens (or creates) the key-value file at path.
// Parent directories are created if needed.
func OpenStore(path string, opts ...StoreOption) (*Store, error) {
	s := &Store{logger: slog.Default().With("component", "session_store")}
	for _, opt := range opts {
		opt(s)
	}

	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("creating session directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session database: %w", err)
	}
	// A single connection keeps :memory: databases coherent.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			sealed     INTEGER NOT NULL DEFAULT 0,
			updated_at TEXT NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	s.db = db
	s.logger.Debug("session store opened", "path", path, "sealed", s.sealer != nil)
	return s, nil
}

// Get returns the value for key and whether it was present.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value  string
		sealed bool
	)
	err := s.db.QueryRowContext(ctx, `SELECT value, sealed FROM kv WHERE key = ?`, key).Scan(&value, &sealed)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}

	if !sealed {
		return value, true, nil
	}
	if s.sealer == nil {
		return "", false, fmt.Errorf("reading %s: %w", key, ErrSealed)
	}
	plain, err := s.sealer.Open(value)
	if err != nil {
		return "", false, fmt.Errorf("opening %s: %w", key, err)
	}
	return plain, true, nil
}

// Set writes key, sealing the value when a sealer is configured.
func (s *Store) Set(ctx context.Context, key, value string) error {
	stored, sealed := value, 0
	if s.sealer != nil {
		var err error
		stored, err = s.sealer.Seal(value)
		if err != nil {
			return fmt.Errorf("sealing %s: %w", key, err)
		}
		sealed = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, sealed, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, sealed = excluded.sealed, updated_at = excluded.updated_at`,
		key, stored, sealed, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// Delete removes the given keys. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("deleting keys: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
