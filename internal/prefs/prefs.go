// Package prefs persists the single scalar that survives a process restart:
// the active party id. Every other cache is rebuilt from the remote service
// on the next sync and is not assumed valid until one completes.
package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const activePartyKey = "active_party_id"

// Store is a SQLite-backed key/value store holding local preferences.
// Create instances with [Open]; the zero value is not usable.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the preferences database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("prefs: storage path is required")
	}
	// modernc.org/sqlite takes pragmas as repeated _pragma parameters; the
	// mattn-style _journal_mode form is silently ignored by this driver.
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("prefs: open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prefs: ping sqlite db: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS prefs (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("prefs: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping probes the database. Used as a readiness check.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("prefs: store is not open")
	}
	return s.db.PingContext(ctx)
}

// ActiveParty returns the persisted active party id. ok is false when none
// has been saved or the saved value was cleared.
func (s *Store) ActiveParty(ctx context.Context) (id string, ok bool, err error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, activePartyKey)
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("prefs: read active party: %w", err)
	}
	return id, id != "", nil
}

// SaveActiveParty durably records the active party id. An empty id clears
// the stored value.
func (s *Store) SaveActiveParty(ctx context.Context, id string) error {
	if id == "" {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM prefs WHERE key = ?`, activePartyKey); err != nil {
			return fmt.Errorf("prefs: clear active party: %w", err)
		}
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prefs (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		activePartyKey, id)
	if err != nil {
		return fmt.Errorf("prefs: save active party: %w", err)
	}
	return nil
}
