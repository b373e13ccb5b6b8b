package kvstore

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLite implements Provider on a single SQLite table.
type SQLite struct {
	conn *sql.DB
}

var _ Provider = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database file and applies the schema.
func OpenSQLite(dsn string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("kvstore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kvstore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("kvstore: apply schema: %w", err)
	}
	return &SQLite{conn: conn}, nil
}

// Get returns the value stored under key.
func (s *SQLite) Get(key string) (string, bool, error) {
	var v string
	err := s.conn.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kvstore: get %s: %w", key, err)
	}
	return v, true, nil
}

// SetAll upserts every entry within one transaction.
func (s *SQLite) SetAll(entries map[string]string) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("kvstore: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.Prepare(`
		INSERT INTO kv (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("kvstore: prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, k := range sortedKeys(entries) {
		if _, err := stmt.Exec(k, entries[k], now); err != nil {
			return fmt.Errorf("kvstore: upsert %s: %w", k, err)
		}
	}
	return tx.Commit()
}

// Clear deletes every row.
func (s *SQLite) Clear() error {
	if _, err := s.conn.Exec(`DELETE FROM kv`); err != nil {
		return fmt.Errorf("kvstore: clear: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
