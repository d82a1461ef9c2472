// SPDX-License-Identifier: MIT
/*
Package cache is the player's local persistence: a flat key/value table in
a SQLite file. Values are opaque JSON blobs with no schema versioning; keys
follow the "audio_" / "player_" prefix convention so whole feature areas
can be cleared with one prefix scan. Losing the cache loses nothing but
convenience state (last volume, last playlist).
*/
package cache

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Key prefixes. Every key stored through this package starts with one of
// these.
const (
	PrefixAudio  = "audio_"
	PrefixPlayer = "player_"
)

// Well-known keys.
const (
	KeyVolume    = PrefixPlayer + "volume"
	KeyPlaylist  = PrefixPlayer + "playlist"
	KeyLastTrack = PrefixAudio + "last_track"
)

// ErrNotFound reports a missing key.
var ErrNotFound = errors.New("cache: key not found")

// Store wraps the SQLite file.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the cache database under dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cache: create dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dir, "cache.db"))
	if err != nil {
		return nil, fmt.Errorf("cache: open database: %w", err)
	}

	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: configure database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: create kv table: %w", err)
	}

	return &Store{db: db}, nil
}

// Put serializes v as JSON and stores it under key, replacing any previous
// value.
func (s *Store) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache: marshal %q: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(data),
	); err != nil {
		return fmt.Errorf("cache: put %q: %w", key, err)
	}
	return nil
}

// Get unmarshals the value stored under key into out. Returns ErrNotFound
// when the key does not exist.
func (s *Store) Get(key string, out any) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("cache: get %q: %w", key, err)
	}

	if err := json.Unmarshal([]byte(data), out); err != nil {
		return fmt.Errorf("cache: unmarshal %q: %w", key, err)
	}
	return nil
}

// Delete removes a single key. Deleting a missing key is not an error.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("cache: delete %q: %w", key, err)
	}
	return nil
}

// ClearPrefix removes every key with the given prefix and returns how many
// were removed.
func (s *Store) ClearPrefix(prefix string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// LIKE special characters in a prefix would widen the scan.
	escaped := likeEscape(prefix)
	res, err := s.db.Exec(`DELETE FROM kv WHERE key LIKE ? ESCAPE '\'`, escaped+"%")
	if err != nil {
		return 0, fmt.Errorf("cache: clear prefix %q: %w", prefix, err)
	}
	return res.RowsAffected()
}

// Keys returns all stored keys with the given prefix.
func (s *Store) Keys(prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		`SELECT key FROM kv WHERE key LIKE ? ESCAPE '\' ORDER BY key`,
		likeEscape(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("cache: list prefix %q: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func likeEscape(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
