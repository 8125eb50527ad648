package internal

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SessionCache is a local SQLite mirror of the remote session store. It is
// refreshed after successful syncs and read when the backend is
// unreachable, e.g. for offline transcript export. The remote store stays
// the system of record; the cache is never pushed back.
type SessionCache struct {
	db   *sql.DB
	path string
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	name          TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	last_activity TEXT NOT NULL,
	message_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	session_id TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	body       TEXT NOT NULL,
	PRIMARY KEY (session_id, seq)
);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// DefaultCachePath returns the cache location under the user's home
// directory.
func DefaultCachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "silvercare-cache.db")
	}
	return filepath.Join(home, ".silvercare", "sessions.db")
}

// OpenSessionCache opens (creating if necessary) the cache database.
func OpenSessionCache(path string) (*SessionCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &CacheError{Op: "open", Err: err}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &CacheError{Op: "open", Err: err}
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &CacheError{Op: "open", Err: err}
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, &CacheError{Op: "open", Err: err}
	}
	return &SessionCache{db: db, path: path}, nil
}

// Close closes the underlying database.
func (c *SessionCache) Close() error {
	return c.db.Close()
}

// Path returns the cache file location.
func (c *SessionCache) Path() string { return c.path }

// Replace swaps the cached session set for a fresh snapshot from the
// remote store.
func (c *SessionCache) Replace(sessions []ChatSession) error {
	tx, err := c.db.Begin()
	if err != nil {
		return &CacheError{Op: "write", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM sessions"); err != nil {
		return &CacheError{Op: "write", Err: err}
	}
	if _, err := tx.Exec("DELETE FROM messages"); err != nil {
		return &CacheError{Op: "write", Err: err}
	}
	for _, s := range sessions {
		if err := insertSession(tx, s); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(
		"INSERT INTO meta (key, value) VALUES ('synced_at', ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		time.Now().Format(time.RFC3339)); err != nil {
		return &CacheError{Op: "write", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &CacheError{Op: "write", Err: err}
	}
	return nil
}

// UpsertSession refreshes a single cached session, e.g. after its messages
// were persisted.
func (c *SessionCache) UpsertSession(s ChatSession) error {
	tx, err := c.db.Begin()
	if err != nil {
		return &CacheError{Op: "write", Err: err}
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM sessions WHERE id = ?", s.ID); err != nil {
		return &CacheError{Op: "write", Err: err}
	}
	if _, err := tx.Exec("DELETE FROM messages WHERE session_id = ?", s.ID); err != nil {
		return &CacheError{Op: "write", Err: err}
	}
	if err := insertSession(tx, s); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &CacheError{Op: "write", Err: err}
	}
	return nil
}

// Sessions lists cached sessions, most recently active first, without
// their message bodies.
func (c *SessionCache) Sessions() ([]ChatSession, error) {
	rows, err := c.db.Query(
		"SELECT id, name, created_at, last_activity, message_count FROM sessions ORDER BY last_activity DESC")
	if err != nil {
		return nil, &CacheError{Op: "read", Err: err}
	}
	defer rows.Close()

	var sessions []ChatSession
	for rows.Next() {
		var s ChatSession
		var created, activity string
		if err := rows.Scan(&s.ID, &s.Name, &created, &activity, &s.MessageCount); err != nil {
			return nil, &CacheError{Op: "read", Err: err}
		}
		s.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		s.LastActivity, _ = time.Parse(time.RFC3339Nano, activity)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, &CacheError{Op: "read", Err: err}
	}
	return sessions, nil
}

// Session loads one cached session including its messages, or nil when it
// is not cached.
func (c *SessionCache) Session(id string) (*ChatSession, error) {
	row := c.db.QueryRow(
		"SELECT id, name, created_at, last_activity, message_count FROM sessions WHERE id = ?", id)
	var s ChatSession
	var created, activity string
	if err := row.Scan(&s.ID, &s.Name, &created, &activity, &s.MessageCount); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, &CacheError{Op: "read", Err: err}
	}
	s.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	s.LastActivity, _ = time.Parse(time.RFC3339Nano, activity)

	rows, err := c.db.Query("SELECT body FROM messages WHERE session_id = ? ORDER BY seq", id)
	if err != nil {
		return nil, &CacheError{Op: "read", Err: err}
	}
	defer rows.Close()
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, &CacheError{Op: "read", Err: err}
		}
		var msg Message
		if err := json.Unmarshal([]byte(body), &msg); err != nil {
			return nil, &CacheError{Op: "read", Err: err}
		}
		s.Messages = append(s.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, &CacheError{Op: "read", Err: err}
	}
	return &s, nil
}

// SyncedAt returns when the cache last mirrored the remote store, or the
// zero time for a never-synced cache.
func (c *SessionCache) SyncedAt() time.Time {
	var value string
	if err := c.db.QueryRow("SELECT value FROM meta WHERE key = 'synced_at'").Scan(&value); err != nil {
		return time.Time{}
	}
	t, _ := time.Parse(time.RFC3339, value)
	return t
}

func insertSession(tx *sql.Tx, s ChatSession) error {
	if _, err := tx.Exec(
		"INSERT INTO sessions (id, name, created_at, last_activity, message_count) VALUES (?, ?, ?, ?, ?)",
		s.ID, s.Name, s.CreatedAt.Format(time.RFC3339Nano), s.LastActivity.Format(time.RFC3339Nano), len(s.Messages)); err != nil {
		return &CacheError{Op: "write", Err: err}
	}
	for i, msg := range s.Messages {
		body, err := json.Marshal(msg)
		if err != nil {
			return &CacheError{Op: "write", Err: err}
		}
		if _, err := tx.Exec(
			"INSERT INTO messages (session_id, seq, body) VALUES (?, ?, ?)",
			s.ID, i, string(body)); err != nil {
			return &CacheError{Op: "write", Err: err}
		}
	}
	return nil
}
