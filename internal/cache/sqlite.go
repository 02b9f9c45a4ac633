package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	cache_key  TEXT PRIMARY KEY,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL
)`

// SQLiteCache persists entries in a single local SQLite file
type SQLiteCache struct {
	db  *sql.DB
	ttl time.Duration
}

// NewSQLiteCache opens (or creates) the database at path. Use ":memory:"
// for a throwaway cache.
func NewSQLiteCache(path string, ttl time.Duration) (*SQLiteCache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache: %w", err)
	}
	// one connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	return &SQLiteCache{db: db, ttl: ttl}, nil
}

// Get retrieves a live entry
func (c *SQLiteCache) Get(key string) ([]byte, bool) {
	var (
		value     []byte
		expiresAt int64
	)
	err := sq.Select("value", "expires_at").
		From("cache_entries").
		Where(sq.Eq{"cache_key": key}).
		RunWith(c.db).
		QueryRow().
		Scan(&value, &expiresAt)
	if err != nil {
		return nil, false
	}

	if expiresAt != 0 && time.Now().UnixNano() > expiresAt {
		_ = c.Delete(key)
		return nil, false
	}
	return value, true
}

// Set upserts an entry
func (c *SQLiteCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	var expiresAt int64
	if deadline := expiry(ttl); !deadline.IsZero() {
		expiresAt = deadline.UnixNano()
	}

	_, err := sq.Insert("cache_entries").
		Columns("cache_key", "value", "expires_at", "created_at").
		Values(key, value, expiresAt, time.Now().UnixNano()).
		Suffix("ON CONFLICT(cache_key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at").
		RunWith(c.db).
		Exec()
	if err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Delete removes an entry
func (c *SQLiteCache) Delete(key string) error {
	_, err := sq.Delete("cache_entries").
		Where(sq.Eq{"cache_key": key}).
		RunWith(c.db).
		Exec()
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry
func (c *SQLiteCache) Clear() error {
	if _, err := sq.Delete("cache_entries").RunWith(c.db).Exec(); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}

// Len returns the number of stored entries, expired ones included
func (c *SQLiteCache) Len() (int, error) {
	var n int
	err := sq.Select("COUNT(*)").From("cache_entries").RunWith(c.db).QueryRow().Scan(&n)
	return n, err
}

// Close releases the database
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
