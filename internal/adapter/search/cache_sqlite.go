package search

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"scoutchat/internal/domain"
)

// SQLiteCache persists search responses across restarts.
type SQLiteCache struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteCache opens (or creates) the cache database at dbPath.
func NewSQLiteCache(dbPath string) (*SQLiteCache, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	// modernc connections do not share an in-memory database.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS search_cache (
			key        TEXT PRIMARY KEY,
			response   TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}
	return &SQLiteCache{db: db, now: time.Now}, nil
}

func (c *SQLiteCache) Get(ctx context.Context, key string) (*domain.SearchResponse, bool, error) {
	var raw string
	var expiresAt int64
	err := c.db.QueryRowContext(ctx,
		"SELECT response, expires_at FROM search_cache WHERE key = ?", key,
	).Scan(&raw, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query cache: %w", err)
	}
	if c.now().UnixMilli() > expiresAt {
		if _, err := c.db.ExecContext(ctx, "DELETE FROM search_cache WHERE key = ?", key); err != nil {
			return nil, false, fmt.Errorf("evict cache entry: %w", err)
		}
		return nil, false, nil
	}

	var resp domain.SearchResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil, false, fmt.Errorf("decode cache entry: %w", err)
	}
	return &resp, true, nil
}

func (c *SQLiteCache) Put(ctx context.Context, key string, resp *domain.SearchResponse, ttl time.Duration) error {
	raw, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	now := c.now()
	if _, err := c.db.ExecContext(ctx, `
		INSERT INTO search_cache (key, response, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET response = excluded.response, expires_at = excluded.expires_at`,
		key, string(raw), now.Add(ttl).UnixMilli(),
	); err != nil {
		return fmt.Errorf("store cache entry: %w", err)
	}
	_, err = c.db.ExecContext(ctx, "DELETE FROM search_cache WHERE expires_at < ?", now.UnixMilli())
	return err
}

// Close closes the underlying database connection.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}
