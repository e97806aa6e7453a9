// Package cache provides the SQLite-backed seen-URL cache and the
// content-addressed result cache.
package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// Cache stores seen URLs and expensive per-content results with a
// shared TTL.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// New opens (or creates) the cache database at path. Entries older
// than ttl are treated as absent and removed lazily.
func New(path string, ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS seen_urls (
	url      TEXT PRIMARY KEY,
	seen_at  DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS results (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_seen_urls_seen_at ON seen_urls(seen_at);
CREATE INDEX IF NOT EXISTS idx_results_created_at ON results(created_at);
`); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "cache: migrate")
	}

	return &Cache{db: db, ttl: ttl, now: time.Now}, nil
}

// Close releases the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// SeenURL reports whether url was marked within the TTL window.
func (c *Cache) SeenURL(ctx context.Context, url string) (bool, error) {
	var seenAt time.Time
	err := c.db.QueryRowContext(ctx,
		`SELECT seen_at FROM seen_urls WHERE url = ?`, url).Scan(&seenAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrap(err, "cache: lookup url")
	}
	if c.now().UTC().Sub(seenAt) > c.ttl {
		_, _ = c.db.ExecContext(ctx, `DELETE FROM seen_urls WHERE url = ?`, url)
		return false, nil
	}
	return true, nil
}

// MarkURL records url as seen now, refreshing an existing entry.
func (c *Cache) MarkURL(ctx context.Context, url string) error {
	_, err := c.db.ExecContext(ctx, `
INSERT INTO seen_urls (url, seen_at) VALUES (?, ?)
ON CONFLICT(url) DO UPDATE SET seen_at = excluded.seen_at`,
		url, c.now().UTC(),
	)
	return eris.Wrap(err, "cache: mark url")
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var createdAt time.Time
	err := c.db.QueryRowContext(ctx,
		`SELECT value, created_at FROM results WHERE key = ?`, key).Scan(&value, &createdAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, eris.Wrap(err, "cache: lookup result")
	}
	if c.now().UTC().Sub(createdAt) > c.ttl {
		_, _ = c.db.ExecContext(ctx, `DELETE FROM results WHERE key = ?`, key)
		return "", false, nil
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (c *Cache) Set(ctx context.Context, key, value string) error {
	_, err := c.db.ExecContext(ctx, `
INSERT INTO results (key, value, created_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at`,
		key, value, c.now().UTC(),
	)
	return eris.Wrap(err, "cache: store result")
}

// Prune removes every expired row. The run loop calls this once per
// run rather than on every lookup.
func (c *Cache) Prune(ctx context.Context) error {
	cutoff := c.now().UTC().Add(-c.ttl)
	if _, err := c.db.ExecContext(ctx, `DELETE FROM seen_urls WHERE seen_at < ?`, cutoff); err != nil {
		return eris.Wrap(err, "cache: prune urls")
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM results WHERE created_at < ?`, cutoff); err != nil {
		return eris.Wrap(err, "cache: prune results")
	}
	return nil
}
