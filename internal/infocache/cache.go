package infocache

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"reel/internal/config"
	"reel/internal/jobs"
	"reel/internal/services/ytdlp"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; stale databases must be deleted rather than migrated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was written by a different
// schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Cache persists extracted video metadata keyed by platform and source URL
// so repeat lookups within the TTL skip the extractor round trip.
type Cache struct {
	db   *sql.DB
	path string
	ttl  time.Duration
	now  func() time.Time
}

// Open connects to the metadata cache database under the state directory
// and prepares its schema. A TTL of zero keeps entries forever.
func Open(cfg *config.Config) (*Cache, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.StateDir, "infocache.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	cache := &Cache{
		db:   db,
		path: dbPath,
		ttl:  time.Duration(cfg.InfoCache.TTLMinutes) * time.Minute,
		now:  time.Now,
	}
	if err := cache.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return cache, nil
}

// Close closes the underlying database connection.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Lookup returns the cached metadata for a URL, or nil when the cache holds
// nothing fresh. A nil receiver always misses so callers can leave the cache
// unconfigured.
func (c *Cache) Lookup(ctx context.Context, platform jobs.Platform, url string) (*ytdlp.Info, error) {
	if c == nil || c.db == nil {
		return nil, nil
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, nil
	}

	row := c.db.QueryRowContext(
		ctx,
		`SELECT payload, fetched_at FROM video_info WHERE platform = ? AND url = ?`,
		string(platform),
		url,
	)
	var payload, fetchedRaw string
	if err := row.Scan(&payload, &fetchedRaw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("lookup video info: %w", err)
	}

	if c.ttl > 0 {
		fetched, err := time.Parse(time.RFC3339Nano, fetchedRaw)
		if err != nil || c.now().UTC().Sub(fetched) > c.ttl {
			return nil, nil
		}
	}

	var info ytdlp.Info
	if err := json.Unmarshal([]byte(payload), &info); err != nil {
		return nil, fmt.Errorf("decode cached info: %w", err)
	}
	return &info, nil
}

// Store inserts or refreshes the cached metadata for a URL.
func (c *Cache) Store(ctx context.Context, platform jobs.Platform, url string, info *ytdlp.Info) error {
	if c == nil || c.db == nil {
		return nil
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return errors.New("url required")
	}
	if info == nil {
		return errors.New("info required")
	}

	payload, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal video info: %w", err)
	}

	_, err = c.db.ExecContext(
		ctx,
		`INSERT OR REPLACE INTO video_info (platform, url, payload, fetched_at) VALUES (?, ?, ?, ?)`,
		string(platform),
		url,
		string(payload),
		c.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store video info: %w", err)
	}
	return nil
}

// Prune removes entries older than the TTL and reports how many went away.
func (c *Cache) Prune(ctx context.Context) (int64, error) {
	if c == nil || c.db == nil || c.ttl <= 0 {
		return 0, nil
	}
	cutoff := c.now().UTC().Add(-c.ttl).Format(time.RFC3339Nano)
	res, err := c.db.ExecContext(ctx, `DELETE FROM video_info WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune video info: %w", err)
	}
	return res.RowsAffected()
}

// Count returns the number of cached entries.
func (c *Cache) Count(ctx context.Context) (int, error) {
	if c == nil || c.db == nil {
		return 0, nil
	}
	var count int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM video_info`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count video info: %w", err)
	}
	return count, nil
}

func (c *Cache) initSchema(ctx context.Context) error {
	var tableExists int
	err := c.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return c.createSchema(ctx)
	}

	var version int
	err = c.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, c.path)
	}
	return nil
}

func (c *Cache) createSchema(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}
