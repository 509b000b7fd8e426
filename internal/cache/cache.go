// Package cache implements the content-addressed tag cache: a persistent
// key-value store mapping (file path, content hash) to the tags extracted
// from that file, backed by a local SQLite file.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cyber-nic/repomap/internal/apperr"
	"github.com/cyber-nic/repomap/internal/fslock"
	"github.com/cyber-nic/repomap/internal/tagkind"
)

// Stats reports aggregate cache size.
type Stats struct {
	FileCount int
	TagCount  int
	SizeBytes int64
}

// Cache is the persistent, content-addressed tag store. Reads are
// concurrent-safe (SQLite handles reader concurrency); writes for a single
// file run inside one transaction and are serialized by a process-local
// mutex plus a cross-process advisory lock file.
type Cache struct {
	db       *sql.DB
	dir      string
	dbPath   string
	lockPath string
	writeMu  sync.Mutex
	log      zerolog.Logger
}

// Open creates dir if needed, applies pending goose migrations, and returns
// a ready Cache. A corrupt or unreadable database file is treated as an
// empty cache rather than a fatal error: the pass continues without cache
// for every file.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.KindCache, "creating cache directory", err, map[string]string{"dir": dir})
	}

	dbPath := filepath.Join(dir, "tags.db")
	db, err := sql.Open("sqlite3", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, apperr.Wrap(apperr.KindCache, "opening cache database", err, map[string]string{"path": dbPath})
	}
	db.SetMaxOpenConns(1) // SQLite tolerates one writer; reads multiplex over it fine at our scale.

	goose.SetBaseFS(migrationFS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		db.Close()
		return nil, apperr.Wrap(apperr.KindCache, "configuring migrations", err, nil)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("cache schema migration failed; starting with an empty cache")
		db.Close()
		_ = os.Remove(dbPath)
		db, err = sql.Open("sqlite3", dbPath)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindCache, "reopening cache database after reset", err, nil)
		}
		if err := goose.Up(db, "migrations"); err != nil {
			return nil, apperr.Wrap(apperr.KindCache, "migrating fresh cache database", err, nil)
		}
	}

	return &Cache{
		db:       db,
		dir:      dir,
		dbPath:   dbPath,
		lockPath: filepath.Join(dir, ".lock"),
		log:      log.With().Str("component", "cache").Logger(),
	}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// fingerprint computes the fast xxhash check and the strong SHA-256 digest
// of content, plus the file's mtime/size as observed on disk.
type fingerprint struct {
	fast  uint64
	sha   string
	mtime int64
	size  int64
}

func fingerprintOf(path string, content []byte) (fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fingerprint{}, err
	}
	sum := sha256.Sum256(content)
	return fingerprint{
		fast:  xxhash.Sum64(content),
		sha:   hex.EncodeToString(sum[:]),
		mtime: info.ModTime().UnixNano(),
		size:  info.Size(),
	}, nil
}

// Get returns the cached tags for path only if the stored hash and mtime
// still match the file on disk; otherwise it returns ok=false and
// invalidates the stale entry.
func (c *Cache) Get(ctx context.Context, path string, content []byte) (tags []tagkind.Tag, ok bool, err error) {
	fp, err := fingerprintOf(path, content)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.KindCache, "stat for cache lookup", err, map[string]string{"path": path})
	}

	var storedHash string
	var storedFast uint64
	var storedMtime int64
	row := c.db.QueryRowContext(ctx, `SELECT hash, fast_hash, mtime FROM file_cache WHERE path = ?`, path)
	switch scanErr := row.Scan(&storedHash, &storedFast, &storedMtime); {
	case scanErr == sql.ErrNoRows:
		return nil, false, nil
	case scanErr != nil:
		c.log.Warn().Err(scanErr).Str("path", path).Msg("cache read failed; reparsing")
		return nil, false, nil
	}

	// The xxhash comparison is the cheap common-case check; SHA-256 is the
	// strong, persisted source of truth consulted when it disagrees or when
	// mtime alone would have been fooled by a touch without a content change.
	if storedFast != fp.fast || storedHash != fp.sha || storedMtime != fp.mtime {
		_ = c.Invalidate(ctx, path)
		return nil, false, nil
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT name, kind, other_kind, is_def, line, col, end_line, end_col FROM tags WHERE path = ? ORDER BY id`, path)
	if err != nil {
		return nil, false, nil
	}
	defer rows.Close()

	for rows.Next() {
		var t tagkind.Tag
		var kind int
		var isDef int
		t.File = path
		if err := rows.Scan(&t.Name, &kind, &t.OtherKind, &isDef, &t.Line, &t.Column, &t.EndLine, &t.EndColumn); err != nil {
			return nil, false, nil
		}
		t.Kind = tagkind.Kind(kind)
		t.IsDef = isDef != 0
		tags = append(tags, t)
	}
	return tags, true, nil
}

// Put writes the tags for path atomically in a single transaction,
// serialized against concurrent writers by a process-local mutex and a
// cross-process advisory lock.
func (c *Cache) Put(ctx context.Context, path string, content []byte, tags []tagkind.Tag) error {
	fp, err := fingerprintOf(path, content)
	if err != nil {
		return apperr.Wrap(apperr.KindCache, "stat for cache write", err, map[string]string{"path": path})
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	lock, err := fslock.Acquire(c.lockPath, 5*time.Second, 30*time.Second)
	if err != nil {
		return apperr.Wrap(apperr.KindCache, "acquiring cache write lock", err, nil)
	}
	defer lock.Release()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.Wrap(apperr.KindCache, "beginning cache transaction", err, nil)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM file_cache WHERE path = ?`, path); err != nil {
		return apperr.Wrap(apperr.KindCache, "clearing stale cache row", err, nil)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO file_cache(path, hash, fast_hash, mtime, size, cached_at) VALUES (?, ?, ?, ?, ?, ?)`,
		path, fp.sha, fp.fast, fp.mtime, fp.size, time.Now().Unix()); err != nil {
		return apperr.Wrap(apperr.KindCache, "writing cache row", err, nil)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO tags(path, name, kind, other_kind, is_def, line, col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return apperr.Wrap(apperr.KindCache, "preparing tag insert", err, nil)
	}
	defer stmt.Close()

	for _, t := range tags {
		isDef := 0
		if t.IsDef {
			isDef = 1
		}
		if _, err := stmt.ExecContext(ctx, path, t.Name, int(t.Kind), t.OtherKind, isDef, t.Line, t.Column, t.EndLine, t.EndColumn); err != nil {
			return apperr.Wrap(apperr.KindCache, "inserting tag", err, nil)
		}
	}

	return tx.Commit()
}

// Invalidate removes path's cached entry, if any.
func (c *Cache) Invalidate(ctx context.Context, path string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM file_cache WHERE path = ?`, path)
	if err != nil {
		return apperr.Wrap(apperr.KindCache, "invalidating cache entry", err, map[string]string{"path": path})
	}
	return nil
}

// Clear drops every cached entry.
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM file_cache`); err != nil {
		return apperr.Wrap(apperr.KindCache, "clearing cache", err, nil)
	}
	return nil
}

// Stat returns the current cache size.
func (c *Cache) Stat(ctx context.Context) (Stats, error) {
	var s Stats
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM file_cache`).Scan(&s.FileCount); err != nil {
		return Stats{}, apperr.Wrap(apperr.KindCache, "reading cache stats", err, nil)
	}
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tags`).Scan(&s.TagCount); err != nil {
		return Stats{}, apperr.Wrap(apperr.KindCache, "reading cache stats", err, nil)
	}
	if info, err := os.Stat(c.dbPath); err == nil {
		s.SizeBytes = info.Size()
	}
	return s, nil
}
