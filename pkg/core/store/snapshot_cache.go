package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/zeebo/blake3"
	"go.uber.org/zap"

	"xbrl_facts/pkg/core/xbrl"
)

// ErrNotFound is returned when no snapshot exists for a fingerprint.
var ErrNotFound = errors.New("snapshot not found")

// SnapshotCache stores parse results keyed by the fingerprint of the raw
// document. Postgres is used when a pool is given, JSON files otherwise.
type SnapshotCache struct {
	pool    *pgxpool.Pool
	fileDir string
	logger  *zap.Logger
}

// NewSnapshotCache creates a cache. With a nil pool and empty dir the file
// cache lives under .cache/xbrl/snapshots. A nil logger discards log output.
func NewSnapshotCache(pool *pgxpool.Pool, dir string, logger *zap.Logger) *SnapshotCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("store")
	if pool == nil && dir == "" {
		dir = filepath.Join(".cache", "xbrl", "snapshots")
	}
	if pool == nil {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Warn("snapshot dir unavailable", zap.String("dir", dir), zap.Error(err))
		}
	}
	return &SnapshotCache{pool: pool, fileDir: dir, logger: logger}
}

// OpenSnapshotCache returns a Postgres-backed cache when dbURL is set and
// the database answers, and a file cache under dir otherwise. Call Close
// when done.
func OpenSnapshotCache(ctx context.Context, dbURL, dir string, logger *zap.Logger) *SnapshotCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dbURL != "" {
		if err := InitDB(ctx, dbURL); err != nil {
			logger.Warn("database unavailable, using file cache", zap.Error(err))
		} else {
			logger.Info("using postgres snapshot cache")
			return NewSnapshotCache(GetPool(), "", logger)
		}
	}
	return NewSnapshotCache(nil, dir, logger)
}

// SnapshotEntry is one cached parse.
type SnapshotEntry struct {
	ID          string            `json:"id"`
	Fingerprint string            `json:"fingerprint"`
	Source      string            `json:"source"`
	ParsedAt    time.Time         `json:"parsed_at"`
	Result      *xbrl.ParseResult `json:"result"`
}

// Fingerprint returns the hex BLAKE3 digest of a raw document.
func Fingerprint(raw []byte) string {
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Put stores res under the fingerprint of raw, replacing any earlier entry
// for the same document.
func (c *SnapshotCache) Put(ctx context.Context, source string, raw []byte, res *xbrl.ParseResult) (*SnapshotEntry, error) {
	entry := &SnapshotEntry{
		ID:          uuid.New().String(),
		Fingerprint: Fingerprint(raw),
		Source:      source,
		ParsedAt:    time.Now().UTC(),
		Result:      res,
	}

	if c.pool != nil {
		data, err := json.Marshal(res)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
		}
		query := `
			INSERT INTO xbrl_snapshots (id, fingerprint, source, data, parsed_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (fingerprint) DO UPDATE
			SET source = EXCLUDED.source, data = EXCLUDED.data, parsed_at = EXCLUDED.parsed_at
			RETURNING id::text
		`
		err = c.pool.QueryRow(ctx, query, entry.ID, entry.Fingerprint, entry.Source, data, entry.ParsedAt).Scan(&entry.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to save snapshot: %w", err)
		}
		c.logger.Debug("snapshot saved", zap.String("fingerprint", entry.Fingerprint), zap.String("backend", "postgres"))
		return entry, nil
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	path := c.path(entry.Fingerprint)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}
	c.logger.Debug("snapshot saved", zap.String("fingerprint", entry.Fingerprint), zap.String("path", path))
	return entry, nil
}

// Get loads the snapshot for fingerprint, or ErrNotFound.
func (c *SnapshotCache) Get(ctx context.Context, fingerprint string) (*SnapshotEntry, error) {
	if !validFingerprint(fingerprint) {
		return nil, ErrNotFound
	}

	if c.pool != nil {
		query := `
			SELECT id::text, source, data, parsed_at
			FROM xbrl_snapshots
			WHERE fingerprint = $1
		`
		entry := &SnapshotEntry{Fingerprint: fingerprint}
		var dataJSON []byte
		err := c.pool.QueryRow(ctx, query, fingerprint).Scan(&entry.ID, &entry.Source, &dataJSON, &entry.ParsedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load snapshot: %w", err)
		}
		if err := json.Unmarshal(dataJSON, &entry.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal db cached data: %w", err)
		}
		return entry, nil
	}

	data, err := os.ReadFile(c.path(fingerprint))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	var entry SnapshotEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached snapshot: %w", err)
	}
	return &entry, nil
}

func (c *SnapshotCache) path(fingerprint string) string {
	return filepath.Join(c.fileDir, fingerprint+".json")
}

// validFingerprint keeps lookups to well-formed digests so a fingerprint
// can never name a path outside the cache directory.
func validFingerprint(s string) bool {
	if len(s) != 64 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
