package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	pool *pgxpool.Pool
	once sync.Once
)

const schema = `
CREATE TABLE IF NOT EXISTS xbrl_snapshots (
	id          UUID PRIMARY KEY,
	fingerprint TEXT NOT NULL UNIQUE,
	source      TEXT NOT NULL DEFAULT '',
	data        JSONB NOT NULL,
	parsed_at   TIMESTAMPTZ NOT NULL
)`

// InitDB initializes the shared connection pool and makes sure the snapshot
// table exists. Later calls return the result of the first.
func InitDB(ctx context.Context, dbURL string) error {
	var err error
	once.Do(func() {
		if dbURL == "" {
			err = fmt.Errorf("DATABASE_URL not set")
			return
		}

		config, parseErr := pgxpool.ParseConfig(dbURL)
		if parseErr != nil {
			err = fmt.Errorf("failed to parse database config: %w", parseErr)
			return
		}

		pool, err = pgxpool.NewWithConfig(ctx, config)
		if err != nil {
			return
		}
		if _, execErr := pool.Exec(ctx, schema); execErr != nil {
			err = fmt.Errorf("failed to create xbrl_snapshots: %w", execErr)
		}
	})
	return err
}

// GetPool returns the database connection pool
func GetPool() *pgxpool.Pool {
	return pool
}

// Close closes the database connection pool
func Close() {
	if pool != nil {
		pool.Close()
	}
}
