// Package config reads runtime settings from the environment, after loading
// an optional .env file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"xbrl_facts/pkg/core/ingest"
	"xbrl_facts/pkg/core/markup"
	"xbrl_facts/pkg/core/repair"
	"xbrl_facts/pkg/core/xbrl"
)

const (
	DefaultDiagnosticLog = "/tmp/xbrl.log"
	DefaultListenAddr    = ":8080"
)

// DefaultCacheDir is where fetched documents and file-backed snapshots live
// when XBRL_CACHE_DIR is not set.
var DefaultCacheDir = filepath.Join(".cache", "xbrl")

// Config holds the effective settings for the parser, the cache and the API.
type Config struct {
	ErrorPolicy   xbrl.ErrorPolicy
	RepairMode    repair.Mode
	Backend       markup.Backend
	DiagnosticLog string
	CacheDir      string
	DatabaseURL   string
	ListenAddr    string
	ConceptsFile  string
	// FetchOrigins are scheme://host pairs accepted for remote documents
	// on top of the SEC hosts.
	FetchOrigins []string
}

// Load reads .env (if present) and the XBRL_* environment variables.
func Load() (*Config, error) {
	// Missing .env is fine; the process environment still applies.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config using getenv for lookups.
func FromEnv(getenv func(string) string) (*Config, error) {
	policy, err := xbrl.ParseErrorPolicy(getenv("XBRL_ERROR_POLICY"))
	if err != nil {
		return nil, fmt.Errorf("XBRL_ERROR_POLICY: %w", err)
	}
	mode, err := repair.ParseMode(getenv("XBRL_REPAIR_MODE"))
	if err != nil {
		return nil, fmt.Errorf("XBRL_REPAIR_MODE: %w", err)
	}
	backend, err := markup.ParseBackend(getenv("XBRL_TREE_BACKEND"))
	if err != nil {
		return nil, fmt.Errorf("XBRL_TREE_BACKEND: %w", err)
	}

	cfg := &Config{
		ErrorPolicy:   policy,
		RepairMode:    mode,
		Backend:       backend,
		DiagnosticLog: orDefault(getenv("XBRL_DIAGNOSTIC_LOG"), DefaultDiagnosticLog),
		CacheDir:      orDefault(getenv("XBRL_CACHE_DIR"), DefaultCacheDir),
		DatabaseURL:   getenv("DATABASE_URL"),
		ListenAddr:    orDefault(getenv("XBRL_LISTEN_ADDR"), DefaultListenAddr),
		ConceptsFile:  getenv("XBRL_CONCEPTS_FILE"),
	}
	origins, err := parseOrigins(getenv("XBRL_FETCH_ORIGINS"))
	if err != nil {
		return nil, fmt.Errorf("XBRL_FETCH_ORIGINS: %w", err)
	}
	cfg.FetchOrigins = origins
	return cfg, nil
}

// parseOrigins reads a comma-separated list of scheme://host origins.
func parseOrigins(raw string) ([]string, error) {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		o = strings.TrimSuffix(strings.TrimSpace(o), "/")
		if o == "" {
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" || u.Path != "" || (u.Scheme != "https" && u.Scheme != "http") {
			return nil, fmt.Errorf("invalid origin %q", o)
		}
		origins = append(origins, u.Scheme+"://"+u.Host)
	}
	return origins, nil
}

// Fetcher returns an ingest.Fetcher caching under CacheDir and accepting
// the SEC hosts plus FetchOrigins.
func (c *Config) Fetcher(logger *zap.Logger) *ingest.Fetcher {
	f := ingest.NewFetcher(c.CacheDir, logger)
	f.AllowedOrigins = append(f.AllowedOrigins, c.FetchOrigins...)
	return f
}

// ParserOptions translates the configuration into parser options. The
// diagnostic sink is supplied by the caller since it owns its lifetime.
func (c *Config) ParserOptions(sink xbrl.DiagnosticSink) ([]xbrl.Option, error) {
	opts := []xbrl.Option{
		xbrl.WithErrorPolicy(c.ErrorPolicy),
		xbrl.WithRepairMode(c.RepairMode),
		xbrl.WithBackend(c.Backend),
		xbrl.WithDiagnosticSink(sink),
	}
	if c.ConceptsFile != "" {
		table, err := xbrl.LoadConcepts(c.ConceptsFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, xbrl.WithConcepts(table))
	}
	return opts, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
