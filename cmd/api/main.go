package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	apiConfig "xbrl_facts/pkg/api/config"
	apiXbrl "xbrl_facts/pkg/api/xbrl"
	"xbrl_facts/pkg/core/config"
	"xbrl_facts/pkg/core/store"
	"xbrl_facts/pkg/core/xbrl"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup runs first.
func run() int {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Load .env and XBRL_* settings
	cfg, err := config.Load()
	if err != nil {
		logger.Error("[CONFIG] invalid configuration", zap.Error(err))
		return 1
	}

	// Diagnostic sink for the logging policy
	var sink xbrl.DiagnosticSink = xbrl.NopSink{}
	if cfg.ErrorPolicy == xbrl.PolicyLogging {
		fileSink, err := xbrl.NewFileSink(cfg.DiagnosticLog)
		if err != nil {
			logger.Error("[CONFIG] diagnostic log unavailable", zap.Error(err))
			return 1
		}
		defer fileSink.Sync()
		sink = fileSink
	}

	opts, err := cfg.ParserOptions(sink)
	if err != nil {
		logger.Error("[CONFIG] concept table", zap.Error(err))
		return 1
	}
	parser := xbrl.NewParser(opts...)

	// Snapshot cache: Postgres when configured, files otherwise
	cache := store.OpenSnapshotCache(context.Background(), cfg.DatabaseURL, filepath.Join(cfg.CacheDir, "snapshots"), logger)
	defer store.Close()

	fetcher := cfg.Fetcher(logger)

	xbrlHandler := apiXbrl.NewHandler(parser, cache, fetcher, logger)
	configHandler := apiConfig.NewHandler(cfg, parser.Concepts())
	router := apiXbrl.NewRouter(xbrlHandler, configHandler.Register)

	logger.Info("API server starting",
		zap.String("addr", cfg.ListenAddr),
		zap.String("error_policy", cfg.ErrorPolicy.String()),
		zap.String("repair_mode", string(cfg.RepairMode)),
		zap.String("tree_backend", string(cfg.Backend)),
	)
	logger.Info("routes",
		zap.Strings("endpoints", []string{
			"GET  /health",
			"GET  /api/config",
			"POST /api/xbrl/parse",
			"GET  /api/xbrl/{fingerprint}",
			"GET  /api/xbrl/{fingerprint}/report",
			"GET  /api/xbrl/{fingerprint}/quarterly",
			"GET  /api/xbrl/{fingerprint}/yearly",
		}),
	)

	if err := http.ListenAndServe(cfg.ListenAddr, router); err != nil {
		logger.Error("[FATAL] Server failed to start", zap.Error(err))
		return 1
	}
	return 0
}
