// Command batch_extract parses the XBRL instances of a company's recent
// filings and stores each snapshot in the cache.
package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"xbrl_facts/pkg/core/config"
	"xbrl_facts/pkg/core/store"
	"xbrl_facts/pkg/core/xbrl"
)

var CLI struct {
	CIK   string        `required:"" name:"cik" help:"Company CIK (e.g. 0001318605)"`
	Form  []string      `default:"10-K" help:"Form types to process"`
	Limit int           `default:"4" help:"Maximum number of filings"`
	Delay time.Duration `default:"2s" help:"Pause between SEC requests"`
}

func main() {
	kong.Parse(&CLI,
		kong.Name("batch_extract"),
		kong.Description("Parse and cache the XBRL facts of recent filings"),
		kong.UsageOnError(),
	)
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup runs first.
func run() int {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger = logger.Named("batch")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		return 1
	}

	sink := xbrl.DiagnosticSink(xbrl.NopSink{})
	if cfg.ErrorPolicy == xbrl.PolicyLogging {
		fileSink, err := xbrl.NewFileSink(cfg.DiagnosticLog)
		if err != nil {
			logger.Error("diagnostic log unavailable", zap.Error(err))
			return 1
		}
		defer fileSink.Sync()
		sink = fileSink
	}
	opts, err := cfg.ParserOptions(sink)
	if err != nil {
		logger.Error("concept table", zap.Error(err))
		return 1
	}
	parser := xbrl.NewParser(opts...)

	ctx := context.Background()
	cache := store.OpenSnapshotCache(ctx, cfg.DatabaseURL, filepath.Join(cfg.CacheDir, "snapshots"), logger)
	defer store.Close()

	fetcher := cfg.Fetcher(logger)

	// 1. Filing index
	info, err := fetcher.CompanyInfo(ctx, CLI.CIK)
	if err != nil {
		logger.Error("submissions fetch failed", zap.String("cik", CLI.CIK), zap.Error(err))
		return 1
	}
	filings := fetcher.GetFilings(info, CLI.Form, CLI.Limit)
	logger.Info("filings found", zap.String("company", info.Name), zap.Int("count", len(filings)))

	saved := 0
	for i, filing := range filings {
		if i > 0 {
			// SEC fair-access rate limit
			time.Sleep(CLI.Delay)
		}
		log := logger.With(
			zap.String("form", filing.FormType),
			zap.String("accession", filing.AccessionNumber),
			zap.String("report_date", filing.ReportDate.Format("2006-01-02")),
		)

		// 2. Instance document
		raw, url, err := fetcher.FetchFiling(ctx, CLI.CIK, filing.AccessionNumber, filing.InstanceDocument())
		if err != nil {
			log.Error("fetch failed", zap.Error(err))
			continue
		}

		// 3. Parse
		start := time.Now()
		res, err := parser.ParseBytes(raw)
		if err != nil {
			log.Error("parse failed", zap.Error(err))
			continue
		}
		log.Info("parsed",
			zap.Int("bytes", len(raw)),
			zap.Int("contexts", res.Contexts.Len()),
			zap.Duration("took", time.Since(start)),
		)

		// 4. Save
		entry, err := cache.Put(ctx, url, raw, res)
		if err != nil {
			log.Error("save failed", zap.Error(err))
			continue
		}
		log.Info("saved", zap.String("fingerprint", entry.Fingerprint))
		saved++
	}

	logger.Info("done", zap.Int("saved", saved), zap.Int("filings", len(filings)))
	if saved < len(filings) {
		return 1
	}
	return 0
}
