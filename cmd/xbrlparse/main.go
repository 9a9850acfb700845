// Command xbrlparse extracts financial facts from an XBRL instance document
// on disk or on SEC EDGAR and prints them as JSON.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"go.uber.org/zap"

	"xbrl_facts/pkg/core/config"
	"xbrl_facts/pkg/core/markup"
	"xbrl_facts/pkg/core/repair"
	"xbrl_facts/pkg/core/store"
	"xbrl_facts/pkg/core/xbrl"
)

const version = "0.1.0"

// CLI defines the command-line interface for xbrlparse.
var CLI struct {
	// Global flags override the XBRL_* environment settings.
	Policy  string `help:"Error policy: strict, permissive or logging (0, 1, 2)"`
	Repair  string `help:"Repair mode: stack or single"`
	Backend string `help:"Markup tree backend: html or xml"`
	Verbose bool   `short:"v" help:"Log progress to stderr"`

	Parse   ParseCmd   `cmd:"" help:"Parse a document and print its facts"`
	Filings FilingsCmd `cmd:"" help:"List recent filings of a company"`
	Version VersionCmd `cmd:"" help:"Print version information"`
}

// globals is what every command needs after flag parsing.
type globals struct {
	cfg    *config.Config
	logger *zap.Logger
}

// ParseCmd parses one document.
type ParseCmd struct {
	Source string `arg:"" help:"Path or http(s) URL of the instance document"`
	View   string `default:"snapshot" enum:"snapshot,report,quarterly,yearly" help:"What to print (snapshot, report, quarterly, yearly)"`
	Period string `default:"instant" help:"Report period: instant, quarter, year or a day count"`
	End    string `help:"Report end date (YYYY-MM-DD or YYYYMMDD, default today)"`
	Fields string `help:"Comma-separated GAAP fields for quarterly/yearly views (default all)"`
	Save   bool   `help:"Store the snapshot in the cache"`
}

func (c *ParseCmd) Run(g *globals) error {
	ctx := context.Background()

	raw, err := readSource(ctx, g, c.Source)
	if err != nil {
		return err
	}

	sink, err := diagnosticSink(g)
	if err != nil {
		return err
	}
	if s, ok := sink.(*xbrl.ZapSink); ok {
		defer s.Sync()
	}
	opts, err := g.cfg.ParserOptions(sink)
	if err != nil {
		return err
	}
	parser := xbrl.NewParser(opts...)

	res, err := parser.ParseBytes(raw)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", c.Source, err)
	}
	g.logger.Info("parsed document",
		zap.String("source", c.Source),
		zap.Int("contexts", res.Contexts.Len()),
		zap.Int("custom_facts", len(res.Custom)),
	)

	if c.Save {
		defer store.Close()
		entry, err := openCache(ctx, g).Put(ctx, c.Source, raw, res)
		if err != nil {
			return err
		}
		g.logger.Info("saved snapshot", zap.String("fingerprint", entry.Fingerprint))
	}

	fields := parser.Concepts().Keys(xbrl.GroupGAAP)
	if c.Fields != "" {
		fields = strings.Split(c.Fields, ",")
	}

	var out any
	switch c.View {
	case "report":
		sel, err := xbrl.ParseSelector(c.Period)
		if err != nil {
			return err
		}
		end, err := xbrl.ParseEndDate(c.End)
		if err != nil {
			return err
		}
		if out, err = res.ReportAt(sel, end); err != nil {
			return err
		}
	case "quarterly":
		if out, err = res.Quarterly(fields); err != nil {
			return err
		}
	case "yearly":
		if out, err = res.Yearly(fields); err != nil {
			return err
		}
	default:
		out = res
	}
	return printJSON(out)
}

// FilingsCmd lists filings from the EDGAR submissions API.
type FilingsCmd struct {
	CIK   string   `required:"" name:"cik" help:"Company CIK"`
	Form  []string `default:"10-K,10-Q" help:"Form types to include"`
	Limit int      `default:"10" help:"Maximum number of filings"`
}

func (c *FilingsCmd) Run(g *globals) error {
	f := g.cfg.Fetcher(g.logger)
	info, err := f.CompanyInfo(context.Background(), c.CIK)
	if err != nil {
		return err
	}
	filings := f.GetFilings(info, c.Form, c.Limit)
	g.logger.Info("listed filings", zap.String("company", info.Name), zap.Int("count", len(filings)))
	return printJSON(filings)
}

// VersionCmd prints version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Printf("xbrlparse version %s\n", version)
	return nil
}

func readSource(ctx context.Context, g *globals, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		u, err := url.Parse(source)
		if err != nil {
			return nil, fmt.Errorf("invalid source url: %w", err)
		}
		// A URL given on the command line is trusted as is.
		f := g.cfg.Fetcher(g.logger)
		f.AllowedOrigins = append(f.AllowedOrigins, u.Scheme+"://"+u.Host)
		return f.Fetch(ctx, source)
	}
	raw, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}
	return raw, nil
}

func diagnosticSink(g *globals) (xbrl.DiagnosticSink, error) {
	if g.cfg.ErrorPolicy != xbrl.PolicyLogging {
		return xbrl.NopSink{}, nil
	}
	return xbrl.NewFileSink(g.cfg.DiagnosticLog)
}

func openCache(ctx context.Context, g *globals) *store.SnapshotCache {
	return store.OpenSnapshotCache(ctx, g.cfg.DatabaseURL, filepath.Join(g.cfg.CacheDir, "snapshots"), g.logger)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func applyFlags(cfg *config.Config) error {
	if CLI.Policy != "" {
		p, err := xbrl.ParseErrorPolicy(CLI.Policy)
		if err != nil {
			return err
		}
		cfg.ErrorPolicy = p
	}
	if CLI.Repair != "" {
		m, err := repair.ParseMode(CLI.Repair)
		if err != nil {
			return err
		}
		cfg.RepairMode = m
	}
	if CLI.Backend != "" {
		b, err := markup.ParseBackend(CLI.Backend)
		if err != nil {
			return err
		}
		cfg.Backend = b
	}
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("xbrlparse"),
		kong.Description("Extract financial facts from XBRL instance documents"),
		kong.UsageOnError(),
	)

	cfg, err := config.Load()
	ctx.FatalIfErrorf(err)
	ctx.FatalIfErrorf(applyFlags(cfg))

	logger := zap.NewNop()
	if CLI.Verbose {
		logger, err = zap.NewDevelopment()
		ctx.FatalIfErrorf(err)
	}
	defer logger.Sync()

	err = ctx.Run(&globals{cfg: cfg, logger: logger})
	ctx.FatalIfErrorf(err)
}
