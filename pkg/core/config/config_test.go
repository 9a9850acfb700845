package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"xbrl_facts/pkg/core/markup"
	"xbrl_facts/pkg/core/repair"
	"xbrl_facts/pkg/core/xbrl"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(env(nil))
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.ErrorPolicy != xbrl.PolicyPermissive {
		t.Errorf("ErrorPolicy = %v, want permissive", cfg.ErrorPolicy)
	}
	if cfg.RepairMode != repair.ModeSingle {
		t.Errorf("RepairMode = %v, want single", cfg.RepairMode)
	}
	if cfg.Backend != markup.BackendHTML {
		t.Errorf("Backend = %v, want html", cfg.Backend)
	}
	if cfg.DiagnosticLog != DefaultDiagnosticLog || cfg.ListenAddr != DefaultListenAddr || cfg.CacheDir != DefaultCacheDir {
		t.Errorf("paths = %+v", cfg)
	}
	if cfg.DatabaseURL != "" || cfg.ConceptsFile != "" {
		t.Errorf("optional settings should be empty: %+v", cfg)
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(env(map[string]string{
		"XBRL_ERROR_POLICY":   "2",
		"XBRL_REPAIR_MODE":    "stack",
		"XBRL_TREE_BACKEND":   "xml",
		"XBRL_DIAGNOSTIC_LOG": "/var/log/xbrl.log",
		"XBRL_LISTEN_ADDR":    "127.0.0.1:9000",
		"DATABASE_URL":        "postgres://localhost/xbrl",
		"XBRL_FETCH_ORIGINS":  "https://mirror.example.com/, http://localhost:8081",
	}))
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	if cfg.ErrorPolicy != xbrl.PolicyLogging || cfg.RepairMode != repair.ModeStack || cfg.Backend != markup.BackendXML {
		t.Errorf("parser settings = %+v", cfg)
	}
	if cfg.DiagnosticLog != "/var/log/xbrl.log" || cfg.ListenAddr != "127.0.0.1:9000" || cfg.DatabaseURL != "postgres://localhost/xbrl" {
		t.Errorf("service settings = %+v", cfg)
	}
	wantOrigins := []string{"https://mirror.example.com", "http://localhost:8081"}
	if diff := cmp.Diff(wantOrigins, cfg.FetchOrigins); diff != "" {
		t.Errorf("FetchOrigins mismatch (-want +got):\n%s", diff)
	}
	f := cfg.Fetcher(nil)
	if err := f.CheckURL("https://mirror.example.com/abc.xml"); err != nil {
		t.Errorf("configured origin rejected: %v", err)
	}
	if err := f.CheckURL("https://www.sec.gov/Archives/abc.xml"); err != nil {
		t.Errorf("SEC origin rejected: %v", err)
	}
	if err := f.CheckURL("https://other.example.com/abc.xml"); err == nil {
		t.Error("unlisted origin accepted")
	}
}

func TestFromEnv_Invalid(t *testing.T) {
	for _, key := range []string{"XBRL_ERROR_POLICY", "XBRL_REPAIR_MODE", "XBRL_TREE_BACKEND", "XBRL_FETCH_ORIGINS"} {
		if _, err := FromEnv(env(map[string]string{key: "bogus"})); err == nil {
			t.Errorf("FromEnv(%s=bogus) should fail", key)
		}
	}
}

func TestParserOptions_ConceptsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "concepts.yaml")
	data := "concepts:\n  - {key: backlog, match: [{namespace: abc, prefix: backlog}]}\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write table: %v", err)
	}

	cfg, err := FromEnv(env(map[string]string{"XBRL_CONCEPTS_FILE": path}))
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}
	opts, err := cfg.ParserOptions(nil)
	if err != nil {
		t.Fatalf("ParserOptions() error = %v", err)
	}
	p := xbrl.NewParser(opts...)
	if _, ok := p.Concepts().Lookup("backlog"); !ok {
		t.Error("parser did not pick up the concepts file")
	}

	cfg.ConceptsFile = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := cfg.ParserOptions(nil); err == nil {
		t.Error("ParserOptions() should fail for a missing concepts file")
	}
}
