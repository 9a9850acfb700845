// Package ingest downloads XBRL instance documents from SEC EDGAR.
package ingest

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zeebo/blake3"
	"go.uber.org/zap"
)

// ErrURLNotAllowed is returned by Fetch for URLs outside AllowedOrigins.
var ErrURLNotAllowed = errors.New("url not allowed")

// SECOrigins are the origins a new Fetcher accepts caller-supplied URLs for.
var SECOrigins = []string{"https://www.sec.gov", "https://data.sec.gov"}

// Fetcher downloads documents with the SEC-required User-Agent and keeps a
// copy of every successful download in cacheDir.
type Fetcher struct {
	httpClient *http.Client
	cacheDir   string // empty disables the cache
	logger     *zap.Logger

	// URL templates, overridable in tests.
	SubmissionsURL string
	FilingURL      string

	// AllowedOrigins lists the scheme://host pairs Fetch may download from.
	AllowedOrigins []string
}

// NewFetcher creates a fetcher. If cacheDir is provided, downloads are
// cached under cacheDir/documents. A nil logger discards log output.
func NewFetcher(cacheDir string, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		cacheDir:       cacheDir,
		logger:         logger.Named("fetcher"),
		SubmissionsURL: SECSubmissionsURL,
		FilingURL:      SECFilingURL,
		AllowedOrigins: append([]string(nil), SECOrigins...),
	}
}

// CheckURL reports whether rawURL points at one of the allowed origins.
func (f *Fetcher) CheckURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrURLNotAllowed, err)
	}
	if u.User != nil || u.Host == "" {
		return fmt.Errorf("%w: %s", ErrURLNotAllowed, rawURL)
	}
	origin := u.Scheme + "://" + u.Host
	for _, allowed := range f.AllowedOrigins {
		if strings.EqualFold(origin, allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s is not an allowed origin", ErrURLNotAllowed, origin)
}

// Fetch returns the body at rawURL, serving repeated requests from the
// cache. The URL must pass CheckURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if err := f.CheckURL(rawURL); err != nil {
		return nil, err
	}
	return f.fetch(ctx, rawURL)
}

func (f *Fetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	cachePath := f.cachePath(url)
	if cachePath != "" {
		if content, err := os.ReadFile(cachePath); err == nil && len(content) > 0 {
			return content, nil
		}
	}

	body, err := f.get(ctx, url, "application/xml, text/xml, */*")
	if err != nil {
		return nil, err
	}

	if cachePath != "" {
		if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
			f.logger.Warn("cache dir unavailable", zap.Error(err))
		} else if err := os.WriteFile(cachePath, body, 0644); err != nil {
			f.logger.Warn("failed to cache document", zap.String("url", url), zap.Error(err))
		}
	}
	return body, nil
}

// FetchFiling downloads one document of a filing from the EDGAR archives
// and returns it with the URL it came from.
func (f *Fetcher) FetchFiling(ctx context.Context, cik, accessionNumber, document string) ([]byte, string, error) {
	url := f.filingDocumentURL(cik, accessionNumber, document)
	body, err := f.fetch(ctx, url)
	return body, url, err
}

func (f *Fetcher) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", accept)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("SEC request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("SEC returned status %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

func (f *Fetcher) cachePath(url string) string {
	if f.cacheDir == "" {
		return ""
	}
	sum := blake3.Sum256([]byte(url))
	return filepath.Join(f.cacheDir, "documents", hex.EncodeToString(sum[:16]))
}
