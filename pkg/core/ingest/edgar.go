package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"
)

const (
	// SEC EDGAR API endpoints
	SECSubmissionsURL = "https://data.sec.gov/submissions/CIK%s.json"
	SECFilingURL      = "https://www.sec.gov/Archives/edgar/data/%s/%s"

	// Required User-Agent per SEC guidelines
	UserAgent = "XBRLFacts/1.0 (contact@example.com)"
)

// =============================================================================
// SEC EDGAR DATA TYPES
// =============================================================================

// SECCompanyInfo represents the top-level company submission response.
type SECCompanyInfo struct {
	CIK     string     `json:"cik"`
	Name    string     `json:"name"`
	Tickers []string   `json:"tickers"`
	Filings SECFilings `json:"filings"`
}

// SECFilings contains recent and older filing lists.
type SECFilings struct {
	Recent SECRecentFilings `json:"recent"`
}

// SECRecentFilings holds arrays of filing attributes (parallel arrays).
type SECRecentFilings struct {
	AccessionNumber []string `json:"accessionNumber"` // e.g., "0000037996-24-000012"
	FilingDate      []string `json:"filingDate"`      // e.g., "2024-02-06"
	ReportDate      []string `json:"reportDate"`      // Fiscal period end
	Form            []string `json:"form"`            // "10-K", "10-Q", "8-K"
	PrimaryDocument []string `json:"primaryDocument"` // filename
}

// Filing represents a single SEC filing (denormalized from parallel arrays).
type Filing struct {
	AccessionNumber string    `json:"accession_number"`
	FilingDate      time.Time `json:"filing_date"`
	ReportDate      time.Time `json:"report_date"`
	FormType        string    `json:"form_type"`
	PrimaryDocument string    `json:"primary_document"`
	URL             string    `json:"url"`
}

// InstanceDocument guesses the name of the standalone XBRL instance that
// accompanies the primary document ("abc-20200630.htm" -> "abc-20200630.xml").
func (f Filing) InstanceDocument() string {
	return strings.TrimSuffix(f.PrimaryDocument, path.Ext(f.PrimaryDocument)) + ".xml"
}

// CompanyInfo retrieves company submission data from SEC EDGAR.
//
// CIK should be zero-padded to 10 digits (e.g., "0000037996" for Ford).
// If not padded, this function will pad it automatically.
func (f *Fetcher) CompanyInfo(ctx context.Context, cik string) (*SECCompanyInfo, error) {
	url := fmt.Sprintf(f.SubmissionsURL, padCIK(cik))
	body, err := f.get(ctx, url, "application/json")
	if err != nil {
		return nil, err
	}

	var info SECCompanyInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse SEC response: %w", err)
	}
	return &info, nil
}

// GetFilings extracts filings filtered by form type, newest first as SEC
// lists them.
//
// formTypes: "10-K", "10-Q", etc. Pass nil for all types.
// limit: Maximum number of filings to return (0 = no limit).
func (f *Fetcher) GetFilings(info *SECCompanyInfo, formTypes []string, limit int) []Filing {
	recent := info.Filings.Recent
	filings := make([]Filing, 0)

	formTypeSet := make(map[string]bool)
	for _, ft := range formTypes {
		formTypeSet[ft] = true
	}

	for i := range recent.AccessionNumber {
		if i >= len(recent.Form) || i >= len(recent.PrimaryDocument) {
			break
		}
		if len(formTypes) > 0 && !formTypeSet[recent.Form[i]] {
			continue
		}

		var filingDate, reportDate time.Time
		if i < len(recent.FilingDate) {
			filingDate, _ = time.Parse("2006-01-02", recent.FilingDate[i])
		}
		if i < len(recent.ReportDate) {
			reportDate, _ = time.Parse("2006-01-02", recent.ReportDate[i])
		}

		filings = append(filings, Filing{
			AccessionNumber: recent.AccessionNumber[i],
			FilingDate:      filingDate,
			ReportDate:      reportDate,
			FormType:        recent.Form[i],
			PrimaryDocument: recent.PrimaryDocument[i],
			URL:             f.filingDocumentURL(info.CIK, recent.AccessionNumber[i], recent.PrimaryDocument[i]),
		})

		if limit > 0 && len(filings) >= limit {
			break
		}
	}

	return filings
}

// Format: https://www.sec.gov/Archives/edgar/data/{cik}/{accession-no-dashes}/{document}
func (f *Fetcher) filingDocumentURL(cik, accessionNumber, document string) string {
	accessionNoDashes := strings.ReplaceAll(accessionNumber, "-", "")
	return fmt.Sprintf(f.FilingURL, strings.TrimLeft(cik, "0"), accessionNoDashes+"/"+document)
}

func padCIK(cik string) string {
	return fmt.Sprintf("%010s", strings.TrimLeft(cik, "0"))
}
