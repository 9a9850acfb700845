// Package xbrl provides HTTP API handlers for parsing XBRL instance
// documents and reading the cached snapshots back.
package xbrl

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"xbrl_facts/pkg/core/ingest"
	"xbrl_facts/pkg/core/store"
	coreXbrl "xbrl_facts/pkg/core/xbrl"
)

// maxDocumentBytes caps uploaded instance documents.
const maxDocumentBytes = 64 << 20

// Snapshots is the cache the handler reads and writes.
type Snapshots interface {
	Put(ctx context.Context, source string, raw []byte, res *coreXbrl.ParseResult) (*store.SnapshotEntry, error)
	Get(ctx context.Context, fingerprint string) (*store.SnapshotEntry, error)
}

// Handler holds dependencies for the XBRL endpoints.
type Handler struct {
	parser  *coreXbrl.Parser
	cache   Snapshots
	fetcher *ingest.Fetcher
	logger  *zap.Logger
}

// NewHandler creates a handler. fetcher may be nil, in which case only
// uploaded documents can be parsed.
func NewHandler(parser *coreXbrl.Parser, cache Snapshots, fetcher *ingest.Fetcher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{parser: parser, cache: cache, fetcher: fetcher, logger: logger.Named("api")}
}

// Register mounts the endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api/xbrl", func(r chi.Router) {
		r.Post("/parse", h.HandleParse)
		r.Get("/{fingerprint}", h.HandleSnapshot)
		r.Get("/{fingerprint}/report", h.HandleReport)
		r.Get("/{fingerprint}/quarterly", h.HandleQuarterly)
		r.Get("/{fingerprint}/yearly", h.HandleYearly)
	})
}

// ParseRequest asks the server to fetch a document instead of receiving it
// in the body. Either URL or the CIK/accession/document triple is set.
type ParseRequest struct {
	URL             string `json:"url"`
	CIK             string `json:"cik"`
	AccessionNumber string `json:"accession_number"`
	Document        string `json:"document"`
}

// HandleParse handles POST /api/xbrl/parse.
// A JSON body is a ParseRequest; any other body is the document itself.
func (h *Handler) HandleParse(w http.ResponseWriter, r *http.Request) {
	raw, source, err := h.readDocument(w, r)
	if err != nil {
		var fe *fetchError
		if errors.As(err, &fe) {
			jsonError(w, err.Error(), http.StatusBadGateway)
		} else {
			jsonError(w, err.Error(), http.StatusBadRequest)
		}
		return
	}

	res, err := h.parser.ParseBytes(raw)
	if err != nil {
		h.logger.Warn("parse failed", zap.String("source", source), zap.Error(err))
		jsonError(w, err.Error(), statusFor(err))
		return
	}

	entry, err := h.cache.Put(r.Context(), source, raw, res)
	if err != nil {
		h.logger.Error("snapshot save failed", zap.String("source", source), zap.Error(err))
		jsonError(w, "failed to save snapshot: "+err.Error(), http.StatusInternalServerError)
		return
	}
	h.logger.Info("document parsed",
		zap.String("fingerprint", entry.Fingerprint),
		zap.String("source", source),
		zap.Int("contexts", res.Contexts.Len()),
	)
	writeJSON(w, http.StatusCreated, entry)
}

type fetchError struct{ err error }

func (e *fetchError) Error() string { return e.err.Error() }
func (e *fetchError) Unwrap() error { return e.err }

func (h *Handler) readDocument(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	body := http.MaxBytesReader(w, r.Body, maxDocumentBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, "", err
		}
		if len(raw) == 0 {
			return nil, "", errors.New("empty request body")
		}
		return raw, "upload", nil
	}

	var req ParseRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, "", errors.New("invalid request body")
	}
	if h.fetcher == nil {
		return nil, "", errors.New("remote fetching is disabled")
	}
	switch {
	case req.URL != "":
		raw, err := h.fetcher.Fetch(r.Context(), req.URL)
		if errors.Is(err, ingest.ErrURLNotAllowed) {
			return nil, "", err
		}
		if err != nil {
			return nil, "", &fetchError{err}
		}
		return raw, req.URL, nil
	case req.CIK != "" && req.AccessionNumber != "" && req.Document != "":
		raw, url, err := h.fetcher.FetchFiling(r.Context(), req.CIK, req.AccessionNumber, req.Document)
		if err != nil {
			return nil, "", &fetchError{err}
		}
		return raw, url, nil
	}
	return nil, "", errors.New("url or cik, accession_number and document are required")
}

// HandleSnapshot handles GET /api/xbrl/{fingerprint}
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// HandleReport handles GET /api/xbrl/{fingerprint}/report?period=quarter&end=2020-06-30
func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.lookup(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	period := q.Get("period")
	if period == "" {
		period = "instant"
	}
	sel, err := coreXbrl.ParseSelector(period)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	end, err := coreXbrl.ParseEndDate(q.Get("end"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := entry.Result.ReportAt(sel, end)
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleQuarterly handles GET /api/xbrl/{fingerprint}/quarterly?fields=revenues,net_income_loss
func (h *Handler) HandleQuarterly(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.lookup(w, r)
	if !ok {
		return
	}
	data, err := entry.Result.Quarterly(h.fields(r))
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// HandleYearly handles GET /api/xbrl/{fingerprint}/yearly?fields=revenues
func (h *Handler) HandleYearly(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.lookup(w, r)
	if !ok {
		return
	}
	data, err := entry.Result.Yearly(h.fields(r))
	if err != nil {
		jsonError(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*store.SnapshotEntry, bool) {
	fp := chi.URLParam(r, "fingerprint")
	entry, err := h.cache.Get(r.Context(), fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "unknown document "+fp, http.StatusNotFound)
		} else {
			h.logger.Error("snapshot load failed", zap.String("fingerprint", fp), zap.Error(err))
			jsonError(w, err.Error(), http.StatusInternalServerError)
		}
		return nil, false
	}
	return entry, true
}

// fields reads the comma-separated fields parameter, defaulting to every
// GAAP concept of the parser's table.
func (h *Handler) fields(r *http.Request) []string {
	raw := r.URL.Query().Get("fields")
	if raw == "" {
		return h.parser.Concepts().Keys(coreXbrl.GroupGAAP)
	}
	var fields []string
	for _, f := range strings.Split(raw, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, coreXbrl.ErrInvalidSelector), errors.Is(err, coreXbrl.ErrUnknownConcept):
		return http.StatusBadRequest
	case errors.Is(err, coreXbrl.ErrNoContextMatch):
		return http.StatusNotFound
	}
	return http.StatusUnprocessableEntity
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
