package config

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	coreConfig "xbrl_facts/pkg/core/config"
	"xbrl_facts/pkg/core/xbrl"
)

// Response describes the settings the server parses documents with.
type Response struct {
	ErrorPolicy  string   `json:"error_policy"`
	RepairMode   string   `json:"repair_mode"`
	TreeBackend  string   `json:"tree_backend"`
	SnapshotDB   bool     `json:"snapshot_db"`
	GAAPConcepts []string `json:"gaap_concepts"`
	DEIConcepts  []string `json:"dei_concepts"`
}

// Handler holds dependencies for config endpoints
type Handler struct {
	Config   *coreConfig.Config
	Concepts *xbrl.ConceptTable
}

// NewHandler creates a new config handler
func NewHandler(cfg *coreConfig.Config, concepts *xbrl.ConceptTable) *Handler {
	return &Handler{
		Config:   cfg,
		Concepts: concepts,
	}
}

// Register mounts GET /api/config on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/config", h.HandleConfig)
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers for local dev
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")

	resp := Response{
		ErrorPolicy:  h.Config.ErrorPolicy.String(),
		RepairMode:   string(h.Config.RepairMode),
		TreeBackend:  string(h.Config.Backend),
		SnapshotDB:   h.Config.DatabaseURL != "",
		GAAPConcepts: h.Concepts.Keys(xbrl.GroupGAAP),
		DEIConcepts:  h.Concepts.Keys(xbrl.GroupDEI),
	}
	json.NewEncoder(w).Encode(resp)
}
