package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/finquery/internal/services/aliases"
)

// IndexInfo describes the alias index being served.
type IndexInfo struct {
	Version           string                     `json:"version"`
	BuiltAt           time.Time                  `json:"built_at"`
	Source            string                     `json:"source"`
	Tickers           int                        `json:"tickers"`
	Aliases           int                        `json:"aliases"`
	Overrides         int                        `json:"overrides"`
	Collisions        []aliases.Collision        `json:"collisions"`
	OverrideConflicts []aliases.OverrideConflict `json:"override_conflicts"`
}

// IndexHandler handles alias index inspection and rebuilds
type IndexHandler struct {
	index  IndexProvider
	logger arbor.ILogger
}

// NewIndexHandler creates a new IndexHandler
func NewIndexHandler(index IndexProvider, logger arbor.ILogger) *IndexHandler {
	return &IndexHandler{
		index:  index,
		logger: logger,
	}
}

// InfoHandler handles GET /api/index
func (h *IndexHandler) InfoHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	snap := h.index.Snapshot()
	if snap == nil {
		WriteError(w, http.StatusServiceUnavailable, "alias index not built")
		return
	}

	report := snap.Index.Report()
	info := IndexInfo{
		Version:           report.Version,
		BuiltAt:           snap.BuiltAt.UTC(),
		Source:            snap.Source,
		Tickers:           report.Tickers,
		Aliases:           report.Aliases,
		Overrides:         report.Overrides,
		Collisions:        report.Collisions,
		OverrideConflicts: report.OverrideConflicts,
	}
	if info.Collisions == nil {
		info.Collisions = []aliases.Collision{}
	}
	if info.OverrideConflicts == nil {
		info.OverrideConflicts = []aliases.OverrideConflict{}
	}
	WriteJSON(w, http.StatusOK, info)
}

// RebuildHandler handles POST /api/index/rebuild. A failed rebuild leaves the
// previous index serving.
func (h *IndexHandler) RebuildHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	report, err := h.index.Rebuild(r.Context())
	if err != nil {
		h.logger.Warn().Err(err).Msg("Alias index rebuild requested over HTTP failed")
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// EntryHandler handles GET /api/index/entries/{ticker}
func (h *IndexHandler) EntryHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	ticker := strings.TrimPrefix(r.URL.Path, "/api/index/entries/")
	if ticker == "" || strings.Contains(ticker, "/") {
		WriteError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	snap := h.index.Snapshot()
	if snap == nil {
		WriteError(w, http.StatusServiceUnavailable, "alias index not built")
		return
	}

	entry, ok := snap.Index.Entry(ticker)
	if !ok {
		WriteError(w, http.StatusNotFound, "ticker not in universe: "+ticker)
		return
	}
	WriteJSON(w, http.StatusOK, entry)
}
