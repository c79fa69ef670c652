package handlers

import (
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/finquery/internal/common"
)

type APIHandler struct {
	index   IndexProvider
	logger  arbor.ILogger
	started time.Time
}

// HealthStatus is the /api/health body.
type HealthStatus struct {
	Status          string  `json:"status"`
	Error           string  `json:"error,omitempty"`
	IndexVersion    string  `json:"index_version,omitempty"`
	Tickers         int     `json:"tickers"`
	IndexAgeSeconds float64 `json:"index_age_seconds"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
	BackgroundTasks int64   `json:"background_tasks_started"`
}

func NewAPIHandler(index IndexProvider, logger arbor.ILogger) *APIHandler {
	return &APIHandler{
		index:   index,
		logger:  logger,
		started: time.Now(),
	}
}

// VersionHandler returns version information
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.Build,
		"git_commit": common.GitCommit,
	})
}

// HealthHandler reports ok once an alias index is being served
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	status := HealthStatus{
		Status:          "ok",
		UptimeSeconds:   time.Since(h.started).Seconds(),
		BackgroundTasks: common.GetGoroutineCount(),
	}

	snap := h.index.Snapshot()
	if snap == nil {
		status.Status = "unavailable"
		status.Error = "alias index not built"
		WriteJSON(w, http.StatusServiceUnavailable, status)
		return
	}

	status.IndexVersion = snap.Index.Version()
	status.Tickers = len(snap.Index.Tickers())
	status.IndexAgeSeconds = time.Since(snap.BuiltAt).Seconds()
	WriteJSON(w, http.StatusOK, status)
}

// NotFoundHandler handles 404 errors with JSON response
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested endpoint does not exist",
	})
}
