package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/finquery/internal/interfaces"
	"github.com/ternarybob/finquery/internal/models"
)

// QueryLogHandler serves recorded resolutions and keyword counters
type QueryLogHandler struct {
	storage interfaces.QueryLogStorage
	logger  arbor.ILogger
}

// NewQueryLogHandler creates a new QueryLogHandler. storage is nil when the
// query log is disabled.
func NewQueryLogHandler(storage interfaces.QueryLogStorage, logger arbor.ILogger) *QueryLogHandler {
	return &QueryLogHandler{
		storage: storage,
		logger:  logger,
	}
}

// ListHandler handles GET /api/querylog?outcome=&limit=
func (h *QueryLogHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}
	if h.storage == nil {
		WriteError(w, http.StatusNotFound, "query log is disabled")
		return
	}

	outcome := r.URL.Query().Get("outcome")
	switch outcome {
	case "", models.OutcomeResolved, models.OutcomeFuzzy, models.OutcomeNotFound:
	default:
		WriteError(w, http.StatusBadRequest, "unknown outcome: "+outcome)
		return
	}
	limit := GetLimitParam(r, 50, 500)

	records, err := h.storage.ListRecent(r.Context(), outcome, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list query log records")
		WriteError(w, http.StatusInternalServerError, "Failed to list query log")
		return
	}
	keywords, err := h.storage.TopKeywords(r.Context(), outcome, limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list keyword counters")
		WriteError(w, http.StatusInternalServerError, "Failed to list query log")
		return
	}

	if records == nil {
		records = []models.QueryLogRecord{}
	}
	if keywords == nil {
		keywords = []models.KeywordLookup{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"records":  records,
		"keywords": keywords,
	})
}
