package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/finquery/internal/interfaces"
	"github.com/ternarybob/finquery/internal/models"
	"github.com/ternarybob/finquery/internal/services/aliases"
)

// ResolveRequest is the POST body for /api/resolve and /api/attribute.
type ResolveRequest struct {
	Query   string `json:"query"`
	Year    int    `json:"year,omitempty"`
	Quarter int    `json:"quarter,omitempty"`
}

// ResolveHandler exposes the intent pipeline over HTTP
type ResolveHandler struct {
	service    interfaces.IntentService
	attributor NumberAttributor
	logger     arbor.ILogger
}

// NewResolveHandler creates a new ResolveHandler
func NewResolveHandler(service interfaces.IntentService, attributor NumberAttributor, logger arbor.ILogger) *ResolveHandler {
	return &ResolveHandler{
		service:    service,
		attributor: attributor,
		logger:     logger,
	}
}

// ResolveHandler handles GET /api/resolve?q=&year=&quarter= and POST /api/resolve
func (h *ResolveHandler) ResolveHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readRequest(w, r)
	if !ok {
		return
	}

	intent, err := h.service.Resolve(r.Context(), req.Query, models.PeriodAnchor{Year: req.Year, Quarter: req.Quarter})
	if err != nil {
		h.writeResolveError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, intent)
}

// AttributeHandler handles GET|POST /api/attribute, returning each number in
// the query with the metric it belongs to
func (h *ResolveHandler) AttributeHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := h.readRequest(w, r)
	if !ok {
		return
	}

	numbers, warnings := h.attributor.AttributeNumbers(req.Query)
	if numbers == nil {
		numbers = []models.NumberAttribution{}
	}
	if warnings == nil {
		warnings = []string{}
	}
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"query":    req.Query,
		"numbers":  numbers,
		"warnings": warnings,
	})
}

func (h *ResolveHandler) readRequest(w http.ResponseWriter, r *http.Request) (ResolveRequest, bool) {
	var req ResolveRequest

	switch r.Method {
	case http.MethodGet:
		anchor, err := ParseAnchor(r)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return req, false
		}
		req = ResolveRequest{Query: r.URL.Query().Get("q"), Year: anchor.Year, Quarter: anchor.Quarter}
	case http.MethodPost:
		if err := DecodeJSON(w, r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return req, false
		}
		if err := ValidateAnchor(models.PeriodAnchor{Year: req.Year, Quarter: req.Quarter}); err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return req, false
		}
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return req, false
	}

	if strings.TrimSpace(req.Query) == "" {
		WriteError(w, http.StatusBadRequest, "query is required")
		return req, false
	}
	return req, true
}

func (h *ResolveHandler) writeResolveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, aliases.ErrIndexNotBuilt):
		WriteError(w, http.StatusServiceUnavailable, "alias index not built")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		WriteError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		h.logger.Error().Err(err).Msg("Failed to resolve query")
		WriteError(w, http.StatusInternalServerError, "Failed to resolve query")
	}
}
