package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ternarybob/finquery/internal/models"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 64 << 10

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// DecodeJSON reads a bounded JSON body into v.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// ParseAnchor reads the optional year and quarter query parameters.
func ParseAnchor(r *http.Request) (models.PeriodAnchor, error) {
	q := r.URL.Query()
	year, err := intParam(q.Get("year"))
	if err != nil {
		return models.PeriodAnchor{}, fmt.Errorf("invalid year: %w", err)
	}
	quarter, err := intParam(q.Get("quarter"))
	if err != nil {
		return models.PeriodAnchor{}, fmt.Errorf("invalid quarter: %w", err)
	}
	anchor := models.PeriodAnchor{Year: year, Quarter: quarter}
	return anchor, ValidateAnchor(anchor)
}

// ValidateAnchor rejects years outside 1900-2100 and quarters outside 1-4.
// A zero year means no anchor; a quarter without a year is rejected.
func ValidateAnchor(a models.PeriodAnchor) error {
	if a.Year == 0 {
		if a.Quarter != 0 {
			return fmt.Errorf("quarter requires a year")
		}
		return nil
	}
	if a.Year < 1900 || a.Year > 2100 {
		return fmt.Errorf("year %d out of range", a.Year)
	}
	if a.Quarter < 0 || a.Quarter > 4 {
		return fmt.Errorf("quarter %d out of range", a.Quarter)
	}
	return nil
}

// GetLimitParam reads the limit query parameter, defaulting to def and capped at max.
func GetLimitParam(r *http.Request, def, max int) int {
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
