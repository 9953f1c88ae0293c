package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"coffeeapi/internal/database"

	"github.com/rs/zerolog/log"
)

// writeJSON writes a JSON response with the specified status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError writes the standard {"error": message} body
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeStoreError maps store errors onto HTTP statuses. Backend failures are
// logged with their cause and reported with a generic message.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "Coffee not found")
	case errors.Is(err, database.ErrConflict):
		writeError(w, http.StatusConflict, "Coffee already exists")
	case errors.Is(err, database.ErrUnavailable):
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Store unavailable")
		writeError(w, http.StatusServiceUnavailable, "Database not configured")
	default:
		log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("Store operation failed")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
