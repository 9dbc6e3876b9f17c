package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/iho/ledgercal/internal/adapter/http/dto"
	"github.com/iho/ledgercal/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownAccount):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrFutureDate):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrFutureTransaction),
		errors.Is(err, domain.ErrNegativeBalance),
		errors.Is(err, domain.ErrDuplicateID):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// parseInstant parses a query instant accepted in two shapes: a full
// RFC3339 timestamp, or a calendar day (2006-01-02) interpreted in
// loc. The second return value reports the day-only shape so callers
// can apply end-of-day semantics.
func parseInstant(value string, loc *time.Location) (time.Time, bool, error) {
	if at, err := time.Parse(time.RFC3339, value); err == nil {
		return at, false, nil
	}
	at, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, false, err
	}
	return at, true, nil
}

// parseDay parses a calendar day path segment in loc.
func parseDay(value string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", value, loc)
}
