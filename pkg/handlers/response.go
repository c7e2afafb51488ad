package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medscan-io/report-engine/pkg/apperrors"
	"github.com/medscan-io/report-engine/pkg/services"
)

// ErrorResponse writes a JSON error response and returns any encoding error.
func ErrorResponse(w http.ResponseWriter, statusCode int, errorCode, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(map[string]string{
		"error":   errorCode,
		"message": message,
	})
}

// WriteJSON writes a JSON response and returns any encoding error.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	if statusCode != http.StatusOK {
		w.WriteHeader(statusCode)
	}
	return json.NewEncoder(w).Encode(data)
}

// serviceError maps domain errors to an HTTP status and error code. Unknown
// errors fall through to 500 so callers never leak internals.
func serviceError(err error) (int, string, string) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound, "not_found", "resource not found"
	case errors.Is(err, apperrors.ErrStateConflict):
		return http.StatusConflict, "state_conflict", "resource changed since it was read"
	case errors.Is(err, apperrors.ErrDocumentLeased):
		return http.StatusConflict, "document_leased", "document is currently being processed"
	case errors.Is(err, apperrors.ErrMappingCycle):
		return http.StatusBadRequest, "mapping_cycle", "a parameter cannot be mapped to itself"
	case errors.Is(err, apperrors.ErrUnknownTarget):
		return http.StatusBadRequest, "unknown_target", "mapping target is not an approved canonical name"
	case errors.Is(err, services.ErrEmptyDocument):
		return http.StatusBadRequest, "empty_document", "document has no text content"
	case errors.Is(err, services.ErrReasonRequired):
		return http.StatusBadRequest, "missing_reason", "reason is required"
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}
