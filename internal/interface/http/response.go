// Package http exposes the engine's REST interface on chi.
package http

import (
	"encoding/json"
	"net/http"

	"github.com/bizhub-io/gamification-engine/internal/domain/shared"
)

type apiError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

type errorResponse struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: message}})
}

// writeDomainError maps domain error kinds to HTTP statuses. Conflicts are
// marked retryable so clients back off and retry instead of dropping the
// action.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case shared.IsValidation(err):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())
	case shared.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case shared.IsConflict(err):
		writeJSON(w, http.StatusConflict, errorResponse{Error: apiError{
			Code:      "concurrent_update",
			Message:   err.Error(),
			Retryable: true,
		}})
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
