package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fleetdesk/dispatch/internal/domain"
)

// errorResponse is the uniform error envelope returned by every endpoint.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// respondJSON writes v as a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

// respondError maps a service error onto the HTTP error taxonomy:
// unknown resources are 404, malformed or rule-violating input is 422, and
// state conflicts (illegal transitions, schedule overlaps) are 409.
// Anything unmapped is a 500 with the detail kept out of the response body.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorResponse{errorDetail{Code: "not_found", Message: err.Error()}})
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidRange):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{errorDetail{Code: "validation_error", Message: err.Error()}})
	case errors.Is(err, domain.ErrInvalidSequence):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{errorDetail{Code: "invalid_sequence", Message: err.Error()}})
	case errors.Is(err, domain.ErrScheduleConflict):
		respondJSON(w, http.StatusConflict, errorResponse{errorDetail{Code: "schedule_conflict", Message: err.Error()}})
	case errors.Is(err, domain.ErrIllegalTransition):
		respondJSON(w, http.StatusConflict, errorResponse{errorDetail{Code: "illegal_transition", Message: err.Error()}})
	default:
		slog.Error("unhandled error", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorResponse{errorDetail{Code: "internal", Message: "internal server error"}})
	}
}

// badRequest writes a 422 for a request rejected before reaching the service
// layer (malformed id, missing or malformed body).
func badRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusUnprocessableEntity, errorResponse{errorDetail{Code: "validation_error", Message: message}})
}
