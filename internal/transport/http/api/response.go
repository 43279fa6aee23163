package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"perftrack/internal/domain/workflow"
)

type Error struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type Envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     *Error `json:"error,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, payload Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("write json failed", "err", err)
	}
}

func Success(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusOK, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Created(w http.ResponseWriter, data any, requestID string) {
	WriteJSON(w, http.StatusCreated, Envelope{Success: true, Data: data, RequestID: requestID})
}

func Fail(w http.ResponseWriter, status int, code, message, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message}, RequestID: requestID})
}

func FailWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]any, requestID string) {
	WriteJSON(w, status, Envelope{Success: false, Error: &Error{Code: code, Message: message, Details: details}, RequestID: requestID})
}

// FailError maps workflow errors to HTTP statuses. Validation errors carry
// their field issues. Anything unrecognised is logged and reported as a 500
// without leaking its text.
func FailError(w http.ResponseWriter, err error, requestID string) {
	var verr *workflow.ValidationError
	if errors.As(err, &verr) {
		FailWithDetails(w, http.StatusBadRequest, "validation_error", "payload validation failed", map[string]any{"fields": verr.Issues}, requestID)
		return
	}
	status, code := Classify(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "err", err, "requestId", requestID)
		Fail(w, status, code, "internal error", requestID)
		return
	}
	Fail(w, status, code, err.Error(), requestID)
}

func Classify(err error) (int, string) {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, workflow.ErrUnauthorized):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, workflow.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, workflow.ErrAlreadySubmitted):
		return http.StatusConflict, "already_submitted"
	case errors.Is(err, workflow.ErrInvalidState):
		return http.StatusConflict, "invalid_state"
	case errors.Is(err, workflow.ErrNoActiveCycle):
		return http.StatusConflict, "no_active_cycle"
	}
	return http.StatusInternalServerError, "internal_error"
}
