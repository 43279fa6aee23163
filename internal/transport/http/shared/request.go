package shared

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"perftrack/internal/domain/auth"
	"perftrack/internal/requestctx"
	"perftrack/internal/transport/http/api"
)

// Caller returns the authenticated caller or writes a 401.
func Caller(w http.ResponseWriter, r *http.Request) (auth.Caller, bool) {
	caller, ok := requestctx.GetCaller(r.Context())
	if !ok {
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestctx.GetRequestID(r.Context()))
	}
	return caller, ok
}

// PathID parses a positive integer URL parameter or writes a 400.
func PathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		api.Fail(w, http.StatusBadRequest, "invalid_id", name+" must be a positive integer", requestctx.GetRequestID(r.Context()))
		return 0, false
	}
	return id, true
}

// QueryID parses an optional integer query parameter; absent means zero.
func QueryID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}

// Decode reads a JSON body, rejecting unknown fields. An empty body leaves
// dst untouched. Oversized bodies surface as 413 when BodyLimit is installed.
func Decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		requestID := requestctx.GetRequestID(r.Context())
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large", requestID)
			return false
		}
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestID)
		return false
	}
	return true
}

// Fail writes err using the workflow error mapping.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	api.FailError(w, err, requestctx.GetRequestID(r.Context()))
}

func OK(w http.ResponseWriter, r *http.Request, data any) {
	api.Success(w, data, requestctx.GetRequestID(r.Context()))
}

func Created(w http.ResponseWriter, r *http.Request, data any) {
	api.Created(w, data, requestctx.GetRequestID(r.Context()))
}
