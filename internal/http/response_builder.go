package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"dompet/internal/core"
	"dompet/internal/log"
)

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
	Index *int   `json:"index,omitempty"`
}

// requestError is a malformed request: bad JSON, a missing or unparseable
// parameter. It maps to 400.
type requestError struct {
	Field string
	Err   error
}

func (e *requestError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *requestError) Unwrap() error { return e.Err }

func badRequest(field string, err error) error {
	return &requestError{Field: field, Err: err}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the domain error types onto HTTP status codes.
func statusFor(err error) int {
	var (
		re *requestError
		ie *core.ImportFormatError
		mb *http.MaxBytesError
	)
	switch {
	case errors.As(err, &mb):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &re), errors.As(err, &ie):
		return http.StatusBadRequest
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity
	case core.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"error": ...}. Internal failures are logged and
// their detail is withheld from the client.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var (
		ve *core.ValidationError
		re *requestError
		ie *core.ImportFormatError
	)
	switch {
	case errors.As(err, &ve):
		resp.Field = ve.Field
	case errors.As(err, &re):
		resp.Field = re.Field
	case errors.As(err, &ie):
		resp.Field = ie.Field
		if ie.Index >= 0 {
			idx := ie.Index
			resp.Index = &idx
		}
	}

	logger := log.NewStructuredLogger(log.FromContext(r.Context()))
	if status >= http.StatusInternalServerError {
		logger.LogError(r.Context(), "Request failed", err, op, nil)
		resp = errorResponse{Error: "internal error"}
	} else {
		log.FromContext(r.Context()).DebugContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldStatusCode, status,
			log.FieldError, err)
	}
	writeJSON(w, status, resp)
}
