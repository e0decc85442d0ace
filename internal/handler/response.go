package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/set-night/invoicedesk/internal/domain"
	"github.com/set-night/invoicedesk/internal/middleware"
)

type errorResponse struct {
	Detail    string            `json:"detail"`
	Errors    map[string]string `json:"errors,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// badRequestError marks malformed input that never reached the domain.
type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(msg string) error {
	return &badRequestError{msg: msg}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeDetail(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail, RequestID: middleware.GetRequestID(r.Context())})
}

// writeError maps service errors onto HTTP statuses. Unexpected errors are
// logged and hidden behind a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.GetRequestID(r.Context())

	var verr *domain.ValidationError
	var bad *badRequestError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Detail:    "validation failed",
			Errors:    verr.Fields,
			RequestID: requestID,
		})
	case errors.As(err, &bad):
		writeDetail(w, r, http.StatusBadRequest, bad.msg)
	case domain.IsNotFound(err):
		writeDetail(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrIdempotencyConflict):
		writeDetail(w, r, http.StatusConflict, err.Error())
	case domain.IsRuleViolation(err):
		writeDetail(w, r, http.StatusBadRequest, domain.Detail(err))
	default:
		slog.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID,
		)
		writeDetail(w, r, http.StatusInternalServerError, "internal server error")
	}
}
