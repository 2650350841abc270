// ABOUTME: Standardized JSON error bodies for HTTP handlers.
// ABOUTME: Maps permission fetch failures onto stable codes and statuses.

package errors

import (
	"encoding/json"
	"net/http"

	"github.com/2389/teamhub/internal/rbac"
)

// ErrorResponse is the JSON body of every API error.
//
// Usage:
//
//	WriteError(w, http.StatusNotFound, ErrNotFound, "Channel not found")
type ErrorResponse struct {
	Code    string `json:"code"`            // machine-readable, e.g. "forbidden"
	Message string `json:"message"`         // safe to show to end users
	Status  int    `json:"status"`          // mirrors the HTTP status
	Field   string `json:"field,omitempty"` // form field that failed validation
	Kind    string `json:"kind,omitempty"`  // permission fetch failure kind
}

// Error codes
const (
	ErrInvalidRequest   = "invalid_request"
	ErrMissingField     = "missing_field"
	ErrValidationFailed = "validation_failed"
	ErrNotFound         = "not_found"
	ErrUnauthorized     = "unauthorized"
	ErrForbidden        = "forbidden"
	ErrUnsupportedType  = "unsupported_channel_type"

	ErrInternal           = "internal_error"
	ErrUpstream           = "upstream_error"
	ErrServiceUnavailable = "service_unavailable"
	ErrPermissionsPending = "permissions_pending"
)

// WriteError writes a standardized error response
func WriteError(w http.ResponseWriter, status int, code, message string) {
	write(w, ErrorResponse{Code: code, Message: message, Status: status})
}

// WriteErrorWithField writes a validation error naming the offending form field
func WriteErrorWithField(w http.ResponseWriter, status int, code, message, field string) {
	write(w, ErrorResponse{Code: code, Message: message, Status: status, Field: field})
}

// WriteFetchError writes the response for a failed permission snapshot fetch.
// The message is the user-facing text, never the raw cause.
func WriteFetchError(w http.ResponseWriter, fe *rbac.FetchError) {
	resp := ErrorResponse{Message: fe.Message(), Kind: string(fe.Kind)}
	switch fe.Kind {
	case rbac.KindUnauthorized:
		resp.Status, resp.Code = http.StatusForbidden, ErrForbidden
	case rbac.KindNetwork:
		resp.Status, resp.Code = http.StatusServiceUnavailable, ErrServiceUnavailable
	default:
		resp.Status, resp.Code = http.StatusBadGateway, ErrUpstream
	}
	write(w, resp)
}

func write(w http.ResponseWriter, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	_ = json.NewEncoder(w).Encode(resp)
}
