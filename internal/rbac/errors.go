// ABOUTME: Typed failures for permission snapshot fetches.
// ABOUTME: Distinguishes network failures, malformed bodies, denials and other statuses.

package rbac

import (
	"errors"
	"fmt"
)

// Kind classifies a snapshot fetch failure
type Kind string

const (
	KindNetwork      Kind = "network"
	KindMalformed    Kind = "malformed"
	KindUnauthorized Kind = "unauthorized"
	KindStatus       Kind = "status"
)

// FetchError is the failure result of a snapshot fetch
type FetchError struct {
	Kind       Kind
	StatusCode int // 0 unless the backend answered
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindUnauthorized:
		return fmt.Sprintf("not authorized to read permissions (status %d)", e.StatusCode)
	case KindStatus:
		return fmt.Sprintf("permission request failed with status %d", e.StatusCode)
	case KindMalformed:
		return fmt.Sprintf("malformed permission response: %v", e.Err)
	default:
		return fmt.Sprintf("permission request failed: %v", e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Message is the human-readable text shown instead of raw error details
func (e *FetchError) Message() string {
	switch e.Kind {
	case KindUnauthorized:
		return "You are not allowed to view permissions for this server."
	case KindMalformed:
		return "The server returned permissions we could not read."
	default:
		return "Permissions could not be loaded. Try again shortly."
	}
}

// StatusError builds the FetchError for a non-2xx response
func StatusError(status int) *FetchError {
	if status == 401 || status == 403 {
		return &FetchError{Kind: KindUnauthorized, StatusCode: status}
	}
	return &FetchError{Kind: KindStatus, StatusCode: status}
}

// AsFetchError classifies any error as a FetchError. Unclassified errors count as network failures.
func AsFetchError(err error) *FetchError {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	return &FetchError{Kind: KindNetwork, Err: err}
}
