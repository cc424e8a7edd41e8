// Package lifecycle is the single authority for report and assignment state
// transitions, supporter counting, feedback, and the aggregate views the
// dashboards consume. It talks to persistence only through the Store
// interface, so the same rules run against Postgres in production and the
// in-memory store in tests.
package lifecycle

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an engine failure. Validation and authorization failures are
// side-effect-free and must not be retried; Conflict and StorageUnavailable
// may be retried by the caller.
type Kind int

const (
	KindValidation Kind = iota
	KindForbidden
	KindNotFound
	KindInvalidTransition
	KindAlreadySupported
	KindAlreadyRated
	KindConflict
	KindStorageUnavailable
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInvalidTransition:
		return "invalid_transition"
	case KindAlreadySupported:
		return "already_supported"
	case KindAlreadyRated:
		return "already_rated"
	case KindConflict:
		return "conflict"
	case KindStorageUnavailable:
		return "storage_unavailable"
	case KindTimeout:
		return "timeout"
	}
	return "unknown"
}

// Error is the typed error every engine operation returns on failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the taxonomy onto response codes.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidTransition, KindAlreadySupported, KindAlreadyRated, KindConflict:
		return http.StatusConflict
	case KindStorageUnavailable, KindTimeout:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func errf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapf(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// IsKind reports whether err is a lifecycle Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var le *Error
	return errors.As(err, &le) && le.Kind == kind
}

// HTTPStatus returns the response code for any error; unclassified errors map
// to 500 so store internals never dictate the API surface.
func HTTPStatus(err error) int {
	var le *Error
	if errors.As(err, &le) {
		return le.HTTPStatus()
	}
	return http.StatusInternalServerError
}
