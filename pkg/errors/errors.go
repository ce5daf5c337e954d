// Package errors defines the sentinel errors shared by the index, the stores
// and the HTTP layer, and decides how each one is shown to API clients.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrArticleNotFound  = errors.New("article not found")
	ErrSnapshotNotFound = errors.New("index snapshot not found")
	ErrCorruptSnapshot  = errors.New("corrupt index snapshot")
	ErrIndexNotReady    = errors.New("search index not ready")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrTimeout          = errors.New("operation timed out")
)

// statuses is checked in order; the first sentinel err wraps decides.
var statuses = []struct {
	kind   error
	status int
}{
	{ErrInvalidInput, http.StatusBadRequest},
	{ErrArticleNotFound, http.StatusNotFound},
	{ErrSnapshotNotFound, http.StatusNotFound},
	{ErrIndexNotReady, http.StatusServiceUnavailable},
	{ErrStoreUnavailable, http.StatusServiceUnavailable},
	{ErrTimeout, http.StatusGatewayTimeout},
}

// Error pairs a sentinel with a detail written for API clients.
type Error struct {
	Kind   error
	Detail string
}

func (e *Error) Error() string {
	return e.Kind.Error() + ": " + e.Detail
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Invalid reports a bad request parameter.
func Invalid(format string, args ...any) error {
	return &Error{Kind: ErrInvalidInput, Detail: fmt.Sprintf(format, args...)}
}

// Status maps err to an HTTP status, 500 when no sentinel matches.
func Status(err error) int {
	for _, s := range statuses {
		if errors.Is(err, s.kind) {
			return s.status
		}
	}
	return http.StatusInternalServerError
}

// Message is the text an API client sees for err. Wrapping context added on
// the way up is dropped so store addresses and paths stay server-side.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Detail
	}
	for _, s := range statuses {
		if errors.Is(err, s.kind) {
			return s.kind.Error()
		}
	}
	return "internal error"
}
