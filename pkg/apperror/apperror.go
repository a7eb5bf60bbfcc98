// Package apperror defines the error kinds returned by the content store and the
// export coordinator. Callers match kinds with errors.Is.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound reports an unknown document, theme or history position.
	ErrNotFound = errors.New("not found")
	// ErrInvalidOperation reports an operation on a protected or malformed name.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrIOFailure reports a failed backend read or write.
	ErrIOFailure = errors.New("storage i/o failure")
	// ErrBusy reports that an export is already running.
	ErrBusy = errors.New("export already in progress")
	// ErrBackendUnavailable reports a configured database that could not be reached.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// NotFound wraps ErrNotFound with the missing subject.
func NotFound(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// Invalid wraps ErrInvalidOperation with a reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidOperation)
}

// IO wraps a backend error as ErrIOFailure, keeping the cause reachable.
func IO(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrIOFailure, err)
}

// Unavailable wraps a connection or schema error as ErrBackendUnavailable.
func Unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
}

// HTTPStatus maps an error kind to the status code handlers respond with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidOperation):
		return http.StatusBadRequest
	case errors.Is(err, ErrBusy):
		return http.StatusConflict
	case errors.Is(err, ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
