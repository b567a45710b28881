// internal/jupiter/errors.go
package jupiter

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork covers transport failures and non-2xx responses.
	ErrNetwork = errors.New("jupiter network error")

	// ErrInvalidQuote is returned when a response carries no usable payload.
	ErrInvalidQuote = errors.New("invalid quote")

	// ErrInvalidPriority rejects a priority configuration before any request is sent.
	ErrInvalidPriority = errors.New("invalid priority configuration")

	// ErrTokenNotFound is returned by token lookups for unknown mints.
	ErrTokenNotFound = errors.New("token not found")
)

// APIError carries the HTTP context of a failed call.
type APIError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("jupiter %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("jupiter %s: status %d: %s", e.Op, e.Status, e.Body)
}

func (e *APIError) Unwrap() error {
	return e.Err
}
