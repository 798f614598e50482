package client

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCategory classifies contact API failures.
//
// Throttling is deliberately absent: it is a retry signal handled inside the
// client and never reaches callers.
type ErrorCategory string

const (
	// ErrorTransport covers connection failures and non-2xx responses.
	ErrorTransport ErrorCategory = "transport"

	// ErrorBadData indicates an empty or malformed response body.
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates the API token was rejected.
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorNotPersisted indicates a 2xx upsert response without a uuid.
	ErrorNotPersisted ErrorCategory = "not_persisted"

	// ErrorInternal indicates a local failure building the request.
	ErrorInternal ErrorCategory = "internal"
)

// Error wraps contact API failures with a normalized category.
type Error struct {
	Category   ErrorCategory
	Op         string
	StatusCode int
	Message    string
	Underlying error
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("contacts %s [%s]: %s", e.Op, e.Category, e.Message)
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	return msg
}

// Unwrap supports error unwrapping
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is lets errors.Is(err, ErrNotPersisted) match categorized errors.
func (e *Error) Is(target error) bool {
	return target == ErrNotPersisted && e.Category == ErrorNotPersisted
}

// NewError creates a categorized contact API error.
func NewError(category ErrorCategory, op, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Op:         op,
		Message:    message,
		Underlying: underlying,
	}
}

func newStatusError(op string, status int) *Error {
	category := ErrorTransport
	if status == 401 || status == 403 {
		category = ErrorAuthentication
	}
	e := NewError(category, op, fmt.Sprintf("contact API responded with status %d", status), nil)
	e.StatusCode = status
	return e
}

// GetCategory extracts the error category from an error
func GetCategory(err error) ErrorCategory {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ErrorInternal
}

// ErrNotPersisted is matched by upsert errors whose "successful" response
// carried no uuid. Such failures are recorded in the dead-letter log.
var ErrNotPersisted = errors.New("contact not persisted")

// ThrottledError is the typed retry signal decoded from a throttle envelope.
// Wait already includes the safety margin.
type ThrottledError struct {
	Wait   time.Duration
	Detail string
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("throttled, retry after %s", e.Wait)
}
