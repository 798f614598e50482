package directory

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies directory failures.
type ErrorCategory string

const (
	ErrorTransport      ErrorCategory = "transport"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorInternal       ErrorCategory = "internal"
)

// Error wraps directory failures with a normalized category.
type Error struct {
	Category   ErrorCategory
	Op         string
	StatusCode int
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("directory %s [%s]: %s", e.Op, e.Category, e.Message)
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", msg, e.Underlying)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

func newError(category ErrorCategory, op, message string, underlying error) *Error {
	return &Error{Category: category, Op: op, Message: message, Underlying: underlying}
}

func newStatusError(op string, status int) *Error {
	category := ErrorTransport
	if status == 401 || status == 403 {
		category = ErrorAuthentication
	}
	e := newError(category, op, fmt.Sprintf("directory responded with status %d", status), nil)
	e.StatusCode = status
	return e
}

// GetCategory extracts the error category from an error.
func GetCategory(err error) ErrorCategory {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return ErrorInternal
}
