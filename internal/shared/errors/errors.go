package errors

import (
	"errors"
	"fmt"
)

// Common error types.
var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("not found")
	ErrUnavailable     = errors.New("backend unavailable")
	ErrInternal        = errors.New("internal error")
)

// Process exit codes used by the command line.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitUsage       = 2
	ExitNotFound    = 3
	ExitUnavailable = 4
)

// AppError represents an application error with a code and process exit status.
type AppError struct {
	Code     string
	Message  string
	ExitCode int
	Err      error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new application error.
func NewAppError(code string, message string, exitCode int, err error) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		ExitCode: exitCode,
		Err:      err,
	}
}

// InvalidArgument creates a usage error, wrapping the validation cause.
func InvalidArgument(message string, err error) *AppError {
	if err == nil {
		err = ErrInvalidArgument
	}
	return &AppError{
		Code:     "INVALID_ARGUMENT",
		Message:  message,
		ExitCode: ExitUsage,
		Err:      err,
	}
}

// NotFound creates a not found error.
func NotFound(key string) *AppError {
	return &AppError{
		Code:     "NOT_FOUND",
		Message:  fmt.Sprintf("%s not found", key),
		ExitCode: ExitNotFound,
		Err:      ErrNotFound,
	}
}

// Unavailable creates an error for a backend that cannot be reached or reported failure.
func Unavailable(message string, err error) *AppError {
	if err == nil {
		err = ErrUnavailable
	}
	return &AppError{
		Code:     "UNAVAILABLE",
		Message:  message,
		ExitCode: ExitUnavailable,
		Err:      err,
	}
}

// Internal creates an internal error.
func Internal(message string, err error) *AppError {
	return &AppError{
		Code:     "INTERNAL_ERROR",
		Message:  message,
		ExitCode: ExitFailure,
		Err:      err,
	}
}

// ExitCode returns the process exit status for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}

	switch {
	case errors.Is(err, ErrInvalidArgument):
		return ExitUsage
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	case errors.Is(err, ErrUnavailable):
		return ExitUnavailable
	default:
		return ExitFailure
	}
}
