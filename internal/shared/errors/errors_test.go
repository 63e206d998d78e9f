package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns message", func(t *testing.T) {
		err := &AppError{Code: "TEST_ERROR", Message: "test error message"}
		assert.Equal(t, "test error message", err.Error())
	})

	t.Run("Error includes wrapped error", func(t *testing.T) {
		err := &AppError{Code: "TEST_ERROR", Message: "test error message", Err: errors.New("wrapped error")}
		assert.Equal(t, "test error message: wrapped error", err.Error())
	})

	t.Run("Unwrap returns wrapped error", func(t *testing.T) {
		wrapped := errors.New("wrapped error")
		err := &AppError{Code: "TEST_ERROR", Message: "test message", Err: wrapped}
		assert.Equal(t, wrapped, err.Unwrap())
	})
}

func TestNewAppError(t *testing.T) {
	wrapped := errors.New("original")
	err := NewAppError("CUSTOM_ERROR", "custom message", 9, wrapped)

	assert.Equal(t, "CUSTOM_ERROR", err.Code)
	assert.Equal(t, "custom message", err.Message)
	assert.Equal(t, 9, err.ExitCode)
	assert.Equal(t, wrapped, err.Err)
}

func TestConstructors(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	tests := []struct {
		name     string
		err      *AppError
		code     string
		exitCode int
		is       error
	}{
		{"InvalidArgument keeps cause", InvalidArgument("bad key", cause), "INVALID_ARGUMENT", ExitUsage, cause},
		{"InvalidArgument default", InvalidArgument("bad key", nil), "INVALID_ARGUMENT", ExitUsage, ErrInvalidArgument},
		{"NotFound", NotFound("greeting"), "NOT_FOUND", ExitNotFound, ErrNotFound},
		{"Unavailable keeps cause", Unavailable("save failed", cause), "UNAVAILABLE", ExitUnavailable, cause},
		{"Unavailable default", Unavailable("save failed", nil), "UNAVAILABLE", ExitUnavailable, ErrUnavailable},
		{"Internal", Internal("boom", cause), "INTERNAL_ERROR", ExitFailure, cause},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.exitCode, tt.err.ExitCode)
			assert.ErrorIs(t, tt.err, tt.is)
		})
	}

	assert.Equal(t, "greeting not found", NotFound("greeting").Message)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, ExitOK},
		{"AppError", NotFound("k"), ExitNotFound},
		{"wrapped AppError", fmt.Errorf("run: %w", Unavailable("x", nil)), ExitUnavailable},
		{"sentinel invalid argument", fmt.Errorf("parse: %w", ErrInvalidArgument), ExitUsage},
		{"sentinel not found", ErrNotFound, ExitNotFound},
		{"sentinel unavailable", ErrUnavailable, ExitUnavailable},
		{"unknown error", errors.New("unknown"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExitCode(tt.err))
		})
	}
}
