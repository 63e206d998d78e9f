package cache

import (
	"errors"
	"fmt"
)

// Domain errors.
var (
	// ErrInvalidKey is returned for empty keys or keys containing reserved characters.
	ErrInvalidKey = errors.New("invalid cache key")

	// ErrUnsupportedItemType is returned when an item was not produced by this package.
	ErrUnsupportedItemType = errors.New("unsupported cache item type")
)

// InvalidKeyError describes why a key was rejected.
type InvalidKeyError struct {
	Key    string
	Reason string
}

// Error implements the error interface.
func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrInvalidKey, e.Key, e.Reason)
}

// Unwrap returns ErrInvalidKey so callers can match with errors.Is.
func (e *InvalidKeyError) Unwrap() error {
	return ErrInvalidKey
}
