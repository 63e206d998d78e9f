package cache

import (
	"fmt"
	"strings"
)

// ReservedCharacters may not appear in a cache key.
const ReservedCharacters = `{}()/\@:`

// ValidateKey checks a key against the key-format rule shared by every pool operation.
func ValidateKey(key string) error {
	if key == "" {
		return &InvalidKeyError{Key: key, Reason: "key must not be empty"}
	}
	if i := strings.IndexAny(key, ReservedCharacters); i >= 0 {
		return &InvalidKeyError{
			Key:    key,
			Reason: fmt.Sprintf("reserved character %q", rune(key[i])),
		}
	}
	return nil
}

func validateKeys(keys []string) error {
	for _, key := range keys {
		if err := ValidateKey(key); err != nil {
			return err
		}
	}
	return nil
}
