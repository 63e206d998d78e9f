// Package main is the entry point for the cachepool CLI.
package main

import (
	"fmt"
	"os"

	apperrors "github.com/einar-hansen/cachepool/internal/shared/errors"
)

func main() {
	if err := newRootCmd(newApp()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(apperrors.ExitCode(err))
	}
}
