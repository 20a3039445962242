// Package main provides the formset CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mesh-intelligence/formset/pkg/dataset"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if isUserError(err) {
			os.Exit(exitUserError)
		}
		os.Exit(exitSysError)
	}
	os.Exit(exitSuccess)
}

// isUserError separates bad input from system failures for the exit code.
func isUserError(err error) bool {
	return errors.Is(err, dataset.ErrValidation) ||
		errors.Is(err, dataset.ErrInvalidQuery) ||
		errors.Is(err, errUsage)
}
