// Package main provides the contactsync CLI, a one-way synchronizer
// from a contact directory into a personal CRM with a local link store.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/meshline/contactsync/pkg/types"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "contactsync:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode separates operator-fixable failures from system trouble.
func exitCode(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidConfig),
		errors.Is(err, types.ErrEmptyStore),
		errors.Is(err, types.ErrAborted):
		return exitUserError
	default:
		return exitSysError
	}
}
