package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"reelmatch/internal/services"
)

const (
	exitFailure = 1
	exitUsage   = 2
	exitNoMatch = 3
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "reelmatch:", err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode lets scripts tell a bad invocation or an unknown title apart from
// an operational failure.
func exitCode(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation), errors.Is(err, services.ErrConfiguration):
		return exitUsage
	case errors.Is(err, services.ErrNotFound):
		return exitNoMatch
	default:
		return exitFailure
	}
}
