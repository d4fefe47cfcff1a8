// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/pdiddy/nasa-ads/internal/ads"
	"github.com/pdiddy/nasa-ads/internal/config"
	"github.com/pdiddy/nasa-ads/internal/validate"
)

// Exit codes.
const (
	ExitSuccess     = 0   // Success
	ExitError       = 1   // General error, API failure, bad arguments
	ExitConfigError = 2   // Missing API key, unreadable or invalid config
	ExitDataError   = 3   // Validation failure on query or output parameters
	ExitInterrupted = 130 // SIGINT or SIGTERM
)

// exitCode maps the error returned by a command onto a process exit code.
func exitCode(ctx context.Context, err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		return ExitInterrupted
	case config.IsConfigError(err):
		return ExitConfigError
	case validate.IsValidationError(err):
		return ExitDataError
	default:
		return ExitError
	}
}

// report prints expected failures as a one-line message and logs anything
// else as an unexpected error with its full chain.
func report(w io.Writer, err error, code int) {
	switch {
	case code == ExitInterrupted:
		fmt.Fprintln(w, "Cancelled.")
	case code == ExitConfigError, code == ExitDataError, ads.IsAPIError(err):
		fmt.Fprintf(w, "Error: %v\n", err)
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
		logger.Error("unexpected error", zap.Error(err))
	}
}
