// Package main is the entry point for the OmniField ingestion API server.
package main

import (
	"log/slog"
	"os"

	"github.com/stacklok/omnifield-ingest/cmd/omnifield-api/app"
	"github.com/stacklok/omnifield-ingest/internal/logging"
)

func main() {
	// Replaced once flags are parsed; covers errors raised before that.
	if logger, err := logging.New(logging.Options{Level: slog.LevelInfo}); err == nil {
		slog.SetDefault(logger)
	}

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
