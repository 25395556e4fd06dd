// Package app provides application lifecycle management for the ingestion server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/stacklok/omnifield-ingest/internal/config"
)

// RegistryApp encapsulates all components needed to run the ingestion API
// server. It provides lifecycle management and graceful shutdown.
type RegistryApp struct {
	config     *config.Config
	components *AppComponents
	httpServer *http.Server

	// Lifecycle management
	ctx        context.Context
	cancelFunc context.CancelFunc
	background sync.WaitGroup
}

// Start starts the background components and then the HTTP server.
// It blocks until the HTTP server stops or encounters an error.
func (app *RegistryApp) Start() error {
	ln, err := net.Listen("tcp", app.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", app.httpServer.Addr, err)
	}
	return app.Serve(ln)
}

// Serve is Start on an existing listener
func (app *RegistryApp) Serve(ln net.Listener) error {
	app.startBackground()

	slog.Info("Server listening", "address", ln.Addr().String())
	if err := app.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

func (app *RegistryApp) startBackground() {
	c := app.components

	if c.SyncCoordinator != nil {
		// The coordinator's first pass builds the initial snapshot
		app.background.Go(func() {
			if err := c.SyncCoordinator.Start(app.ctx); err != nil {
				slog.Error("Sync coordinator failed", "error", err)
			}
		})
	} else {
		app.background.Go(func() {
			snap := c.Registry.Snapshot(app.ctx)
			slog.Info("Initial snapshot loaded",
				"snapshot_id", snap.ID,
				"sources", snap.Len(),
				"failed", snap.Failed())
		})
	}

	if c.Watcher != nil {
		app.background.Go(func() {
			if err := c.Watcher.Watch(app.ctx); err != nil {
				slog.Error("File watcher failed", "error", err)
			}
		})
	}
}

// Stop gracefully stops the application with the given timeout.
// Background refresh stops first, then the HTTP server drains.
func (app *RegistryApp) Stop(timeout time.Duration) error {
	slog.Info("Shutting down server...")

	if c := app.components.SyncCoordinator; c != nil {
		if err := c.Stop(); err != nil {
			slog.Error("Failed to stop sync coordinator", "error", err)
		}
	}

	if app.cancelFunc != nil {
		app.cancelFunc()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if err := app.httpServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("server forced to shutdown: %w", err))
	}

	app.background.Wait()
	app.components.Registry.Close()

	if tel := app.components.Telemetry; tel != nil {
		if err := tel.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown telemetry: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	slog.Info("Server shutdown complete")
	return nil
}

// GetConfig returns the application configuration
func (app *RegistryApp) GetConfig() *config.Config {
	return app.config
}

// GetHTTPServer returns the HTTP server
func (app *RegistryApp) GetHTTPServer() *http.Server {
	return app.httpServer
}

// Components returns the wired components
func (app *RegistryApp) Components() *AppComponents {
	return app.components
}
