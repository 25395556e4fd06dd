package app

import (
	"github.com/stacklok/omnifield-ingest/internal/dashboard"
	"github.com/stacklok/omnifield-ingest/internal/registry"
	"github.com/stacklok/omnifield-ingest/internal/status"
	"github.com/stacklok/omnifield-ingest/internal/sync/coordinator"
	"github.com/stacklok/omnifield-ingest/internal/sync/watcher"
	"github.com/stacklok/omnifield-ingest/internal/telemetry"
)

// AppComponents groups all application components
//
//nolint:revive // This name is fine
type AppComponents struct {
	Registry  *registry.Registry
	Tracker   *status.Tracker
	Dashboard *dashboard.Dashboard

	// SyncCoordinator runs periodic refreshes. Nil when no refresh interval is set.
	SyncCoordinator coordinator.Coordinator

	// Watcher refreshes on file source changes. Nil unless watching is enabled.
	Watcher *watcher.Watcher

	Telemetry *telemetry.Telemetry
}
