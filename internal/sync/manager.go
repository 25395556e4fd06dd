package sync

import (
	"context"
	"log/slog"
	"time"

	"github.com/stacklok/omnifield-ingest/internal/config"
	"github.com/stacklok/omnifield-ingest/internal/registry"
)

// Refresher is the part of the registry the sync layer drives
type Refresher interface {
	Current() *registry.Snapshot
	Refresh(ctx context.Context) *registry.Snapshot
	Sources() []config.SourceConfig
}

// Result summarizes one refresh
type Result struct {
	SnapshotID string
	Sources    int
	Failed     int
	Duration   time.Duration
}

// Manager decides on and performs snapshot refreshes
//
//go:generate mockgen -destination=mocks/mock_manager.go -package=mocks github.com/stacklok/omnifield-ingest/internal/sync Manager
type Manager interface {
	// ShouldRefresh determines whether the current snapshot is stale
	ShouldRefresh(ctx context.Context) Reason

	// PerformRefresh rebuilds the snapshot
	PerformRefresh(ctx context.Context) *Result
}

type defaultManager struct {
	refresher Refresher
	detector  DataChangeDetector
}

// NewManager creates a Manager over refresher
func NewManager(refresher Refresher, detector DataChangeDetector) Manager {
	if detector == nil {
		detector = NewDataChangeDetector(nil)
	}
	return &defaultManager{refresher: refresher, detector: detector}
}

func (m *defaultManager) ShouldRefresh(ctx context.Context) Reason {
	snap := m.refresher.Current()
	if snap == nil {
		return ReasonRegistryNotReady
	}
	if snap.Degraded() {
		return ReasonSnapshotDegraded
	}

	changed, source, err := m.detector.IsDataChanged(ctx, m.refresher.Sources(), snap)
	if err != nil {
		slog.WarnContext(ctx, "Failed to determine if data has changed", "source", source, "error", err)
		return ReasonErrorCheckingChanges
	}
	if changed {
		slog.DebugContext(ctx, "Source data changed", "source", source)
		return ReasonSourceDataChanged
	}
	return ReasonUpToDate
}

func (m *defaultManager) PerformRefresh(ctx context.Context) *Result {
	start := time.Now()
	snap := m.refresher.Refresh(ctx)
	return &Result{
		SnapshotID: snap.ID,
		Sources:    snap.Len(),
		Failed:     snap.Failed(),
		Duration:   time.Since(start),
	}
}
