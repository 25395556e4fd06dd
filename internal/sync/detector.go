package sync

import (
	"context"
	"fmt"

	"github.com/stacklok/omnifield-ingest/internal/config"
	"github.com/stacklok/omnifield-ingest/internal/registry"
	"github.com/stacklok/omnifield-ingest/internal/sources"
)

// DataChangeDetector detects changes in source data
type DataChangeDetector interface {
	// IsDataChanged reports whether any source differs from what snap serves.
	// The name of the first changed source is returned for logging.
	IsDataChanged(ctx context.Context, srcs []config.SourceConfig, snap *registry.Snapshot) (bool, string, error)
}

// DefaultDataChangeDetector compares source hashes against snapshot results
type DefaultDataChangeDetector struct {
	factory sources.SourceHandlerFactory
}

// NewDataChangeDetector creates a detector that resolves handlers through factory
func NewDataChangeDetector(factory sources.SourceHandlerFactory) *DefaultDataChangeDetector {
	if factory == nil {
		factory = sources.NewSourceHandlerFactory()
	}
	return &DefaultDataChangeDetector{factory: factory}
}

// IsDataChanged checks each source in order and stops at the first change
func (d *DefaultDataChangeDetector) IsDataChanged(
	ctx context.Context, srcs []config.SourceConfig, snap *registry.Snapshot,
) (bool, string, error) {
	for i := range srcs {
		src := &srcs[i]

		// A missing hash means the source never loaded in this snapshot
		res, ok := snap.Result(src.Name)
		if !ok || res.Hash == "" {
			return true, src.Name, nil
		}

		handler, err := d.factory.CreateHandler(src.GetType())
		if err != nil {
			return true, src.Name, fmt.Errorf("source %s: %w", src.Name, err)
		}

		currentHash, err := handler.CurrentHash(ctx, src)
		if err != nil {
			return true, src.Name, fmt.Errorf("source %s: %w", src.Name, err)
		}

		if currentHash != res.Hash {
			return true, src.Name, nil
		}
	}
	return false, "", nil
}
