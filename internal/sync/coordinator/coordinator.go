package coordinator

import (
	"context"
	"log/slog"
	"math/rand/v2"
	gosync "sync"
	"time"

	pkgsync "github.com/stacklok/omnifield-ingest/internal/sync"
	"github.com/stacklok/omnifield-ingest/internal/telemetry"
)

const (
	// DefaultInterval is used when no refresh interval is configured
	DefaultInterval = 10 * time.Minute

	// maxJitter caps the random offset applied to each tick
	maxJitter = 30 * time.Second
)

// Coordinator manages background refresh scheduling
type Coordinator interface {
	// Start runs the refresh loop. It blocks until the context is cancelled
	// or Stop is called.
	Start(ctx context.Context) error

	// Stop ends the loop and waits for an in-flight pass to finish
	Stop() error
}

type defaultCoordinator struct {
	manager  pkgsync.Manager
	interval time.Duration
	jitter   time.Duration
	metrics  *telemetry.RefreshMetrics

	mu         gosync.Mutex
	cancelFunc context.CancelFunc
	done       chan struct{}
}

// Option is a function that configures the coordinator
type Option func(*defaultCoordinator)

// WithInterval sets the base period between refresh checks
func WithInterval(d time.Duration) Option {
	return func(c *defaultCoordinator) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithJitter overrides the random offset applied to each period. Zero
// disables jitter.
func WithJitter(d time.Duration) Option {
	return func(c *defaultCoordinator) {
		if d >= 0 {
			c.jitter = d
		}
	}
}

// WithRefreshMetrics sets the refresh metrics for the coordinator
func WithRefreshMetrics(metrics *telemetry.RefreshMetrics) Option {
	return func(c *defaultCoordinator) {
		c.metrics = metrics
	}
}

// New creates a new coordinator over manager
func New(manager pkgsync.Manager, opts ...Option) Coordinator {
	c := &defaultCoordinator{
		manager:  manager,
		interval: DefaultInterval,
		jitter:   -1,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.jitter < 0 {
		c.jitter = min(c.interval/10, maxJitter)
	}

	return c
}

// nextInterval returns the base interval with a random offset in
// [-jitter, +jitter)
func (c *defaultCoordinator) nextInterval() time.Duration {
	if c.jitter <= 0 {
		return c.interval
	}
	//nolint:gosec // G404: Non-cryptographic randomness is sufficient for jitter
	offset := time.Duration(rand.Int64N(int64(2*c.jitter))) - c.jitter
	return c.interval + offset
}

// Start begins background refresh coordination
func (c *defaultCoordinator) Start(ctx context.Context) error {
	coordCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.cancelFunc = cancel
	c.done = done
	c.mu.Unlock()

	defer func() {
		cancel()
		close(done)
		slog.Info("Background refresh coordinator shutting down")
	}()

	interval := c.nextInterval()
	slog.Info("Starting background refresh coordinator",
		"base_interval", c.interval,
		"actual_interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.processRefresh(coordCtx)

	for {
		select {
		case <-ticker.C:
			c.processRefresh(coordCtx)
			ticker.Reset(c.nextInterval())
		case <-coordCtx.Done():
			slog.Info("Refresh coordinator stopping")
			return nil
		}
	}
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel, done := c.cancelFunc, c.done
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}

	slog.Info("Stopping refresh coordinator")
	cancel()
	<-done
	return nil
}

// processRefresh runs one check and, if needed, one refresh
func (c *defaultCoordinator) processRefresh(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	reason := c.manager.ShouldRefresh(ctx)
	c.metrics.RecordCheck(ctx, reason.String())

	if !reason.ShouldRefresh() {
		slog.Debug("Snapshot does not need refresh", "reason", reason.String())
		return
	}

	slog.Info("Starting refresh", "reason", reason.String())
	result := c.manager.PerformRefresh(ctx)
	if result == nil {
		return
	}

	c.metrics.RecordRefresh(ctx, reason.String(), result.Duration, result.Failed > 0)

	logArgs := []any{
		"reason", reason.String(),
		"snapshot_id", result.SnapshotID,
		"sources", result.Sources,
		"failed", result.Failed,
		"duration", result.Duration,
	}
	if result.Failed > 0 {
		slog.Warn("Refresh completed with degraded sources", logArgs...)
		return
	}
	slog.Info("Refresh completed successfully", logArgs...)
}
