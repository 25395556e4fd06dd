package registry

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/jellydator/ttlcache/v3"
	"golang.org/x/sync/singleflight"

	"github.com/stacklok/omnifield-ingest/internal/config"
	"github.com/stacklok/omnifield-ingest/internal/sources"
	"github.com/stacklok/omnifield-ingest/internal/table"
)

const (
	snapshotKey = "snapshot"

	// a second attempt always starts after the request; the third only
	// covers a cache hit racing the refresh
	maxRefreshAttempts = 3
)

// Registry owns the declared sources and the cached snapshot built from them
type Registry struct {
	sources []config.SourceConfig
	loader  *Loader

	cache *ttlcache.Cache[string, *Snapshot]
	group singleflight.Group

	// current is the most recently built snapshot, kept past TTL expiry
	current atomic.Pointer[Snapshot]
	loads   atomic.Int64
}

// New creates a registry for srcs. The source list is copied and fixed for
// the registry lifetime. Nothing is loaded until the first access.
func New(srcs []config.SourceConfig, factory sources.SourceHandlerFactory, opts ...Option) *Registry {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	return &Registry{
		sources: append([]config.SourceConfig(nil), srcs...),
		loader:  newLoader(factory, o),
		cache: ttlcache.New[string, *Snapshot](
			ttlcache.WithTTL[string, *Snapshot](o.ttl),
			ttlcache.WithDisableTouchOnHit[string, *Snapshot](),
		),
	}
}

// Snapshot returns the cached snapshot, loading it when the cache is empty
// or expired. Concurrent callers share a single load.
func (r *Registry) Snapshot(ctx context.Context) *Snapshot {
	// The load outlives any one waiting caller
	loadCtx := context.WithoutCancel(ctx)

	loader := ttlcache.LoaderFunc[string, *Snapshot](
		func(c *ttlcache.Cache[string, *Snapshot], key string) *ttlcache.Item[string, *Snapshot] {
			// A load that finished between our miss and this call already set the item
			if item := c.Get(key, ttlcache.WithLoader[string, *Snapshot](nil)); item != nil {
				return item
			}
			return c.Set(key, r.load(loadCtx), ttlcache.DefaultTTL)
		},
	)

	item := r.cache.Get(snapshotKey,
		ttlcache.WithLoader[string, *Snapshot](ttlcache.NewSuppressedLoader[string, *Snapshot](loader, &r.group)),
	)
	if item == nil {
		// unreachable: the loader always sets an item
		return r.current.Load()
	}
	return item.Value()
}

// Refresh reloads every source and atomically replaces the cached snapshot.
// A refresh joins a load that is already running only if that load started
// after the refresh was requested; otherwise it waits and loads again.
func (r *Registry) Refresh(ctx context.Context) *Snapshot {
	loadCtx := context.WithoutCancel(ctx)
	requested := r.loads.Load()

	var snap *Snapshot
	for range maxRefreshAttempts {
		res, _, _ := r.group.Do(snapshotKey, func() (any, error) {
			return r.cache.Set(snapshotKey, r.load(loadCtx), ttlcache.DefaultTTL), nil
		})
		snap = res.(*ttlcache.Item[string, *Snapshot]).Value()
		if snap.generation > requested {
			return snap
		}
		slog.DebugContext(ctx, "Joined a stale load, refreshing again",
			"snapshot", snap.ID,
			"generation", snap.generation)
	}
	return snap
}

// Table returns one table from the current snapshot
func (r *Registry) Table(ctx context.Context, name string) (*table.Table, error) {
	return r.Snapshot(ctx).Table(name)
}

// Current returns the last built snapshot without triggering a load, or nil
func (r *Registry) Current() *Snapshot {
	return r.current.Load()
}

// Ready reports whether at least one snapshot has been built
func (r *Registry) Ready() bool {
	return r.current.Load() != nil
}

// Sources returns a copy of the declared sources
func (r *Registry) Sources() []config.SourceConfig {
	return append([]config.SourceConfig(nil), r.sources...)
}

// LoadCount returns how many load passes have run
func (r *Registry) LoadCount() int64 {
	return r.loads.Load()
}

// Close drops the cached snapshot
func (r *Registry) Close() {
	r.cache.DeleteAll()
}

func (r *Registry) load(ctx context.Context) *Snapshot {
	generation := r.loads.Add(1)
	slog.DebugContext(ctx, "Loading snapshot", "sources", len(r.sources), "generation", generation)
	snap := r.loader.LoadAll(ctx, r.sources)
	snap.generation = generation
	r.current.Store(snap)
	return snap
}
