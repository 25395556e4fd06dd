// Package registry loads every declared source into a table and serves the
// result as an immutable Snapshot.
//
// Loading is fault isolated. A source that cannot be read or parsed, or that
// exceeds its timeout, is bound to an empty table in the snapshot and
// reported through the WarningSink. Callers of Registry never see those
// failures as errors; they are visible in Snapshot.Results. The only error
// that crosses this boundary is ErrUnknownSource.
//
// Registry caches the snapshot for a TTL. Concurrent callers during an
// empty or expired window share one load, and Refresh swaps in a complete
// new snapshot without readers ever observing a partial one.
package registry
