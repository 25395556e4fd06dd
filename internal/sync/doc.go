// Package sync decides when the snapshot of the ingestion registry should be
// rebuilt in the background.
//
// The Manager compares the content hash of every source against the hash
// recorded in the current snapshot and reports a Reason. Reasons that call
// for a refresh are:
//
//   - ReasonRegistryNotReady: no snapshot has been loaded yet
//   - ReasonSnapshotDegraded: at least one source is serving an empty table
//   - ReasonSourceDataChanged: a source hash differs from the snapshot
//   - ReasonErrorCheckingChanges: a hash could not be computed, refresh anyway
//
// ReasonUpToDate means every source still hashes to what is being served.
//
// The coordinator subpackage runs the Manager on a ticker and the watcher
// subpackage refreshes on file system events.
package sync
