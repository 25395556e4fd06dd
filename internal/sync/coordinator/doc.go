// Package coordinator runs background refreshes of the ingestion registry.
//
// The coordinator sits on top of sync.Manager: on start and then on every
// tick it asks the manager whether the snapshot is stale and refreshes it
// when the returned reason says so. The tick period carries a random jitter
// so that several instances reading the same remote sources do not fetch in
// lockstep.
//
// Usage:
//
//	coord := coordinator.New(manager, coordinator.WithInterval(10*time.Minute))
//	go func() { _ = coord.Start(ctx) }()
//	defer coord.Stop()
package coordinator
