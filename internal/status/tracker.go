package status

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/stacklok/omnifield-ingest/internal/registry"
)

// Tracker keeps the latest status of every source and persists changes.
// It implements registry.Observer.
type Tracker struct {
	persistence StatusPersistence
	clock       func() time.Time

	mu       sync.RWMutex
	statuses map[string]*SourceStatus
}

var _ registry.Observer = (*Tracker)(nil)

// NewTracker creates a tracker backed by persistence
func NewTracker(persistence StatusPersistence) *Tracker {
	if persistence == nil {
		persistence = NewMemoryStatusPersistence()
	}
	return &Tracker{
		persistence: persistence,
		clock:       time.Now,
		statuses:    make(map[string]*SourceStatus),
	}
}

// Initialize seeds the tracker with persisted statuses for the declared
// sources so attempt counts and last success survive restarts
func (t *Tracker) Initialize(ctx context.Context, names []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var errs []error
	for _, name := range names {
		status, err := t.persistence.LoadStatus(ctx, name)
		if err != nil {
			errs = append(errs, err)
			status = &SourceStatus{}
		}
		if status.Phase == LoadPhaseLoading {
			// a previous process stopped mid-load
			status.Phase = ""
		}
		t.statuses[name] = status
	}
	return errors.Join(errs...)
}

// LoadStarted marks every source as loading
func (t *Tracker) LoadStarted(_ context.Context, names []string) {
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, name := range names {
		status := t.statusLocked(name)
		status.Phase = LoadPhaseLoading
		status.LastAttempt = &now
		status.AttemptCount++
	}
}

// LoadFinished records the outcome of every source and persists it
func (t *Tracker) LoadFinished(ctx context.Context, snap *registry.Snapshot) {
	t.mu.Lock()
	toSave := make(map[string]SourceStatus, snap.Len())
	for _, res := range snap.Results() {
		status := t.statusLocked(res.Name)
		status.Location = res.Location
		status.Rows = res.Rows
		status.Columns = res.Columns
		status.SnapshotID = snap.ID
		if status.LastAttempt == nil {
			at := snap.LoadedAt
			status.LastAttempt = &at
		}

		if res.OK() {
			at := snap.LoadedAt
			status.Phase = LoadPhaseLoaded
			status.Message = ""
			status.ErrorKind = ""
			status.Hash = res.Hash
			status.LastSuccess = &at
			status.AttemptCount = 0
		} else {
			status.Phase = LoadPhaseFailed
			if status.LastSuccess != nil {
				status.Phase = LoadPhaseDegraded
			}
			status.Message = res.Err.Error()
			status.ErrorKind = registry.ErrorKind(res.Err)
		}
		toSave[res.Name] = *status
	}
	t.mu.Unlock()

	for name, status := range toSave {
		if err := t.persistence.SaveStatus(ctx, name, &status); err != nil {
			slog.WarnContext(ctx, "Failed to persist source status", "source", name, "error", err)
		}
	}
}

// Get returns a copy of one source status
func (t *Tracker) Get(name string) (SourceStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	status, ok := t.statuses[name]
	if !ok {
		return SourceStatus{}, false
	}
	return *status, true
}

// List returns a copy of every known status
func (t *Tracker) List() map[string]SourceStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	result := make(map[string]SourceStatus, len(t.statuses))
	for name, status := range t.statuses {
		result[name] = *status
	}
	return result
}

func (t *Tracker) statusLocked(name string) *SourceStatus {
	status, ok := t.statuses[name]
	if !ok {
		status = &SourceStatus{}
		t.statuses[name] = status
	}
	return status
}
