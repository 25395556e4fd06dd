package sync

// Reason explains a refresh decision
type Reason string

const (
	// ReasonRegistryNotReady means no snapshot has been loaded
	ReasonRegistryNotReady Reason = "registry-not-ready"

	// ReasonSnapshotDegraded means a source in the current snapshot failed
	ReasonSnapshotDegraded Reason = "snapshot-degraded"

	// ReasonSourceDataChanged means a source hash moved since the last load
	ReasonSourceDataChanged Reason = "source-data-changed"

	// ReasonErrorCheckingChanges means change detection failed
	ReasonErrorCheckingChanges Reason = "error-checking-data-changes"

	// ReasonUpToDate means nothing changed
	ReasonUpToDate Reason = "up-to-date"
)

// ShouldRefresh reports whether the reason calls for a refresh
func (r Reason) ShouldRefresh() bool {
	return r != ReasonUpToDate
}

func (r Reason) String() string {
	return string(r)
}
