package status

import "time"

// LoadPhase represents the state of a source after its latest load attempt
type LoadPhase string

const (
	// LoadPhaseLoading means a load pass is in progress
	LoadPhaseLoading LoadPhase = "Loading"

	// LoadPhaseLoaded means the latest attempt produced a table
	LoadPhaseLoaded LoadPhase = "Loaded"

	// LoadPhaseDegraded means the latest attempt failed after an earlier success
	LoadPhaseDegraded LoadPhase = "Degraded"

	// LoadPhaseFailed means the source has never loaded successfully
	LoadPhaseFailed LoadPhase = "Failed"
)

// SourceStatus represents the load state of one source
type SourceStatus struct {
	// Phase represents the current load phase
	Phase LoadPhase `json:"phase"`

	// Message provides additional information, usually the last error
	Message string `json:"message,omitempty"`

	// Location is where the source is read from
	Location string `json:"location,omitempty"`

	// LastAttempt is the timestamp of the last load attempt
	LastAttempt *time.Time `json:"lastAttempt,omitempty"`

	// AttemptCount is the number of attempts since the last success
	AttemptCount int `json:"attemptCount,omitempty"`

	// LastSuccess is the timestamp of the last successful load
	LastSuccess *time.Time `json:"lastSuccess,omitempty"`

	// Hash is the content hash of the last successful load
	Hash string `json:"hash,omitempty"`

	// Rows and Columns describe the table currently served
	Rows    int `json:"rows"`
	Columns int `json:"columns"`

	// ErrorKind is unavailable, parse or timeout when the last attempt failed
	ErrorKind string `json:"errorKind,omitempty"`

	// SnapshotID is the snapshot the latest attempt belongs to
	SnapshotID string `json:"snapshotId,omitempty"`
}
