package v1

import (
	"time"

	"github.com/stacklok/omnifield-ingest/internal/table"
)

// SourceResponse describes one declared source in the current snapshot
type SourceResponse struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Location string `json:"location"`
	Format   string `json:"format"`
	Rows     int    `json:"rows"`
	Columns  int    `json:"columns"`
	Hash     string `json:"hash,omitempty"`

	// DurationMillis is how long the latest read took
	DurationMillis int64 `json:"durationMs"`

	Phase        string     `json:"phase,omitempty"`
	ErrorKind    string     `json:"errorKind,omitempty"`
	Message      string     `json:"message,omitempty"`
	AttemptCount int        `json:"attemptCount,omitempty"`
	LastSuccess  *time.Time `json:"lastSuccess,omitempty"`
}

// SourcesResponse is the body of GET /v1/sources
type SourcesResponse struct {
	SnapshotID string           `json:"snapshotId"`
	LoadedAt   time.Time        `json:"loadedAt"`
	Degraded   bool             `json:"degraded"`
	Sources    []SourceResponse `json:"sources"`
}

// TableResponse is the body of GET /v1/tables/{name}
type TableResponse struct {
	Name string `json:"name"`

	// Available is false when the source produced an empty table
	Available bool `json:"available"`

	// TotalRows counts every row, Returned only those in Rows
	TotalRows int `json:"totalRows"`
	Returned  int `json:"returned"`

	Schema table.Schema `json:"schema"`
	Rows   [][]any      `json:"rows"`

	ErrorKind string `json:"errorKind,omitempty"`
}

// RefreshResponse is the body of POST /v1/refresh
type RefreshResponse struct {
	SnapshotID string    `json:"snapshotId"`
	LoadedAt   time.Time `json:"loadedAt"`
	Sources    int       `json:"sources"`
	Failed     int       `json:"failed"`
	Degraded   bool      `json:"degraded"`
}

// ModuleResponse describes one dashboard module
type ModuleResponse struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Source string `json:"source,omitempty"`
}

// ModulesResponse is the body of GET /v1/modules
type ModulesResponse struct {
	Modules []ModuleResponse `json:"modules"`
}
