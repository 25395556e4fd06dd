package registry

import (
	"fmt"
	"time"

	"github.com/stacklok/omnifield-ingest/internal/table"
)

// SourceResult records the outcome of loading one source
type SourceResult struct {
	Name     string
	Type     string
	Location string
	Format   string

	// Hash is the content hash of the fetched bytes, empty when the fetch failed
	Hash string

	Rows     int
	Columns  int
	Duration time.Duration

	// Err is a *LoadError when the source was degraded to an empty table
	Err error
}

// OK reports whether the source loaded without error
func (r SourceResult) OK() bool {
	return r.Err == nil
}

// Snapshot is an immutable mapping of every declared source to a table
type Snapshot struct {
	ID       string
	LoadedAt time.Time

	// generation orders snapshots by when their load started
	generation int64

	order   []string
	tables  map[string]*table.Table
	results map[string]SourceResult
}

func newSnapshot(id string, loadedAt time.Time, order []string) *Snapshot {
	return &Snapshot{
		ID:       id,
		LoadedAt: loadedAt,
		order:    order,
		tables:   make(map[string]*table.Table, len(order)),
		results:  make(map[string]SourceResult, len(order)),
	}
}

// Table returns the table bound to name. Failed sources return an empty
// table and a nil error. Undeclared names return ErrUnknownSource.
func (s *Snapshot) Table(name string) (*table.Table, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, name)
	}
	return t, nil
}

// Result returns the load outcome for name
func (s *Snapshot) Result(name string) (SourceResult, bool) {
	if s == nil {
		return SourceResult{}, false
	}
	r, ok := s.results[name]
	return r, ok
}

// Names returns the source names in declaration order
func (s *Snapshot) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Results returns every load outcome in declaration order
func (s *Snapshot) Results() []SourceResult {
	if s == nil {
		return nil
	}
	out := make([]SourceResult, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.results[name])
	}
	return out
}

// Len returns the number of sources in the snapshot
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Failed returns the number of sources bound to an empty table after an error
func (s *Snapshot) Failed() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, r := range s.results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// Degraded reports whether any source failed
func (s *Snapshot) Degraded() bool {
	return s.Failed() > 0
}

func (s *Snapshot) bind(t *table.Table, r SourceResult) {
	s.tables[r.Name] = t
	s.results[r.Name] = r
}
