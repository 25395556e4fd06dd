// Package sources reads the raw bytes of named tabular sources.
//
// A SourceHandler knows how to reach one kind of location:
//   - fileSourceHandler reads local files
//   - httpSourceHandler downloads http(s) URLs through internal/httpclient
//   - gitSourceHandler clones a repository into memory and reads one path
//
// Handlers only fetch bytes and compute a content hash. Parsing into a
// table.Table happens in internal/parser, and failure classification
// happens in internal/registry. Fetch failures wrap ErrUnavailable.
//
// SchemaStore remembers the last good schema of each source so an empty
// table produced after a failure can still carry known column names.
package sources
