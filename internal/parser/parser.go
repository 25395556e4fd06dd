package parser

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/stacklok/omnifield-ingest/internal/table"
)

const (
	// FormatCSV is delimited text with a header row
	FormatCSV = "csv"

	// FormatParquet is Apache Parquet
	FormatParquet = "parquet"
)

var (
	// ErrEmpty is returned for a resource with no content
	ErrEmpty = errors.New("resource is empty")

	// ErrMalformed is returned when content cannot be read as a table
	ErrMalformed = errors.New("malformed tabular data")

	// ErrUnsupportedFormat is returned for formats other than csv and parquet
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrTypeMismatch is returned when a value cannot be converted to its hinted type
	ErrTypeMismatch = errors.New("value does not match column type")
)

// Hint pins column names to types, bypassing inference
type Hint map[string]table.ColumnType

// Parse dispatches on format
func Parse(ctx context.Context, format, name string, data []byte, hint Hint) (*table.Table, error) {
	switch format {
	case FormatCSV, "":
		return ParseCSV(name, data, hint)
	case FormatParquet:
		return ParseParquet(ctx, name, data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// FormatFromLocation guesses the format from a path or URL extension
func FormatFromLocation(location string) string {
	if i := strings.IndexAny(location, "?#"); i >= 0 {
		location = location[:i]
	}
	switch strings.ToLower(filepath.Ext(location)) {
	case ".parquet", ".pq":
		return FormatParquet
	default:
		return FormatCSV
	}
}
