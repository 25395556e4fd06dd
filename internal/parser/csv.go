package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/stacklok/omnifield-ingest/internal/table"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// timestampLayouts are tried in order when inferring or converting timestamps
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
}

// DetectSeparator picks the delimiter that occurs most often in the header
// line. Comma wins ties and is the default.
func DetectSeparator(headerLine string) rune {
	best, bestCount := ',', strings.Count(headerLine, ",")
	for _, sep := range []rune{';', '\t', '|'} {
		if n := strings.Count(headerLine, string(sep)); n > bestCount {
			best, bestCount = sep, n
		}
	}
	return best
}

// ParseCSV parses delimited text with a header row into a table
func ParseCSV(name string, data []byte, hint Hint) (*table.Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}

	headerLine, _, _ := bytes.Cut(data, []byte("\n"))
	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = DetectSeparator(string(headerLine))
	// a whitespace separator would be swallowed along with blank cells
	reader.TrimLeadingSpace = !unicode.IsSpace(reader.Comma)

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(records) == 0 {
		return nil, ErrEmpty
	}

	header := records[0]
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, fmt.Errorf("%w: header column %d is blank", ErrMalformed, i)
		}
		if seen[h] {
			return nil, fmt.Errorf("%w: duplicate header column %q", ErrMalformed, h)
		}
		seen[h] = true
		header[i] = h
	}

	rows := records[1:]
	columns := make([]table.Column, len(header))
	for j, colName := range header {
		values := make([]string, len(rows))
		for i, row := range rows {
			values[i] = strings.TrimSpace(row[j])
		}

		colType, hinted := hint[colName]
		if !hinted {
			colType = inferType(values)
		}
		col, err := buildColumn(colName, colType, values)
		if err != nil {
			return nil, err
		}
		columns[j] = col
	}

	return table.New(name, columns...)
}

// inferType picks the narrowest type that every non-blank value satisfies
func inferType(values []string) table.ColumnType {
	numeric, timestamp, populated := true, true, false
	for _, v := range values {
		if v == "" {
			continue
		}
		populated = true
		if numeric {
			if _, err := parseNumber(v); err != nil {
				numeric = false
			}
		}
		if timestamp {
			if _, err := parseTimestamp(v); err != nil {
				timestamp = false
			}
		}
		if !numeric && !timestamp {
			return table.ColumnTypeString
		}
	}
	switch {
	case !populated:
		return table.ColumnTypeString
	case numeric:
		return table.ColumnTypeNumeric
	case timestamp:
		return table.ColumnTypeTimestamp
	default:
		return table.ColumnTypeString
	}
}

func buildColumn(name string, colType table.ColumnType, values []string) (table.Column, error) {
	switch colType {
	case table.ColumnTypeNumeric:
		nums := make([]float64, len(values))
		for i, v := range values {
			if v == "" {
				nums[i] = math.NaN()
				continue
			}
			n, err := parseNumber(v)
			if err != nil {
				return table.Column{}, fmt.Errorf("%w: column %q row %d: %q is not numeric", ErrTypeMismatch, name, i+1, v)
			}
			nums[i] = n
		}
		return table.NewNumericColumn(name, nums), nil
	case table.ColumnTypeTimestamp:
		times := make([]time.Time, len(values))
		for i, v := range values {
			if v == "" {
				continue
			}
			ts, err := parseTimestamp(v)
			if err != nil {
				return table.Column{}, fmt.Errorf("%w: column %q row %d: %q is not a timestamp", ErrTypeMismatch, name, i+1, v)
			}
			times[i] = ts
		}
		return table.NewTimestampColumn(name, times), nil
	default:
		return table.NewStringColumn(name, values), nil
	}
}

// errNotFinite is returned for infinite values
var errNotFinite = errors.New("value is not finite")

// parseNumber accepts finite decimals. A literal NaN is read as a missing
// value.
func parseNumber(v string) (float64, error) {
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(n, 0) {
		return 0, errNotFinite
	}
	return n, nil
}

func parseTimestamp(v string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
}
