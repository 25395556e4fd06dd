// Package table defines the in-memory tabular model produced by ingestion.
//
// A Table is an ordered set of named, typed columns that all share the same
// row count. Tables handed out by the registry are shared between readers and
// must be treated as read-only.
package table

import (
	"fmt"
	"strings"
)

// ColumnType is the scalar type of every value in a column
type ColumnType int

const (
	// ColumnTypeUnknown is the zero value and never produced by a parser
	ColumnTypeUnknown ColumnType = iota
	// ColumnTypeNumeric holds float64 values
	ColumnTypeNumeric
	// ColumnTypeString holds string values
	ColumnTypeString
	// ColumnTypeTimestamp holds time.Time values
	ColumnTypeTimestamp
)

var columnTypeNames = map[ColumnType]string{
	ColumnTypeUnknown:   "unknown",
	ColumnTypeNumeric:   "numeric",
	ColumnTypeString:    "string",
	ColumnTypeTimestamp: "timestamp",
}

// String returns the lower-case name of the column type
func (t ColumnType) String() string {
	if name, ok := columnTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ColumnType(%d)", int(t))
}

// ParseColumnType converts a configuration string into a ColumnType.
// Accepted aliases cover the spellings commonly found in schema hints.
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric", "number", "float", "double", "int", "integer":
		return ColumnTypeNumeric, nil
	case "string", "text", "categorical":
		return ColumnTypeString, nil
	case "timestamp", "time", "datetime", "date":
		return ColumnTypeTimestamp, nil
	default:
		return ColumnTypeUnknown, fmt.Errorf("unknown column type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (t ColumnType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *ColumnType) UnmarshalText(text []byte) error {
	parsed, err := ParseColumnType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Field describes one column of a schema
type Field struct {
	Name string     `json:"name" yaml:"name"`
	Type ColumnType `json:"type" yaml:"type"`
}

// Schema is the ordered list of fields of a table
type Schema []Field

// Names returns the field names in order
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, f := range s {
		names[i] = f.Name
	}
	return names
}

// Equal reports whether both schemas have the same fields in the same order
func (s Schema) Equal(other Schema) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}
