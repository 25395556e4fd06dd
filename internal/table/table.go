package table

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrRagged is returned when the columns of a table disagree on row count
var ErrRagged = errors.New("columns have different row counts")

// Column is a named sequence of values of a single type.
// Only the slice matching Type is populated.
type Column struct {
	Name    string
	Type    ColumnType
	Numbers []float64
	Strings []string
	Times   []time.Time
}

// NewNumericColumn creates a numeric column. Missing values are NaN.
func NewNumericColumn(name string, values []float64) Column {
	if values == nil {
		values = []float64{}
	}
	return Column{Name: name, Type: ColumnTypeNumeric, Numbers: values}
}

// NewStringColumn creates a string column
func NewStringColumn(name string, values []string) Column {
	if values == nil {
		values = []string{}
	}
	return Column{Name: name, Type: ColumnTypeString, Strings: values}
}

// NewTimestampColumn creates a timestamp column. Missing values are the zero time.
func NewTimestampColumn(name string, values []time.Time) Column {
	if values == nil {
		values = []time.Time{}
	}
	return Column{Name: name, Type: ColumnTypeTimestamp, Times: values}
}

// Len returns the number of values in the column
func (c *Column) Len() int {
	switch c.Type {
	case ColumnTypeNumeric:
		return len(c.Numbers)
	case ColumnTypeString:
		return len(c.Strings)
	case ColumnTypeTimestamp:
		return len(c.Times)
	default:
		return 0
	}
}

// Value returns the i-th value as an interface. Missing numeric and
// timestamp values are returned as nil so they encode as JSON null.
func (c *Column) Value(i int) any {
	switch c.Type {
	case ColumnTypeNumeric:
		v := c.Numbers[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	case ColumnTypeString:
		return c.Strings[i]
	case ColumnTypeTimestamp:
		v := c.Times[i]
		if v.IsZero() {
			return nil
		}
		return v
	default:
		return nil
	}
}

func (c *Column) slice(n int) Column {
	out := Column{Name: c.Name, Type: c.Type}
	switch c.Type {
	case ColumnTypeNumeric:
		out.Numbers = append([]float64(nil), c.Numbers[:n]...)
	case ColumnTypeString:
		out.Strings = append([]string(nil), c.Strings[:n]...)
	case ColumnTypeTimestamp:
		out.Times = append([]time.Time(nil), c.Times[:n]...)
	}
	return out
}

// Table is a named rectangular dataset
type Table struct {
	Name    string
	Columns []Column
}

// New builds a table and checks that all columns share one row count
func New(name string, columns ...Column) (*Table, error) {
	t := &Table{Name: name, Columns: columns}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Empty returns a zero-row table. When schema is non-empty the table carries
// those columns with no values.
func Empty(name string, schema Schema) *Table {
	t := &Table{Name: name, Columns: make([]Column, 0, len(schema))}
	for _, f := range schema {
		switch f.Type {
		case ColumnTypeNumeric:
			t.Columns = append(t.Columns, NewNumericColumn(f.Name, nil))
		case ColumnTypeTimestamp:
			t.Columns = append(t.Columns, NewTimestampColumn(f.Name, nil))
		default:
			t.Columns = append(t.Columns, NewStringColumn(f.Name, nil))
		}
	}
	return t
}

// Validate checks the rectangular invariant
func (t *Table) Validate() error {
	if len(t.Columns) == 0 {
		return nil
	}
	rows := t.Columns[0].Len()
	for i := range t.Columns {
		if n := t.Columns[i].Len(); n != rows {
			return fmt.Errorf("%w: column %q has %d rows, expected %d", ErrRagged, t.Columns[i].Name, n, rows)
		}
	}
	return nil
}

// NumRows returns the row count shared by all columns
func (t *Table) NumRows() int {
	if t == nil || len(t.Columns) == 0 {
		return 0
	}
	return t.Columns[0].Len()
}

// NumCols returns the number of columns
func (t *Table) NumCols() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// IsEmpty reports whether the table has no rows
func (t *Table) IsEmpty() bool {
	return t.NumRows() == 0
}

// ColumnNames returns the column names in order
func (t *Table) ColumnNames() []string {
	return t.Schema().Names()
}

// Schema returns the table's fields
func (t *Table) Schema() Schema {
	if t == nil {
		return Schema{}
	}
	s := make(Schema, len(t.Columns))
	for i, c := range t.Columns {
		s[i] = Field{Name: c.Name, Type: c.Type}
	}
	return s
}

// Column looks up a column by name
func (t *Table) Column(name string) (*Column, bool) {
	if t == nil {
		return nil, false
	}
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}

// Row returns the values of row i in column order
func (t *Table) Row(i int) []any {
	row := make([]any, len(t.Columns))
	for j := range t.Columns {
		row[j] = t.Columns[j].Value(i)
	}
	return row
}

// Rows returns every row. Intended for small tables and API responses.
func (t *Table) Rows() [][]any {
	rows := make([][]any, t.NumRows())
	for i := range rows {
		rows[i] = t.Row(i)
	}
	return rows
}

// Head returns a copy holding at most the first n rows.
// A negative n returns a copy of the whole table.
func (t *Table) Head(n int) *Table {
	rows := t.NumRows()
	if n < 0 || n > rows {
		n = rows
	}
	out := &Table{Name: t.Name, Columns: make([]Column, len(t.Columns))}
	for i := range t.Columns {
		out.Columns[i] = t.Columns[i].slice(n)
	}
	return out
}
