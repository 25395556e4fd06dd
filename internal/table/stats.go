package table

import (
	"errors"
	"math"
)

// ErrNotNumeric is returned when a numeric operation targets another column type
var ErrNotNumeric = errors.New("column is not numeric")

// Summary holds descriptive statistics for a numeric column.
// NaN and infinite values are skipped.
type Summary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Last   float64 `json:"last"`
}

// Summarize computes min, max, mean and last value of a numeric column
func (c *Column) Summarize() (Summary, error) {
	if c.Type != ColumnTypeNumeric {
		return Summary{}, ErrNotNumeric
	}
	s := Summary{Column: c.Name, Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, v := range c.Numbers {
		if !IsFinite(v) {
			continue
		}
		s.Count++
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
		s.Last = v
	}
	if s.Count == 0 {
		return Summary{Column: c.Name}, nil
	}
	s.Mean = sum / float64(s.Count)
	return s, nil
}

// IsFinite reports whether v is neither NaN nor an infinity
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// NumericSummaries returns a summary for every numeric column in order
func (t *Table) NumericSummaries() []Summary {
	if t == nil {
		return nil
	}
	out := make([]Summary, 0, len(t.Columns))
	for i := range t.Columns {
		s, err := t.Columns[i].Summarize()
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out
}
