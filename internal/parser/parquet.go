package parser

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/stacklok/omnifield-ingest/internal/table"
)

// ParseParquet reads a Parquet file held in memory into a table
func ParseParquet(ctx context.Context, name string, data []byte) (*table.Table, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}

	mem := memory.NewGoAllocator()
	arrowTable, err := pqarrow.ReadTable(ctx, bytes.NewReader(data), parquet.NewReaderProperties(mem),
		pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	defer arrowTable.Release()

	columns := make([]table.Column, 0, arrowTable.NumCols())
	for i := 0; i < int(arrowTable.NumCols()); i++ {
		col, err := convertArrowColumn(arrowTable.Column(i))
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}

	return table.New(name, columns...)
}

func convertArrowColumn(col *arrow.Column) (table.Column, error) {
	chunks := col.Data().Chunks()
	switch col.DataType().ID() {
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64,
		arrow.FLOAT32, arrow.FLOAT64:
		nums := make([]float64, 0, col.Len())
		for _, chunk := range chunks {
			var err error
			if nums, err = appendNumericChunk(nums, chunk); err != nil {
				return table.Column{}, fmt.Errorf("column %q: %w", col.Name(), err)
			}
		}
		return table.NewNumericColumn(col.Name(), nums), nil

	case arrow.STRING, arrow.LARGE_STRING, arrow.BOOL:
		strs := make([]string, 0, col.Len())
		for _, chunk := range chunks {
			for i := 0; i < chunk.Len(); i++ {
				if chunk.IsNull(i) {
					strs = append(strs, "")
					continue
				}
				strs = append(strs, chunk.ValueStr(i))
			}
		}
		return table.NewStringColumn(col.Name(), strs), nil

	case arrow.TIMESTAMP, arrow.DATE32, arrow.DATE64:
		times := make([]time.Time, 0, col.Len())
		for _, chunk := range chunks {
			var err error
			if times, err = appendTimeChunk(times, chunk); err != nil {
				return table.Column{}, fmt.Errorf("column %q: %w", col.Name(), err)
			}
		}
		return table.NewTimestampColumn(col.Name(), times), nil

	default:
		return table.Column{}, fmt.Errorf("%w: column %q has unsupported type %s",
			ErrMalformed, col.Name(), col.DataType())
	}
}

type number interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

func appendNumbers[T number](dst []float64, arr arrow.Array, value func(int) T) []float64 {
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			dst = append(dst, math.NaN())
			continue
		}
		dst = append(dst, float64(value(i)))
	}
	return dst
}

func appendNumericChunk(dst []float64, chunk arrow.Array) ([]float64, error) {
	switch a := chunk.(type) {
	case *array.Int8:
		return appendNumbers(dst, a, a.Value), nil
	case *array.Int16:
		return appendNumbers(dst, a, a.Value), nil
	case *array.Int32:
		return appendNumbers(dst, a, a.Value), nil
	case *array.Int64:
		return appendNumbers(dst, a, a.Value), nil
	case *array.Uint8:
		return appendNumbers(dst, a, a.Value), nil
	case *array.Uint16:
		return appendNumbers(dst, a, a.Value), nil
	case *array.Uint32:
		return appendNumbers(dst, a, a.Value), nil
	case *array.Uint64:
		return appendNumbers(dst, a, a.Value), nil
	case *array.Float32:
		return appendNumbers(dst, a, a.Value), nil
	case *array.Float64:
		return appendNumbers(dst, a, a.Value), nil
	default:
		return nil, fmt.Errorf("%w: unexpected numeric array %T", ErrMalformed, chunk)
	}
}

func appendTimeChunk(dst []time.Time, chunk arrow.Array) ([]time.Time, error) {
	switch a := chunk.(type) {
	case *array.Timestamp:
		toTime, err := a.DataType().(*arrow.TimestampType).GetToTimeFunc()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		for i := 0; i < a.Len(); i++ {
			if a.IsNull(i) {
				dst = append(dst, time.Time{})
				continue
			}
			dst = append(dst, toTime(a.Value(i)))
		}
	case *array.Date32:
		for i := 0; i < a.Len(); i++ {
			if a.IsNull(i) {
				dst = append(dst, time.Time{})
				continue
			}
			dst = append(dst, a.Value(i).ToTime())
		}
	case *array.Date64:
		for i := 0; i < a.Len(); i++ {
			if a.IsNull(i) {
				dst = append(dst, time.Time{})
				continue
			}
			dst = append(dst, a.Value(i).ToTime())
		}
	default:
		return nil, fmt.Errorf("%w: unexpected temporal array %T", ErrMalformed, chunk)
	}
	return dst, nil
}
