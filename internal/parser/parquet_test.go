package parser

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/omnifield-ingest/internal/table"
)

func writeTestParquet(t *testing.T) []byte {
	t.Helper()

	mem := memory.NewGoAllocator()
	schema := arrow.NewSchema([]arrow.Field{
		{Name: "year", Type: arrow.PrimitiveTypes.Int64},
		{Name: "rate", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "field", Type: arrow.BinaryTypes.String},
	}, nil)

	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	builder.Field(0).(*array.Int64Builder).AppendValues([]int64{2020, 2021, 2022}, nil)
	builder.Field(1).(*array.Float64Builder).AppendValues([]float64{5000, 0, 4420}, []bool{true, false, true})
	builder.Field(2).(*array.StringBuilder).AppendValues([]string{"north", "north", "south"}, nil)

	record := builder.NewRecord()
	defer record.Release()

	tbl := array.NewTableFromRecords(schema, []arrow.Record{record})
	defer tbl.Release()

	var buf bytes.Buffer
	err := pqarrow.WriteTable(tbl, &buf, 1024, parquet.NewWriterProperties(), pqarrow.DefaultWriterProps())
	require.NoError(t, err)
	return buf.Bytes()
}

func TestParseParquet(t *testing.T) {
	t.Parallel()

	tbl, err := ParseParquet(context.Background(), "history", writeTestParquet(t))
	require.NoError(t, err)

	assert.Equal(t, "history", tbl.Name)
	assert.Equal(t, 3, tbl.NumRows())
	assert.Equal(t, table.Schema{
		{Name: "year", Type: table.ColumnTypeNumeric},
		{Name: "rate", Type: table.ColumnTypeNumeric},
		{Name: "field", Type: table.ColumnTypeString},
	}, tbl.Schema())

	rate, ok := tbl.Column("rate")
	require.True(t, ok)
	assert.Equal(t, 5000.0, rate.Numbers[0])
	assert.True(t, math.IsNaN(rate.Numbers[1]), "null becomes NaN")

	year, ok := tbl.Column("year")
	require.True(t, ok)
	assert.Equal(t, []float64{2020, 2021, 2022}, year.Numbers)
}

func TestParseParquet_Errors(t *testing.T) {
	t.Parallel()

	_, err := ParseParquet(context.Background(), "t", nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = ParseParquet(context.Background(), "t", []byte("year,rate\n2020,1\n"))
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParse_ParquetFormat(t *testing.T) {
	t.Parallel()

	tbl, err := Parse(context.Background(), FormatParquet, "history", writeTestParquet(t), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, tbl.NumCols())
}
