// Package parser turns raw source bytes into tables.
//
// CSV input must carry a header row. Column types are inferred from every
// value in the column unless a schema hint pins them. Parquet input is read
// through Apache Arrow and mapped onto the numeric, string and timestamp
// column types.
package parser
