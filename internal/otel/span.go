// Package otel provides OpenTelemetry instrumentation utilities for ingestion.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Attribute keys shared by the loader, the dashboard and the API
const (
	AttrSnapshotID   = attribute.Key("snapshot.id")
	AttrSourceName   = attribute.Key("source.name")
	AttrSourceType   = attribute.Key("source.type")
	AttrSourceFormat = attribute.Key("source.format")
	AttrSourceCount  = attribute.Key("source.count")
	AttrFailedCount  = attribute.Key("source.failed_count")
	AttrErrorKind    = attribute.Key("error.kind")
	AttrRowCount     = attribute.Key("table.rows")
	AttrColumnCount  = attribute.Key("table.columns")
	AttrModuleID     = attribute.Key("dashboard.module")
	AttrPanelStatus  = attribute.Key("dashboard.status")
)

// StartSpan starts a new span if the tracer is non-nil, otherwise returns a no-op span.
// This provides graceful degradation when tracing is disabled.
func StartSpan(
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	opts ...trace.SpanStartOption,
) (context.Context, trace.Span) {
	if tracer == nil {
		// Never hand back the parent span, callers End what they get
		return ctx, noop.Span{}
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError marks span as failed and attaches err as an exception event.
// The status description stays generic. Nil span or nil err is a no-op.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}

// RecordFailure is RecordError plus the error.kind attribute
func RecordFailure(span trace.Span, err error, kind string) {
	if err == nil || span == nil {
		return
	}
	RecordError(span, err)
	if kind != "" {
		span.SetAttributes(AttrErrorKind.String(kind))
	}
}

// Shape returns the row and column attributes of a table
func Shape(rows, cols int) []attribute.KeyValue {
	return []attribute.KeyValue{AttrRowCount.Int(rows), AttrColumnCount.Int(cols)}
}
