// Package logging builds the process slog handler on top of zap.
//
// Records flow slog -> logr -> zap, so libraries that log through logr and
// code that logs through slog share one encoder and level. Every record
// logged with a span in its context carries trace_id and span_id.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	// FormatJSON writes one JSON object per record
	FormatJSON = "json"

	// FormatText writes human readable console lines
	FormatText = "text"
)

// Options configures the handler
type Options struct {
	Level  slog.Level
	Format string

	// Output defaults to stderr so stdout stays clean for command output
	Output io.Writer
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
}

// NewHandler returns a slog handler backed by zap
func NewHandler(opts Options) (slog.Handler, error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "time"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = encodeLevel

	var enc zapcore.Encoder
	switch opts.Format {
	case FormatJSON, "":
		enc = zapcore.NewJSONEncoder(encCfg)
	case FormatText:
		enc = zapcore.NewConsoleEncoder(encCfg)
	default:
		return nil, fmt.Errorf("invalid log format %q: must be %s or %s", opts.Format, FormatJSON, FormatText)
	}

	// logr reports warn as V(0), so zap admits everything from info up and
	// traceHandler applies the configured level
	zapLevel := zapcore.InfoLevel
	if opts.Level < slog.LevelInfo {
		// slog levels below info map to negative zap levels one to one
		zapLevel = zapcore.Level(opts.Level)
	}
	core := zapcore.NewCore(enc, zapcore.AddSync(out), zap.NewAtomicLevelAt(zapLevel))
	zl := zap.New(core)

	return &traceHandler{Handler: logr.ToSlogHandler(zapr.NewLogger(zl)), level: opts.Level}, nil
}

// New returns a logger using NewHandler
func New(opts Options) (*slog.Logger, error) {
	h, err := NewHandler(opts)
	if err != nil {
		return nil, err
	}
	return slog.New(h), nil
}

// Logr returns a logr view of the same handler
func Logr(h slog.Handler) logr.Logger {
	return logr.FromSlogHandler(h)
}

func encodeLevel(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if l < zapcore.DebugLevel {
		enc.AppendString("debug")
		return
	}
	zapcore.LowercaseLevelEncoder(l, enc)
}

// traceHandler wraps an slog.Handler to inject OpenTelemetry trace_id and
// span_id into every log record
type traceHandler struct {
	slog.Handler
	level slog.Level
}

func (h *traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.level && h.Handler.Enabled(ctx, level)
}

func (h *traceHandler) Handle(ctx context.Context, r slog.Record) error {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.AddAttrs(
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.String("span_id", span.SpanContext().SpanID().String()),
		)
	}
	return h.Handler.Handle(ctx, r)
}

func (h *traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithAttrs(attrs), level: h.level}
}

func (h *traceHandler) WithGroup(name string) slog.Handler {
	return &traceHandler{Handler: h.Handler.WithGroup(name), level: h.level}
}
