package registry

import (
	"context"
	"log/slog"
)

// WarningSink receives advisory reports of sources that failed to load.
// Implementations must return promptly; the loader calls them inline.
type WarningSink interface {
	Warn(ctx context.Context, source string, err error)
}

// WarningSinkFunc adapts a function to WarningSink
type WarningSinkFunc func(ctx context.Context, source string, err error)

// Warn calls f
func (f WarningSinkFunc) Warn(ctx context.Context, source string, err error) {
	f(ctx, source, err)
}

type slogSink struct {
	logger *slog.Logger
}

// NewSlogSink logs each failure at WARN level
func NewSlogSink(logger *slog.Logger) WarningSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &slogSink{logger: logger}
}

func (s *slogSink) Warn(ctx context.Context, source string, err error) {
	s.logger.WarnContext(ctx, "Source failed to load, serving empty table",
		"source", source,
		"kind", ErrorKind(err),
		"error", err)
}
