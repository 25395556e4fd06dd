package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/stacklok/omnifield-ingest/internal/parser"
)

var (
	// ErrSourceUnavailable means the source location was missing, unreachable or unreadable
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrSourceParse means the content was empty or not valid tabular data
	ErrSourceParse = errors.New("source parse error")

	// ErrLoadTimeout means the source read exceeded its deadline
	ErrLoadTimeout = errors.New("source load timeout")

	// ErrUnknownSource means the requested name was never declared
	ErrUnknownSource = errors.New("unknown source")
)

// Error kind names used in status reports and metrics
const (
	KindUnavailable = "unavailable"
	KindParse       = "parse"
	KindTimeout     = "timeout"
)

// LoadError describes why one source produced an empty table
type LoadError struct {
	// Source is the declared source name
	Source string

	// Kind is one of ErrSourceUnavailable, ErrSourceParse or ErrLoadTimeout
	Kind error

	// Err is the underlying failure
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("source %q: %v: %v", e.Source, e.Kind, e.Err)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As
func (e *LoadError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// newLoadError classifies err for source
func newLoadError(source string, err error) *LoadError {
	return &LoadError{Source: source, Kind: classify(err), Err: err}
}

func classify(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrLoadTimeout):
		return ErrLoadTimeout
	case errors.Is(err, parser.ErrEmpty),
		errors.Is(err, parser.ErrMalformed),
		errors.Is(err, parser.ErrTypeMismatch),
		errors.Is(err, parser.ErrUnsupportedFormat),
		errors.Is(err, ErrSourceParse):
		return ErrSourceParse
	default:
		return ErrSourceUnavailable
	}
}

// ErrorKind returns the short kind name of a load failure, or "" for nil
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrLoadTimeout):
		return KindTimeout
	case errors.Is(err, ErrSourceParse):
		return KindParse
	default:
		return KindUnavailable
	}
}
