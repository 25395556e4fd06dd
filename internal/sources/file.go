package sources

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/stacklok/omnifield-ingest/internal/config"
)

// fileSourceHandler reads tables from the local filesystem
type fileSourceHandler struct{}

// NewFileSourceHandler creates a new file source handler
func NewFileSourceHandler() SourceHandler {
	return &fileSourceHandler{}
}

// Validate validates the file source configuration
func (*fileSourceHandler) Validate(source *config.SourceConfig) error {
	if source == nil {
		return fmt.Errorf("source configuration cannot be nil")
	}
	if source.File == nil {
		return fmt.Errorf("file configuration is required")
	}
	if source.File.Path == "" {
		return fmt.Errorf("file path cannot be empty")
	}
	return nil
}

// Fetch reads the file
func (h *fileSourceHandler) Fetch(ctx context.Context, source *config.SourceConfig) (*FetchResult, error) {
	data, err := h.read(ctx, source)
	if err != nil {
		return nil, err
	}
	return NewFetchResult(data, source.GetFormat()), nil
}

// CurrentHash reads and hashes the file. This costs about as much as Fetch.
func (h *fileSourceHandler) CurrentHash(ctx context.Context, source *config.SourceConfig) (string, error) {
	data, err := h.read(ctx, source)
	if err != nil {
		return "", err
	}
	return HashData(data), nil
}

func (h *fileSourceHandler) read(ctx context.Context, source *config.SourceConfig) ([]byte, error) {
	if err := h.Validate(source); err != nil {
		return nil, fmt.Errorf("source validation failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := source.File.Path

	//nolint:gosec // File path comes from user configuration, this is expected behavior
	data, err := os.ReadFile(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: file not found: %s", ErrUnavailable, path)
		case errors.Is(err, fs.ErrPermission):
			return nil, fmt.Errorf("%w: permission denied: %s", ErrUnavailable, path)
		default:
			return nil, fmt.Errorf("%w: failed to read file %s: %w", ErrUnavailable, path, err)
		}
	}
	return data, nil
}
