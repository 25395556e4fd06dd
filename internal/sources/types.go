package sources

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/stacklok/omnifield-ingest/internal/config"
)

// ErrUnavailable marks a source whose location could not be read
var ErrUnavailable = errors.New("source unavailable")

//go:generate mockgen -destination=mocks/mock_source_handler.go -package=mocks -source=types.go SourceHandler,SourceHandlerFactory

// SourceHandler fetches the raw content of one kind of source
type SourceHandler interface {
	// Fetch retrieves the source content
	Fetch(ctx context.Context, source *config.SourceConfig) (*FetchResult, error)

	// Validate validates the source configuration
	Validate(source *config.SourceConfig) error

	// CurrentHash returns the hash of the current source content
	CurrentHash(ctx context.Context, source *config.SourceConfig) (string, error)
}

// FetchResult contains the result of a fetch operation
type FetchResult struct {
	// Data is the raw resource content
	Data []byte

	// Hash is the hex SHA256 of Data
	Hash string

	// Format is csv or parquet
	Format string
}

// NewFetchResult creates a FetchResult and computes its hash
func NewFetchResult(data []byte, format string) *FetchResult {
	return &FetchResult{
		Data:   data,
		Hash:   HashData(data),
		Format: format,
	}
}

// HashData returns the hex SHA256 of data
func HashData(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// SourceHandlerFactory creates source handlers based on source type
type SourceHandlerFactory interface {
	// CreateHandler creates a source handler for the given source type
	CreateHandler(sourceType string) (SourceHandler, error)
}
