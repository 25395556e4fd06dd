package sources

import (
	"fmt"

	"github.com/stacklok/omnifield-ingest/internal/config"
	"github.com/stacklok/omnifield-ingest/internal/git"
	"github.com/stacklok/omnifield-ingest/internal/httpclient"
)

// defaultSourceHandlerFactory is the default implementation of SourceHandlerFactory
type defaultSourceHandlerFactory struct {
	httpClient httpclient.Client
	gitClient  git.Client

	// shared so that their change memos survive across loads
	git  SourceHandler
	http SourceHandler
}

var _ SourceHandlerFactory = (*defaultSourceHandlerFactory)(nil)

// FactoryOption configures the default factory
type FactoryOption func(*defaultSourceHandlerFactory)

// WithHTTPClient sets the client used by http sources
func WithHTTPClient(client httpclient.Client) FactoryOption {
	return func(f *defaultSourceHandlerFactory) {
		f.httpClient = client
	}
}

// WithGitClient sets the client used by git sources
func WithGitClient(client git.Client) FactoryOption {
	return func(f *defaultSourceHandlerFactory) {
		f.gitClient = client
	}
}

// NewSourceHandlerFactory creates a new source handler factory
func NewSourceHandlerFactory(opts ...FactoryOption) SourceHandlerFactory {
	f := &defaultSourceHandlerFactory{}
	for _, opt := range opts {
		opt(f)
	}
	f.git = NewGitSourceHandler(f.gitClient)
	f.http = NewHTTPSourceHandler(f.httpClient)
	return f
}

// CreateHandler creates a source handler for the given source type
func (f *defaultSourceHandlerFactory) CreateHandler(sourceType string) (SourceHandler, error) {
	switch sourceType {
	case config.SourceTypeGit:
		return f.git, nil
	case config.SourceTypeHTTP:
		return f.http, nil
	case config.SourceTypeFile:
		return NewFileSourceHandler(), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}
