package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/stacklok/omnifield-ingest/internal/table"
)

const (
	// SchemaFileName is the name of the per-source schema file
	SchemaFileName = "schema.json"
)

// ErrSchemaNotFound is returned when no schema has been recorded for a source
var ErrSchemaNotFound = errors.New("schema not found")

//go:generate mockgen -destination=mocks/mock_schema_store.go -package=mocks -source=schema_store.go SchemaStore

// SchemaStore remembers the last known schema of each source
type SchemaStore interface {
	// Store records the schema of a source
	Store(ctx context.Context, source string, schema table.Schema) error

	// Get returns the recorded schema or ErrSchemaNotFound
	Get(ctx context.Context, source string) (table.Schema, error)

	// Delete removes the recorded schema. Missing entries are not an error.
	Delete(ctx context.Context, source string) error
}

// fileSchemaStore keeps schemas as <basePath>/<source>/schema.json
type fileSchemaStore struct {
	basePath string
}

// NewFileSchemaStore creates a new file-based schema store
func NewFileSchemaStore(basePath string) SchemaStore {
	return &fileSchemaStore{basePath: basePath}
}

func (f *fileSchemaStore) path(source string) (string, error) {
	if source == "" || strings.ContainsAny(source, `/\`) || !filepath.IsLocal(source) {
		return "", fmt.Errorf("invalid source name for schema storage: %q", source)
	}
	return filepath.Join(f.basePath, source, SchemaFileName), nil
}

// Store saves the schema to a JSON file
func (f *fileSchemaStore) Store(_ context.Context, source string, schema table.Schema) error {
	filePath, err := f.path(source)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0750); err != nil {
		return fmt.Errorf("failed to create schema directory: %w", err)
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	// Write to temporary file first for atomic operation
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary schema file: %w", err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename schema file: %w", err)
	}

	return nil
}

// Get reads the schema file
func (f *fileSchemaStore) Get(_ context.Context, source string) (table.Schema, error) {
	filePath, err := f.path(source)
	if err != nil {
		return nil, err
	}

	//nolint:gosec // File path is built from a validated source name
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, source)
		}
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	var schema table.Schema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}

	return schema, nil
}

// Delete removes the schema file
func (f *fileSchemaStore) Delete(_ context.Context, source string) error {
	filePath, err := f.path(source)
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete schema file: %w", err)
	}

	return nil
}

// memorySchemaStore keeps schemas in process memory
type memorySchemaStore struct {
	mu      sync.RWMutex
	schemas map[string]table.Schema
}

// NewMemorySchemaStore creates a schema store that lives for the process lifetime
func NewMemorySchemaStore() SchemaStore {
	return &memorySchemaStore{schemas: make(map[string]table.Schema)}
}

func (m *memorySchemaStore) Store(_ context.Context, source string, schema table.Schema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemas[source] = append(table.Schema(nil), schema...)
	return nil
}

func (m *memorySchemaStore) Get(_ context.Context, source string) (table.Schema, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	schema, ok := m.schemas[source]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, source)
	}
	return append(table.Schema(nil), schema...), nil
}

func (m *memorySchemaStore) Delete(_ context.Context, source string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.schemas, source)
	return nil
}
