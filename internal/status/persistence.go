// Package status tracks and persists the per-source load state.
package status

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"sigs.k8s.io/yaml"
)

//go:generate mockgen -destination=mocks/mock_status_persistence.go -package=mocks -source=persistence.go StatusPersistence

const (
	// StatusFileName is the name of the status file
	StatusFileName = "status.yaml"

	lockFileName = ".lock"
)

// StatusPersistence defines the interface for source status persistence
//
//nolint:revive // This name is fine
type StatusPersistence interface {
	// SaveStatus saves the status of a source
	SaveStatus(ctx context.Context, source string, status *SourceStatus) error

	// LoadStatus loads the status of a source.
	// Returns an empty SourceStatus if none was saved yet.
	LoadStatus(ctx context.Context, source string) (*SourceStatus, error)

	// LoadAllStatus loads the status of every saved source
	LoadAllStatus(ctx context.Context) (map[string]*SourceStatus, error)
}

// fileStatusPersistence stores <basePath>/<source>/status.yaml. Writers and
// readers take a flock on <basePath>/<source>/.lock so several processes can
// share one status directory.
type fileStatusPersistence struct {
	basePath string
}

// NewFileStatusPersistence creates a new file-based status persistence
func NewFileStatusPersistence(basePath string) StatusPersistence {
	return &fileStatusPersistence{basePath: basePath}
}

func (f *fileStatusPersistence) sourceDir(source string) (string, error) {
	if source == "" || strings.ContainsAny(source, `/\`) || !filepath.IsLocal(source) {
		return "", fmt.Errorf("invalid source name for status storage: %q", source)
	}
	return filepath.Join(f.basePath, source), nil
}

// SaveStatus writes the status atomically under an exclusive lock
func (f *fileStatusPersistence) SaveStatus(_ context.Context, source string, status *SourceStatus) error {
	dir, err := f.sourceDir(source)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create status directory for source '%s': %w", source, err)
	}

	data, err := yaml.Marshal(status)
	if err != nil {
		return fmt.Errorf("failed to marshal status data for source '%s': %w", source, err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock status for source '%s': %w", source, err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	filePath := filepath.Join(dir, StatusFileName)
	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary status file for source '%s': %w", source, err)
	}

	if err := os.Rename(tempPath, filePath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename status file for source '%s': %w", source, err)
	}

	return nil
}

// LoadStatus reads the status under a shared lock
func (f *fileStatusPersistence) LoadStatus(_ context.Context, source string) (*SourceStatus, error) {
	dir, err := f.sourceDir(source)
	if err != nil {
		return nil, err
	}
	filePath := filepath.Join(dir, StatusFileName)

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return &SourceStatus{}, nil
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	if err := lock.RLock(); err != nil {
		return nil, fmt.Errorf("failed to lock status for source '%s': %w", source, err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	// #nosec G304 -- filePath is built from basePath and a validated source name
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &SourceStatus{}, nil
		}
		return nil, fmt.Errorf("failed to read status file for source '%s': %w", source, err)
	}

	var status SourceStatus
	if err := yaml.Unmarshal(data, &status); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status data for source '%s': %w", source, err)
	}

	return &status, nil
}

// LoadAllStatus loads the status of every source directory
func (f *fileStatusPersistence) LoadAllStatus(ctx context.Context) (map[string]*SourceStatus, error) {
	result := make(map[string]*SourceStatus)

	entries, err := os.ReadDir(f.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, fmt.Errorf("failed to read status directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		source := entry.Name()
		status, err := f.LoadStatus(ctx, source)
		if err != nil {
			// partial results are better than none
			continue
		}
		result[source] = status
	}

	return result, nil
}

// memoryStatusPersistence keeps statuses in process memory
type memoryStatusPersistence struct {
	mu       sync.RWMutex
	statuses map[string]SourceStatus
}

// NewMemoryStatusPersistence creates an in-memory status persistence
func NewMemoryStatusPersistence() StatusPersistence {
	return &memoryStatusPersistence{statuses: make(map[string]SourceStatus)}
}

func (m *memoryStatusPersistence) SaveStatus(_ context.Context, source string, status *SourceStatus) error {
	if status == nil {
		return fmt.Errorf("status cannot be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses[source] = *status
	return nil
}

func (m *memoryStatusPersistence) LoadStatus(_ context.Context, source string) (*SourceStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status := m.statuses[source]
	return &status, nil
}

func (m *memoryStatusPersistence) LoadAllStatus(_ context.Context) (map[string]*SourceStatus, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]*SourceStatus, len(m.statuses))
	for name, status := range m.statuses {
		s := status
		result[name] = &s
	}
	return result, nil
}
