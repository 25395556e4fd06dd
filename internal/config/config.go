// Package config provides configuration loading and validation for the ingestion server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stacklok/omnifield-ingest/internal/parser"
	"github.com/stacklok/omnifield-ingest/internal/table"
	"github.com/stacklok/omnifield-ingest/internal/telemetry"
)

const (
	// SourceTypeGit is the type for tables stored in Git repositories
	SourceTypeGit = "git"

	// SourceTypeHTTP is the type for tables fetched over HTTP(S)
	SourceTypeHTTP = "http"

	// SourceTypeFile is the type for tables stored in local files
	SourceTypeFile = "file"
)

// EnvPrefix is the prefix for environment variables read by the CLI
const EnvPrefix = "OMNIFIELD"

const (
	// DefaultSourceTimeout bounds a single source read when no override is set
	DefaultSourceTimeout = 30 * time.Second

	// DefaultParallelism is the number of sources loaded at once
	DefaultParallelism = 4

	defaultStatusDir = "./data/status"
	defaultSchemaDir = "./data/schemas"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// RegistryName identifies this ingestion instance in logs and telemetry
	// Defaults to "omnifield" if not specified
	RegistryName string `yaml:"registryName,omitempty"`

	Cache     CacheConfig       `yaml:"cache,omitempty"`
	Sources   []SourceConfig    `yaml:"sources"`
	Dashboard *DashboardConfig  `yaml:"dashboard,omitempty"`
	Telemetry *telemetry.Config `yaml:"telemetry,omitempty"`

	// StatusDir holds per-source load status files
	StatusDir string `yaml:"statusDir,omitempty"`

	// SchemaDir holds the last known schema of every source
	SchemaDir string `yaml:"schemaDir,omitempty"`
}

// CacheConfig controls snapshot caching and refresh
type CacheConfig struct {
	// TTL is how long a snapshot is served before the next access reloads it.
	// Empty or "0" keeps the snapshot for the process lifetime.
	TTL string `yaml:"ttl,omitempty"`

	// Parallelism caps concurrent source loads
	Parallelism int `yaml:"parallelism,omitempty"`

	// DefaultTimeout bounds each source read unless the source overrides it
	DefaultTimeout string `yaml:"defaultTimeout,omitempty"`

	// RefreshInterval enables the background refresh coordinator
	RefreshInterval string `yaml:"refreshInterval,omitempty"`

	// Watch refreshes the snapshot when a file source changes on disk
	Watch bool `yaml:"watch,omitempty"`
}

// SourceConfig defines a single named tabular source
type SourceConfig struct {
	// Name is the unique key of the table in every snapshot
	Name string `yaml:"name"`

	// Format is csv or parquet. Inferred from the location when empty.
	Format string `yaml:"format,omitempty"`

	// Timeout overrides the cache default timeout for this source
	Timeout string `yaml:"timeout,omitempty"`

	// SchemaHint pins column types by name
	SchemaHint map[string]string `yaml:"schemaHint,omitempty"`

	// Type-specific configurations (only one should be set)
	File *FileConfig `yaml:"file,omitempty"`
	HTTP *HTTPConfig `yaml:"http,omitempty"`
	Git  *GitConfig  `yaml:"git,omitempty"`
}

// FileConfig defines local file source configuration
type FileConfig struct {
	// Path is absolute or relative to the working directory
	Path string `yaml:"path"`
}

// HTTPConfig defines a table downloaded from a URL
type HTTPConfig struct {
	URL string `yaml:"url"`
}

// GitConfig defines Git source settings
type GitConfig struct {
	// Repository is the Git repository URL (HTTP/HTTPS/SSH)
	Repository string `yaml:"repository"`

	// Branch is the Git branch to use (mutually exclusive with Tag and Commit)
	Branch string `yaml:"branch,omitempty"`

	// Tag is the Git tag to use (mutually exclusive with Branch and Commit)
	Tag string `yaml:"tag,omitempty"`

	// Commit is the Git commit SHA to use (mutually exclusive with Branch and Tag)
	Commit string `yaml:"commit,omitempty"`

	// Path is the path to the table file within the repository
	Path string `yaml:"path"`
}

// DashboardConfig binds dashboard modules to source names
type DashboardConfig struct {
	// Modules maps a module id (strategic, subsurface, production, safety)
	// to the source it reads
	Modules map[string]string `yaml:"modules,omitempty"`

	// Forecast overrides the production decline parameters
	Forecast *ForecastConfig `yaml:"forecast,omitempty"`
}

// ForecastConfig holds exponential decline parameters
type ForecastConfig struct {
	InitialRate float64 `yaml:"initialRate,omitempty"`
	DeclineRate float64 `yaml:"declineRate,omitempty"`
	StartYear   int     `yaml:"startYear,omitempty"`
	Horizon     int     `yaml:"horizon,omitempty"`
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes and validates configuration held in memory
func Parse(data []byte) (*Config, error) {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetRegistryName returns the registry name, using "omnifield" if not specified
func (c *Config) GetRegistryName() string {
	if c.RegistryName == "" {
		return "omnifield"
	}
	return c.RegistryName
}

// GetStatusDir returns the status directory, using ./data/status if not specified
func (c *Config) GetStatusDir() string {
	if c.StatusDir == "" {
		return defaultStatusDir
	}
	return c.StatusDir
}

// GetSchemaDir returns the schema directory, using ./data/schemas if not specified
func (c *Config) GetSchemaDir() string {
	if c.SchemaDir == "" {
		return defaultSchemaDir
	}
	return c.SchemaDir
}

// SourceNames returns the declared source names in configuration order
func (c *Config) SourceNames() []string {
	names := make([]string, len(c.Sources))
	for i := range c.Sources {
		names[i] = c.Sources[i].Name
	}
	return names
}

// GetTTL returns the parsed cache TTL. Zero means no expiry.
func (c *CacheConfig) GetTTL() time.Duration {
	return parseDurationOrZero(c.TTL)
}

// GetDefaultTimeout returns the per-source timeout default
func (c *CacheConfig) GetDefaultTimeout() time.Duration {
	if d := parseDurationOrZero(c.DefaultTimeout); d > 0 {
		return d
	}
	return DefaultSourceTimeout
}

// GetRefreshInterval returns the coordinator period. Zero disables it.
func (c *CacheConfig) GetRefreshInterval() time.Duration {
	return parseDurationOrZero(c.RefreshInterval)
}

// GetParallelism returns the concurrent load limit
func (c *CacheConfig) GetParallelism() int {
	if c.Parallelism <= 0 {
		return DefaultParallelism
	}
	return c.Parallelism
}

// GetType returns the inferred type of the source based on which field is present
func (s *SourceConfig) GetType() string {
	if s.Git != nil {
		return SourceTypeGit
	}
	if s.HTTP != nil {
		return SourceTypeHTTP
	}
	if s.File != nil {
		return SourceTypeFile
	}
	return ""
}

// Location returns a human readable locator for the source
func (s *SourceConfig) Location() string {
	switch {
	case s.File != nil:
		return s.File.Path
	case s.HTTP != nil:
		return s.HTTP.URL
	case s.Git != nil:
		return s.Git.Repository + "#" + s.Git.Path
	default:
		return ""
	}
}

// GetFormat returns the configured format or infers it from the location
func (s *SourceConfig) GetFormat() string {
	if s.Format != "" {
		return s.Format
	}
	path := s.Location()
	if s.Git != nil {
		path = s.Git.Path
	}
	return parser.FormatFromLocation(path)
}

// GetTimeout returns the per-source timeout, or fallback when unset
func (s *SourceConfig) GetTimeout(fallback time.Duration) time.Duration {
	if d := parseDurationOrZero(s.Timeout); d > 0 {
		return d
	}
	return fallback
}

// GetHint converts the schema hint into parser form. Validation guarantees
// every entry parses.
func (s *SourceConfig) GetHint() parser.Hint {
	if len(s.SchemaHint) == 0 {
		return nil
	}
	hint := make(parser.Hint, len(s.SchemaHint))
	for col, typ := range s.SchemaHint {
		if ct, err := table.ParseColumnType(typ); err == nil {
			hint[col] = ct
		}
	}
	return hint
}

func parseDurationOrZero(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}
