package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/stacklok/omnifield-ingest/internal/parser"
	"github.com/stacklok/omnifield-ingest/internal/table"
)

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if err := c.Cache.validate(); err != nil {
		return err
	}

	if len(c.Sources) == 0 {
		return fmt.Errorf("at least one source must be configured")
	}

	sourceNames := make(map[string]bool)
	for i := range c.Sources {
		src := &c.Sources[i]
		if src.Name == "" {
			return fmt.Errorf("sources[%d]: name is required", i)
		}

		if sourceNames[src.Name] {
			return fmt.Errorf("sources[%d]: duplicate source name '%s'", i, src.Name)
		}
		sourceNames[src.Name] = true

		if err := validateSourceConfig(src, i); err != nil {
			return err
		}
	}

	if c.Dashboard != nil {
		for module, source := range c.Dashboard.Modules {
			if !sourceNames[source] {
				return fmt.Errorf("dashboard.modules.%s: unknown source '%s'", module, source)
			}
		}
	}

	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	return nil
}

// validate checks the cache durations
func (c *CacheConfig) validate() error {
	fields := map[string]string{
		"ttl":             c.TTL,
		"defaultTimeout":  c.DefaultTimeout,
		"refreshInterval": c.RefreshInterval,
	}
	for name, value := range fields {
		if err := validateDuration(value); err != nil {
			return fmt.Errorf("cache.%s: %w", name, err)
		}
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("cache.parallelism must not be negative, got %d", c.Parallelism)
	}
	return nil
}

// validateSourceConfig validates a single source configuration
func validateSourceConfig(src *SourceConfig, index int) error {
	prefix := fmt.Sprintf("sources[%d] (%s)", index, src.Name)

	if err := validateSourceTypeCount(src, prefix); err != nil {
		return err
	}

	if err := validateDuration(src.Timeout); err != nil {
		return fmt.Errorf("%s: timeout: %w", prefix, err)
	}

	switch src.Format {
	case "", parser.FormatCSV, parser.FormatParquet:
	default:
		return fmt.Errorf("%s: format must be one of %s or %s, got %s",
			prefix, parser.FormatCSV, parser.FormatParquet, src.Format)
	}

	for col, typ := range src.SchemaHint {
		if _, err := table.ParseColumnType(typ); err != nil {
			return fmt.Errorf("%s: schemaHint.%s: %w", prefix, col, err)
		}
	}

	return validateSourceSpecificConfig(src, prefix)
}

// validateSourceTypeCount ensures exactly one source type is configured
func validateSourceTypeCount(src *SourceConfig, prefix string) error {
	configCount := 0
	if src.Git != nil {
		configCount++
	}
	if src.HTTP != nil {
		configCount++
	}
	if src.File != nil {
		configCount++
	}

	if configCount == 0 {
		return fmt.Errorf("%s: one of file, http, or git configuration must be specified", prefix)
	}
	if configCount > 1 {
		return fmt.Errorf("%s: only one of file, http, or git configuration may be specified", prefix)
	}

	return nil
}

// validateSourceSpecificConfig validates the configuration for each source type
func validateSourceSpecificConfig(src *SourceConfig, prefix string) error {
	switch {
	case src.Git != nil:
		return validateGitConfig(src.Git, prefix)
	case src.HTTP != nil:
		return validateHTTPConfig(src.HTTP, prefix)
	case src.File != nil:
		return validateFileConfig(src.File, prefix)
	}
	return nil
}

func validateGitConfig(git *GitConfig, prefix string) error {
	if git.Repository == "" {
		return fmt.Errorf("%s: git.repository is required", prefix)
	}
	if git.Path == "" {
		return fmt.Errorf("%s: git.path is required", prefix)
	}
	refs := 0
	for _, ref := range []string{git.Branch, git.Tag, git.Commit} {
		if ref != "" {
			refs++
		}
	}
	if refs > 1 {
		return fmt.Errorf("%s: only one of git.branch, git.tag, or git.commit may be specified", prefix)
	}
	return nil
}

func validateHTTPConfig(h *HTTPConfig, prefix string) error {
	if h.URL == "" {
		return fmt.Errorf("%s: http.url is required", prefix)
	}
	u, err := url.Parse(h.URL)
	if err != nil {
		return fmt.Errorf("%s: http.url is invalid: %w", prefix, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: http.url must use http or https, got %q", prefix, u.Scheme)
	}
	return nil
}

func validateFileConfig(file *FileConfig, prefix string) error {
	if file.Path == "" {
		return fmt.Errorf("%s: file.path is required", prefix)
	}
	return nil
}

func validateDuration(value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("must be a valid duration (e.g., '30s', '5m'): %w", err)
	}
	if d < 0 {
		return fmt.Errorf("must not be negative, got %s", value)
	}
	return nil
}
