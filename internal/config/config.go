// Package config loads and validates the salesgrid configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	sgerrors "github.com/xtxerr/salesgrid/internal/errors"
)

// Config represents the complete pipeline configuration.
type Config struct {
	// Store configures the HBase connection and table layout.
	Store StoreConfig `yaml:"store"`

	// Ingest configures the batched write path.
	Ingest IngestConfig `yaml:"ingest"`

	// Query configures the canned queries driven from the CLI.
	Query QueryConfig `yaml:"query"`

	// Source configures the CSV record source.
	Source SourceConfig `yaml:"source"`

	// Export configures parquet snapshot export.
	Export ExportConfig `yaml:"export"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig configures the HBase connection and table layout.
type StoreConfig struct {
	// Quorum is the ZooKeeper quorum address, "host:port".
	Quorum string `yaml:"quorum"`

	// Table is the target table name.
	Table string `yaml:"table"`

	// Families are the column families created for the table.
	Families []string `yaml:"families"`
}

// IngestConfig configures the batched write path.
type IngestConfig struct {
	// BatchSize is the maximum number of rows per batch write.
	BatchSize int `yaml:"batch_size"`

	// FlushConcurrency is the number of batch flushes allowed in flight.
	// Batches are independent units of work, so values above 1 are safe.
	FlushConcurrency int `yaml:"flush_concurrency"`
}

// QueryConfig configures the canned queries.
type QueryConfig struct {
	// Projection limits scans to the listed "family:qualifier" columns.
	// Empty means all columns.
	Projection []string `yaml:"projection"`

	// FilterCountry is the country used by the large-sales query.
	FilterCountry string `yaml:"filter_country"`

	// LargeSaleThreshold is the minimum sale total for the large-sales query.
	LargeSaleThreshold float64 `yaml:"large_sale_threshold"`

	// TopCountries is the number of countries shown in the report.
	TopCountries int `yaml:"top_countries"`
}

// SourceConfig configures the CSV record source.
type SourceConfig struct {
	// Path is the CSV file to ingest.
	Path string `yaml:"path"`
}

// ExportConfig configures parquet snapshot export.
type ExportConfig struct {
	// Dir is the directory for exported parquet snapshots.
	// Empty disables export.
	Dir string `yaml:"dir"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// JSON switches output to JSON format.
	JSON bool `yaml:"json"`
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Quorum:   "localhost:2181",
			Table:    "auto_sales",
			Families: []string{"order_info", "customer", "product", "sales"},
		},
		Ingest: IngestConfig{
			BatchSize:        100,
			FlushConcurrency: 1,
		},
		Query: QueryConfig{
			FilterCountry:      "USA",
			LargeSaleThreshold: 5000,
			TopCountries:       5,
		},
		Source: SourceConfig{
			Path: "auto-sales-data.csv",
		},
		Export: ExportConfig{
			Dir: "",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Store.Quorum == "" {
		return sgerrors.NewValidation("store.quorum", "must not be empty")
	}
	if c.Store.Table == "" {
		return sgerrors.NewValidation("store.table", "must not be empty")
	}
	if len(c.Store.Families) == 0 {
		return sgerrors.NewValidation("store.families", "at least one column family required")
	}
	for _, f := range c.Store.Families {
		if f == "" || strings.ContainsAny(f, ": ") {
			return sgerrors.NewValidation("store.families", fmt.Sprintf("bad family name %q", f))
		}
	}
	if c.Ingest.BatchSize <= 0 {
		return sgerrors.NewValidation("ingest.batch_size", "must be positive")
	}
	if c.Ingest.FlushConcurrency <= 0 {
		return sgerrors.NewValidation("ingest.flush_concurrency", "must be positive")
	}
	for _, p := range c.Query.Projection {
		if !strings.Contains(p, ":") {
			return sgerrors.NewValidation("query.projection",
				fmt.Sprintf("%q is not of the form family:qualifier", p))
		}
	}
	if c.Query.LargeSaleThreshold < 0 {
		return sgerrors.NewValidation("query.large_sale_threshold", "must not be negative")
	}
	if c.Query.TopCountries <= 0 {
		return sgerrors.NewValidation("query.top_countries", "must be positive")
	}
	return nil
}

// ProjectionMap converts the "family:qualifier" projection list to the
// family -> qualifiers form used by scans. Returns nil when no projection
// is configured.
func (c *Config) ProjectionMap() map[string][]string {
	if len(c.Query.Projection) == 0 {
		return nil
	}
	m := make(map[string][]string)
	for _, p := range c.Query.Projection {
		fam, qual, ok := strings.Cut(p, ":")
		if !ok {
			continue
		}
		m[fam] = append(m[fam], qual)
	}
	return m
}
