// Package config loads carbonstats configuration from a YAML file and
// CARBONSTATS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sumatoshi-tech/carbonstats/pkg/store"
)

// Sentinel validation errors.
var (
	ErrInvalidBackend     = errors.New("unknown store backend")
	ErrInvalidPort        = errors.New("invalid server port")
	ErrInvalidPageSize    = errors.New("scan page size must be positive")
	ErrPageSizeAboveCap   = errors.New("scan page size exceeds the store row cap")
	ErrInvalidWorkers     = errors.New("scan workers must not be negative")
	ErrInvalidLimit       = errors.New("invalid api limit")
	ErrLimitAboveCap      = errors.New("api max limit exceeds the store row cap")
	ErrInvalidCacheTTL    = errors.New("stats cache ttl must not be negative")
	ErrInvalidLogFormat   = errors.New("log format must be json or text")
	ErrInvalidSampleRatio = errors.New("trace sample ratio must be within [0, 1]")
	ErrMissingCollection  = errors.New("collection names must be set and distinct")
	ErrInvalidRetries     = errors.New("rest retries must not be negative")
)

// Store backends.
const (
	BackendSQLite = "sqlite"
	BackendREST   = "rest"
)

// Log formats.
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

// Config holds all carbonstats configuration.
type Config struct {
	Store       StoreConfig       `mapstructure:"store"`
	Collections CollectionsConfig `mapstructure:"collections"`
	Scan        ScanConfig        `mapstructure:"scan"`
	Geo         GeoConfig         `mapstructure:"geo"`
	Server      ServerConfig      `mapstructure:"server"`
	Stats       StatsConfig       `mapstructure:"stats"`
	API         APIConfig         `mapstructure:"api"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
}

// StoreConfig selects and configures the backing data store.
type StoreConfig struct {
	Backend string       `mapstructure:"backend"`
	SQLite  SQLiteConfig `mapstructure:"sqlite"`
	REST    RESTConfig   `mapstructure:"rest"`
}

// SQLiteConfig configures the embedded SQLite store.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`

	// MaxRows caps every response the way hosted PostgREST deployments do.
	// Zero disables the cap.
	MaxRows int `mapstructure:"max_rows"`
}

// RESTConfig configures a PostgREST-compatible HTTP store.
type RESTConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Schema  string        `mapstructure:"schema"`
	Timeout time.Duration `mapstructure:"timeout"`

	// Retries is how many times a throttled or 5xx read is retried.
	Retries       int           `mapstructure:"retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`

	// Order maps a collection to the column its pages are ordered by.
	Order map[string]string `mapstructure:"order"`
}

// CollectionsConfig names the two source collections.
type CollectionsConfig struct {
	Projects string `mapstructure:"projects"`
	Credits  string `mapstructure:"credits"`
}

// ScanConfig tunes exhaustive reads.
type ScanConfig struct {
	PageSize int `mapstructure:"page_size"`
	Workers  int `mapstructure:"workers"`
}

// GeoConfig points at an optional continent table that extends the default.
type GeoConfig struct {
	Table string `mapstructure:"table"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StatsConfig controls reuse of computed statistics.
type StatsConfig struct {
	// CacheTTL is how long a result may be served again. Zero always recomputes.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// APIConfig bounds project listing pages.
type APIConfig struct {
	DefaultLimit int `mapstructure:"default_limit"`
	MaxLimit     int `mapstructure:"max_limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	Environment  string  `mapstructure:"environment"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// Validate checks the configuration for values no component can run with.
func (c *Config) Validate() error {
	err := c.Store.validate()
	if err != nil {
		return err
	}

	if c.Collections.Projects == "" || c.Collections.Credits == "" || c.Collections.Projects == c.Collections.Credits {
		return fmt.Errorf("%w: projects=%q credits=%q", ErrMissingCollection, c.Collections.Projects, c.Collections.Credits)
	}

	if c.Scan.PageSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, c.Scan.PageSize)
	}

	if c.Store.Backend == BackendSQLite && c.Store.SQLite.MaxRows > 0 && c.Scan.PageSize > c.Store.SQLite.MaxRows {
		return fmt.Errorf("%w: %d > %d", ErrPageSizeAboveCap, c.Scan.PageSize, c.Store.SQLite.MaxRows)
	}

	if c.Scan.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Scan.Workers)
	}

	if c.Server.Port <= 0 || c.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}

	if c.Stats.CacheTTL < 0 {
		return fmt.Errorf("%w: %s", ErrInvalidCacheTTL, c.Stats.CacheTTL)
	}

	if c.API.DefaultLimit <= 0 || c.API.MaxLimit < c.API.DefaultLimit {
		return fmt.Errorf("%w: default %d, max %d", ErrInvalidLimit, c.API.DefaultLimit, c.API.MaxLimit)
	}

	if c.Store.Backend == BackendSQLite && c.Store.SQLite.MaxRows > 0 && c.API.MaxLimit > c.Store.SQLite.MaxRows {
		return fmt.Errorf("%w: %d > %d", ErrLimitAboveCap, c.API.MaxLimit, c.Store.SQLite.MaxRows)
	}

	if c.Logging.Format != LogFormatJSON && c.Logging.Format != LogFormatText {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidSampleRatio, c.Telemetry.SampleRatio)
	}

	return nil
}

func (s StoreConfig) validate() error {
	switch s.Backend {
	case BackendSQLite:
		if s.SQLite.Path == "" {
			return fmt.Errorf("%w: store.sqlite.path is empty", store.ErrNotConfigured)
		}
	case BackendREST:
		if s.REST.URL == "" || s.REST.APIKey == "" {
			return fmt.Errorf("%w: store.rest.url and store.rest.api_key are required", store.ErrNotConfigured)
		}

		if s.REST.Retries < 0 || s.REST.RetryInterval < 0 {
			return fmt.Errorf("%w: retries=%d interval=%s", ErrInvalidRetries, s.REST.Retries, s.REST.RetryInterval)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidBackend, s.Backend)
	}

	return nil
}
