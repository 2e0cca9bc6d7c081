package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/carbonstats/pkg/store"
)

// Default configuration values.
const (
	DefaultBackend      = BackendSQLite
	DefaultSQLitePath   = "carbonstats.db"
	DefaultRESTSchema   = "public"
	DefaultRESTTimeout  = 30 * time.Second
	DefaultRetryWait    = 500 * time.Millisecond
	DefaultPageSize     = store.DefaultRowCap
	DefaultWorkers      = 1
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 8080
	DefaultLimit        = 50
	DefaultMaxLimit     = 500
	DefaultLogLevel     = "info"
	DefaultLogFormat    = LogFormatText
	DefaultCacheTTL     = time.Duration(0)
	defaultReadTimeout  = 30 * time.Second
	defaultWriteTimeout = 2 * time.Minute
	defaultIdleTimeout  = 60 * time.Second
	defaultShutdown     = 10 * time.Second
	maxPort             = 65535
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.backend", DefaultBackend)
	v.SetDefault("store.sqlite.path", DefaultSQLitePath)
	v.SetDefault("store.sqlite.max_rows", store.DefaultRowCap)
	v.SetDefault("store.rest.url", "")
	v.SetDefault("store.rest.api_key", "")
	v.SetDefault("store.rest.schema", DefaultRESTSchema)
	v.SetDefault("store.rest.timeout", DefaultRESTTimeout)
	v.SetDefault("store.rest.retries", 0)
	v.SetDefault("store.rest.retry_interval", DefaultRetryWait)

	v.SetDefault("collections.projects", store.DefaultProjectsCollection)
	v.SetDefault("collections.credits", store.DefaultCreditsCollection)

	v.SetDefault("scan.page_size", DefaultPageSize)
	v.SetDefault("scan.workers", DefaultWorkers)

	v.SetDefault("geo.table", "")

	v.SetDefault("server.host", DefaultHost)
	v.SetDefault("server.port", DefaultPort)
	v.SetDefault("server.read_timeout", defaultReadTimeout)
	v.SetDefault("server.write_timeout", defaultWriteTimeout)
	v.SetDefault("server.idle_timeout", defaultIdleTimeout)
	v.SetDefault("server.shutdown_timeout", defaultShutdown)

	v.SetDefault("stats.cache_ttl", DefaultCacheTTL)

	v.SetDefault("api.default_limit", DefaultLimit)
	v.SetDefault("api.max_limit", DefaultMaxLimit)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_headers", "")
	v.SetDefault("telemetry.otlp_insecure", false)
	v.SetDefault("telemetry.environment", "")
	v.SetDefault("telemetry.sample_ratio", 0.0)
}
