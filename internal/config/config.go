// Package config defines the configuration for the Clearwater service.
// Configuration is loaded once at process initialization and is immutable
// thereafter. It follows 12-Factor principles by strictly separating code
// from configuration.
//
// Values come from the OS environment, with a local .env file as a
// development convenience. Any missing required value or invalid format
// fails startup immediately.
package config

import (
	"time"
)

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific config subsets they require.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server   ServerConfig
	Database DatabaseConfig
	Portal   PortalConfig
	Poller   PollerConfig
	Engine   EngineConfig

	// Rules holds the water-body threshold rules and status catalog.
	// Populated by LoadConfig from RulesJSON or the built-in defaults;
	// not an envconfig field itself.
	Rules *Rules `ignored:"true"`

	// RulesJSON optionally overrides the built-in rule sets and status
	// catalog. See rules.go for the document shape.
	RulesJSON string `envconfig:"CLEARWATER_RULES_JSON"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s"`
	// CORS origins allowed to query the public API. The dashboard is a
	// static site served from a different origin, so this defaults open.
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL string `envconfig:"DATABASE_URL" validate:"required,url"`

	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// PortalConfig holds the open-data portal endpoint and fetch tuning.
type PortalConfig struct {
	// BaseURL is the CKAN API root, e.g. https://data.ca.gov/api/3/action.
	BaseURL    string `envconfig:"PORTAL_BASE_URL" validate:"required,url"`
	ResourceID string `envconfig:"PORTAL_RESOURCE_ID" validate:"required"`

	PageSize  int           `envconfig:"PORTAL_PAGE_SIZE" default:"5000"`
	Timeout   time.Duration `envconfig:"PORTAL_TIMEOUT" default:"30s"`
	UserAgent string        `envconfig:"PORTAL_USER_AGENT" default:"Clearwater-Poller/1.0"`
}

// PollerConfig holds sample-poller scheduling parameters.
type PollerConfig struct {
	Interval    time.Duration `envconfig:"POLL_INTERVAL" default:"6h"`
	Concurrency int           `envconfig:"POLL_CONCURRENCY" default:"8" validate:"min=1,max=64"`
}

// EngineConfig holds status-engine tuning parameters. The histogram settings
// trade percentile resolution for per-day cost; see the status package for
// the error bound discussion.
type EngineConfig struct {
	HistogramBins int  `envconfig:"ENGINE_HISTOGRAM_BINS" default:"96" validate:"min=8,max=4096"`
	LinearBins    bool `envconfig:"ENGINE_LINEAR_BINS" default:"false"`
}
