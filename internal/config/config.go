// Package config provides centralized configuration management for the
// catalog synchronization service. Settings come from environment variables
// with sensible defaults; domain rules (partition categories, dimension
// requirements, extra header synonyms) come from an optional YAML file.
// Everything is validated on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Source   SourceConfig
	Sync     SyncConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout covers a whole synchronization run, so it is generous (default: 5m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds catalog store settings.
type DatabaseConfig struct {
	// Driver selects the store implementation: postgres or sqlite (default: postgres)
	Driver string `env:"STORE_DRIVER" default:"postgres"`

	// URL is the PostgreSQL connection string (required for the postgres driver)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// SQLitePath is the database file for the sqlite driver (default: catalog.db)
	SQLitePath string `env:"SQLITE_PATH" default:"catalog.db"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// AutoMigrate creates the products table on startup when missing (default: true)
	AutoMigrate bool `env:"DB_AUTO_MIGRATE" default:"true"`
}

// SourceConfig holds spreadsheet export settings.
type SourceConfig struct {
	// SheetID identifies the exported spreadsheet
	SheetID string `env:"SOURCE_SHEET_ID" envAlt:"GOOGLE_SHEET_ID"`

	// URLTemplate is formatted with the sheet ID and the escaped tab name
	URLTemplate string `env:"SOURCE_URL_TEMPLATE" default:"https://docs.google.com/spreadsheets/d/%s/gviz/tq?tqx=out:csv&sheet=%s"`

	// Partitions is the default comma-separated list of tabs to synchronize
	Partitions []string `env:"SOURCE_PARTITIONS"`

	// Concurrency bounds parallel tab fetches (default: 4)
	Concurrency int `env:"SOURCE_CONCURRENCY" default:"4"`

	// Timeout is the per-tab fetch deadline (default: 8s)
	Timeout time.Duration `env:"SOURCE_TIMEOUT" default:"8s"`

	// MaxBytes caps a single tab body (default: 10MB)
	MaxBytes int64 `env:"SOURCE_MAX_BYTES" default:"10485760"`
}

// SyncConfig holds catalog processing settings.
type SyncConfig struct {
	// BatchSize is the number of products per upsert chunk (default: 20)
	BatchSize int `env:"SYNC_BATCH_SIZE" default:"20"`

	// ChunkTimeout bounds a single chunk write (default: 10s)
	ChunkTimeout time.Duration `env:"SYNC_CHUNK_TIMEOUT" default:"10s"`

	// ChunkDelay is the pause between chunk writes (default: 100ms)
	ChunkDelay time.Duration `env:"SYNC_CHUNK_DELAY" default:"100ms"`

	// TaxRate derives the tax-inclusive price when the sheet leaves it empty (default: 0.19)
	TaxRate float64 `env:"SYNC_TAX_RATE" default:"0.19"`

	// MinStock is the web eligibility stock threshold (default: 10)
	MinStock int `env:"SYNC_MIN_STOCK" default:"10"`

	// IdentifierMinDigits is the minimum length of a numeric product identifier (default: 4)
	IdentifierMinDigits int `env:"SYNC_IDENTIFIER_MIN_DIGITS" default:"4"`

	// ErrorSampleSize caps row errors kept per tab (default: 10)
	ErrorSampleSize int `env:"SYNC_ERROR_SAMPLE_SIZE" default:"10"`

	// SupplierFallback is used when a row names no supplier
	SupplierFallback string `env:"SYNC_SUPPLIER_FALLBACK" default:"Sin proveedor"`

	// OptionalColumns are checked before writing and dropped when absent (default: supplier)
	OptionalColumns []string `env:"SYNC_OPTIONAL_COLUMNS" default:"supplier"`

	// MaxHeaderSearchRows is how many leading rows may hold the header (default: 10)
	MaxHeaderSearchRows int `env:"SYNC_HEADER_SEARCH_ROWS" default:"10"`

	// Interval runs a full sync periodically when positive (default: 0, disabled)
	Interval time.Duration `env:"SYNC_INTERVAL" default:"0s"`

	// RulesFile is an optional YAML file with catalog rules
	RulesFile string `env:"SYNC_RULES_FILE"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// RequireAPIKey protects the sync trigger with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`

	// TriggerRatePerMinute caps sync triggers per client IP (default: 6, 0 disables)
	TriggerRatePerMinute int `env:"TRIGGER_RATE_PER_MINUTE" default:"6"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
