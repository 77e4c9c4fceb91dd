package extension

import "time"

// Config holds the Till extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.till" or "till" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Store selects the storage backend: "memory", "sqlite", "postgres"
	// or "mongo" (default: "memory").
	Store string `json:"store" mapstructure:"store" yaml:"store"`

	// DSN is the backend connection string: a file path for sqlite, a
	// connection URL for postgres and mongo. Unused by the memory backend.
	DSN string `json:"dsn" mapstructure:"dsn" yaml:"dsn"`

	// MongoDatabase is the database name for the mongo backend (default: "till").
	MongoDatabase string `json:"mongo_database" mapstructure:"mongo_database" yaml:"mongo_database"`

	// Currency is the catalog currency code (default: "inr").
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// LowStockThreshold is the stock level at or below which a committed
	// sale emits a stock-low event (default: 5).
	LowStockThreshold int64 `json:"low_stock_threshold" mapstructure:"low_stock_threshold" yaml:"low_stock_threshold"`

	// SandboxActors lists actor IDs whose sales never become durable.
	SandboxActors []string `json:"sandbox_actors" mapstructure:"sandbox_actors" yaml:"sandbox_actors"`

	// SandboxRoles lists roles whose sales never become durable. When both
	// this and SandboxActors are empty the store is not wrapped at all.
	SandboxRoles []string `json:"sandbox_roles" mapstructure:"sandbox_roles" yaml:"sandbox_roles"`

	// Sessions selects the session store backing sandboxed invoices:
	// "", "memory" or "redis". Empty disables session storage.
	Sessions string `json:"sessions" mapstructure:"sessions" yaml:"sessions"`

	// RedisAddr is the address of the redis server for the redis session
	// backend (default: "localhost:6379").
	RedisAddr string `json:"redis_addr" mapstructure:"redis_addr" yaml:"redis_addr"`

	// SessionTTL controls how long a sandboxed sale's invoice snapshot stays
	// retrievable within its session (default: 30m).
	SessionTTL time.Duration `json:"session_ttl" mapstructure:"session_ttl" yaml:"session_ttl"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Store:             "memory",
		MongoDatabase:     "till",
		Currency:          "inr",
		LowStockThreshold: 5,
		RedisAddr:         "localhost:6379",
		SessionTTL:        30 * time.Minute,
	}
}
