package extension

import (
	"time"

	"github.com/xraph/grain/internal/backend"
)

// Config holds the Grain extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.grain" or "grain" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// Driver selects the store backend when no store was passed with
	// WithStore: memory, sqlite, postgres or mongo (default: memory).
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// DSN is the connection string for the sqlite, postgres and mongo
	// drivers.
	DSN string `json:"dsn" mapstructure:"dsn" yaml:"dsn"`

	// MongoDatabase names the database used by the mongo driver
	// (default: "grain").
	MongoDatabase string `json:"mongo_database" mapstructure:"mongo_database" yaml:"mongo_database"`

	// MaxOpenConns caps the SQL connection pool. Zero keeps the driver
	// default.
	MaxOpenConns int `json:"max_open_conns" mapstructure:"max_open_conns" yaml:"max_open_conns"`

	// HookTimeout bounds each plugin hook call (default: 5s).
	HookTimeout time.Duration `json:"hook_timeout" mapstructure:"hook_timeout" yaml:"hook_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Driver:        backend.Memory,
		MongoDatabase: "grain",
		HookTimeout:   5 * time.Second,
	}
}
