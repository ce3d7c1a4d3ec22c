// Package config loads configuration for the grain command.
//
// Configuration comes from a YAML file named by the --config flag or the
// GRAIN_CONFIG environment variable, then GRAIN_* environment variables
// override individual values. With neither a file nor overrides the
// command runs against an in-memory store.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/xraph/grain/internal/backend"
)

// Config is the grain command configuration.
type Config struct {
	// Store selects and connects the backend.
	Store StoreConfig `yaml:"store"`

	// Log configures the slog handler.
	Log LogConfig `yaml:"log"`

	// HookTimeout bounds each plugin hook call.
	// Default: 5s
	HookTimeout time.Duration `yaml:"hook_timeout"`
}

// StoreConfig configures the storage backend.
type StoreConfig struct {
	// Driver is one of memory, sqlite, postgres, mongo.
	// Default: memory
	Driver string `yaml:"driver"`

	// URL is the DSN or connection URI. ${VAR} references are expanded
	// from the environment so secrets stay out of the file.
	URL string `yaml:"url"`

	// MongoDatabase names the database for the mongo driver.
	// Default: grain
	MongoDatabase string `yaml:"mongo_database"`

	// MaxOpenConns caps the SQL connection pool.
	MaxOpenConns int `yaml:"max_open_conns"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	// Default: info
	Level string `yaml:"level"`

	// Format is text or json.
	// Default: text
	Format string `yaml:"format"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:        backend.Memory,
			MongoDatabase: "grain",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		HookTimeout: 5 * time.Second,
	}
}

// Load reads path, or GRAIN_CONFIG when path is empty, over the defaults
// and applies environment overrides. A missing path is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	path = firstNonEmpty(path, os.Getenv("GRAIN_CONFIG"))
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.Getenv)
	cfg.Store.URL = os.ExpandEnv(cfg.Store.URL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile merges a YAML file into c.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// applyEnv overrides file values with GRAIN_* variables.
func (c *Config) applyEnv(getenv func(string) string) {
	c.Store.Driver = firstNonEmpty(getenv("GRAIN_STORE_DRIVER"), c.Store.Driver)
	c.Store.URL = firstNonEmpty(getenv("GRAIN_DATABASE_URL"), c.Store.URL)
	c.Store.MongoDatabase = firstNonEmpty(getenv("GRAIN_MONGO_DATABASE"), c.Store.MongoDatabase)
	c.Log.Level = firstNonEmpty(getenv("GRAIN_LOG_LEVEL"), c.Log.Level)
	c.Log.Format = firstNonEmpty(getenv("GRAIN_LOG_FORMAT"), c.Log.Format)
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	driver := strings.ToLower(c.Store.Driver)
	if !slices.Contains(backend.Drivers, driver) {
		errs = append(errs, fmt.Errorf("invalid store.driver %q (want one of %s)", c.Store.Driver, strings.Join(backend.Drivers, ", ")))
	}
	if driver != backend.Memory && c.Store.URL == "" {
		errs = append(errs, fmt.Errorf("store.url is required for the %s driver", driver))
	}
	if _, err := c.Log.level(); err != nil {
		errs = append(errs, err)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		errs = append(errs, fmt.Errorf("invalid log.format %q (want text or json)", c.Log.Format))
	}
	if c.HookTimeout < 0 {
		errs = append(errs, errors.New("hook_timeout must not be negative"))
	}

	return errors.Join(errs...)
}

// Backend returns the options for opening the configured store.
func (c *Config) Backend() backend.Options {
	return backend.Options{
		Driver:        c.Store.Driver,
		DSN:           c.Store.URL,
		MongoDatabase: c.Store.MongoDatabase,
		MaxOpenConns:  c.Store.MaxOpenConns,
	}
}

// Logger builds the configured slog logger writing to w.
func (c *Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Log.level()
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func (l LogConfig) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("invalid log.level %q", l.Level)
	}
	return level, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
