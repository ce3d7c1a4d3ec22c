// Package extension provides the Forge extension adapter for Grain.
//
// It implements the forge.Extension interface to integrate the Grain
// engine into a Forge application with DI registration and lifecycle
// management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.grain" or "grain" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/grain"
	"github.com/xraph/grain/internal/backend"
	"github.com/xraph/grain/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "grain"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Ingredient cost ledger for meals and dishes"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Grain as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *grain.Engine
	store      store.Store
	engineOpts []grain.Option
}

// New creates a new Grain Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine.
// This is nil until Register is called.
func (e *Extension) Engine() *grain.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// opens the store, builds the engine and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if err := e.build(); err != nil {
		return err
	}

	return vessel.Provide(fapp.Container(), func() (*grain.Engine, error) {
		return e.engine, nil
	})
}

// build opens the configured store when none was given and constructs
// the engine.
func (e *Extension) build() error {
	if e.store == nil {
		s, err := backend.Open(backend.Options{
			Driver:        e.config.Driver,
			DSN:           e.config.DSN,
			MongoDatabase: e.config.MongoDatabase,
			MaxOpenConns:  e.config.MaxOpenConns,
		})
		if err != nil {
			return fmt.Errorf("grain: open %s store: %w", e.config.Driver, err)
		}
		e.store = s
	}

	e.engine = grain.New(e.store, e.buildEngineOpts()...)
	return nil
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("grain: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("grain: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs grain.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []grain.Option {
	opts := make([]grain.Option, 0, len(e.engineOpts)+1)
	if e.config.HookTimeout > 0 {
		opts = append(opts, grain.WithHookTimeout(e.config.HookTimeout))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("grain: configuration is required but not found in config files; " +
				"ensure 'extensions.grain' or 'grain' key exists in your config")
		}

		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("grain: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("driver", e.config.Driver),
		forge.F("mongo_database", e.config.MongoDatabase),
		forge.F("hook_timeout", e.config.HookTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.grain" first (namespaced pattern).
	if cm.IsSet("extensions.grain") {
		if err := cm.Bind("extensions.grain", &cfg); err == nil {
			e.Logger().Debug("grain: loaded config from file",
				forge.F("key", "extensions.grain"),
			)
			return cfg, true
		}
		e.Logger().Warn("grain: failed to bind extensions.grain config",
			forge.F("error", "bind failed"),
		)
	}

	if cm.IsSet("grain") {
		if err := cm.Bind("grain", &cfg); err == nil {
			e.Logger().Debug("grain: loaded config from file",
				forge.F("key", "grain"),
			)
			return cfg, true
		}
		e.Logger().Warn("grain: failed to bind grain config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Driver == "" {
		cfg.Driver = defaults.Driver
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = defaults.MongoDatabase
	}
	if cfg.HookTimeout == 0 {
		cfg.HookTimeout = defaults.HookTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	if yamlConfig.Driver == "" {
		yamlConfig.Driver = programmaticConfig.Driver
	}
	if yamlConfig.DSN == "" {
		yamlConfig.DSN = programmaticConfig.DSN
	}
	if yamlConfig.MongoDatabase == "" {
		yamlConfig.MongoDatabase = programmaticConfig.MongoDatabase
	}
	if yamlConfig.MaxOpenConns == 0 {
		yamlConfig.MaxOpenConns = programmaticConfig.MaxOpenConns
	}
	if yamlConfig.HookTimeout == 0 {
		yamlConfig.HookTimeout = programmaticConfig.HookTimeout
	}

	return mergeWithDefaults(yamlConfig)
}
