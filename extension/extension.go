// Package extension provides the Forge extension adapter for Till.
//
// It implements the forge.Extension interface to integrate Till
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.till" or "till" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	till "github.com/xraph/till"
	"github.com/xraph/till/sandbox"
	"github.com/xraph/till/session"
	sessionmemory "github.com/xraph/till/session/memory"
	sessionredis "github.com/xraph/till/session/redis"
	"github.com/xraph/till/store"
	"github.com/xraph/till/store/memory"
	"github.com/xraph/till/store/mongo"
	"github.com/xraph/till/store/postgres"
	"github.com/xraph/till/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "till"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Point-of-sale billing and inventory engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Till as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config   Config
	engine   *till.Till
	store    store.Store
	sessions session.Store
	tillOpts []till.Option
}

// New creates a new Till Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Till instance.
// This is nil until Register is called.
func (e *Extension) Engine() *till.Till { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the billing engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Build the store from config unless one was provided programmatically.
	if e.store == nil {
		s, err := e.buildStore()
		if err != nil {
			return err
		}
		e.store = s
	}

	// Wrap in the sandbox policy only when sandbox identities are configured.
	if len(e.config.SandboxActors) > 0 || len(e.config.SandboxRoles) > 0 {
		var sbOpts []sandbox.Option
		if len(e.config.SandboxActors) > 0 {
			sbOpts = append(sbOpts, sandbox.WithActors(e.config.SandboxActors...))
		}
		if len(e.config.SandboxRoles) > 0 {
			sbOpts = append(sbOpts, sandbox.WithRoles(e.config.SandboxRoles...))
		}
		e.store = sandbox.Wrap(e.store, sbOpts...)
	}

	if e.sessions == nil {
		s, err := e.buildSessions()
		if err != nil {
			return err
		}
		e.sessions = s
	}

	opts := e.buildTillOpts()

	eng := till.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*till.Till, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("till: extension not initialized")
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
		return errors.New("till: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildStore constructs the configured storage backend.
func (e *Extension) buildStore() (store.Store, error) {
	switch e.config.Store {
	case "", "memory":
		return memory.New(), nil
	case "sqlite":
		if e.config.DSN == "" {
			return nil, errors.New("till: sqlite store requires a dsn")
		}
		return sqlite.Open(e.config.DSN)
	case "postgres":
		if e.config.DSN == "" {
			return nil, errors.New("till: postgres store requires a dsn")
		}
		return postgres.Open(e.config.DSN)
	case "mongo":
		if e.config.DSN == "" {
			return nil, errors.New("till: mongo store requires a dsn")
		}
		return mongo.Open(context.Background(), e.config.DSN, e.config.MongoDatabase)
	default:
		return nil, fmt.Errorf("till: unknown store backend %q", e.config.Store)
	}
}

// buildSessions constructs the configured session backend, if any.
func (e *Extension) buildSessions() (session.Store, error) {
	switch e.config.Sessions {
	case "":
		return nil, nil //nolint:nilnil // sessions are optional
	case "memory":
		return sessionmemory.New(), nil
	case "redis":
		return sessionredis.Open(context.Background(), e.config.RedisAddr)
	default:
		return nil, fmt.Errorf("till: unknown session backend %q", e.config.Sessions)
	}
}

// buildTillOpts constructs till.Option values from the resolved config.
func (e *Extension) buildTillOpts() []till.Option {
	opts := make([]till.Option, 0, len(e.tillOpts)+4)

	if e.config.Currency != "" {
		opts = append(opts, till.WithCurrency(e.config.Currency))
	}
	if e.config.LowStockThreshold > 0 {
		opts = append(opts, till.WithLowStockThreshold(e.config.LowStockThreshold))
	}
	if e.sessions != nil {
		opts = append(opts, till.WithSessions(e.sessions))
	}
	if e.config.SessionTTL > 0 {
		opts = append(opts, till.WithSessionTTL(e.config.SessionTTL))
	}

	// Append any pass-through till options.
	opts = append(opts, e.tillOpts...)

	return opts
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("till: configuration is required but not found in config files; " +
				"ensure 'extensions.till' or 'till' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("till: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("store", e.config.Store),
		forge.F("currency", e.config.Currency),
		forge.F("low_stock_threshold", e.config.LowStockThreshold),
		forge.F("sessions", e.config.Sessions),
		forge.F("session_ttl", e.config.SessionTTL),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.till" first (namespaced pattern).
	if cm.IsSet("extensions.till") {
		if err := cm.Bind("extensions.till", &cfg); err == nil {
			e.Logger().Debug("till: loaded config from file",
				forge.F("key", "extensions.till"),
			)
			return cfg, true
		}
		e.Logger().Warn("till: failed to bind extensions.till config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "till" key.
	if cm.IsSet("till") {
		if err := cm.Bind("till", &cfg); err == nil {
			e.Logger().Debug("till: loaded config from file",
				forge.F("key", "till"),
			)
			return cfg, true
		}
		e.Logger().Warn("till: failed to bind till config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Store == "" {
		cfg.Store = defaults.Store
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = defaults.MongoDatabase
	}
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	if cfg.LowStockThreshold == 0 {
		cfg.LowStockThreshold = defaults.LowStockThreshold
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = defaults.RedisAddr
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = defaults.SessionTTL
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Store == "" && programmaticConfig.Store != "" {
		yamlConfig.Store = programmaticConfig.Store
	}
	if yamlConfig.DSN == "" && programmaticConfig.DSN != "" {
		yamlConfig.DSN = programmaticConfig.DSN
	}
	if yamlConfig.MongoDatabase == "" && programmaticConfig.MongoDatabase != "" {
		yamlConfig.MongoDatabase = programmaticConfig.MongoDatabase
	}
	if yamlConfig.Currency == "" && programmaticConfig.Currency != "" {
		yamlConfig.Currency = programmaticConfig.Currency
	}
	if yamlConfig.Sessions == "" && programmaticConfig.Sessions != "" {
		yamlConfig.Sessions = programmaticConfig.Sessions
	}
	if yamlConfig.RedisAddr == "" && programmaticConfig.RedisAddr != "" {
		yamlConfig.RedisAddr = programmaticConfig.RedisAddr
	}

	// Slice fields: YAML takes precedence, programmatic fills gaps.
	if len(yamlConfig.SandboxActors) == 0 {
		yamlConfig.SandboxActors = programmaticConfig.SandboxActors
	}
	if len(yamlConfig.SandboxRoles) == 0 {
		yamlConfig.SandboxRoles = programmaticConfig.SandboxRoles
	}

	// Numeric fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.LowStockThreshold == 0 && programmaticConfig.LowStockThreshold != 0 {
		yamlConfig.LowStockThreshold = programmaticConfig.LowStockThreshold
	}
	if yamlConfig.SessionTTL == 0 && programmaticConfig.SessionTTL != 0 {
		yamlConfig.SessionTTL = programmaticConfig.SessionTTL
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
