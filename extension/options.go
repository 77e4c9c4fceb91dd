package extension

import (
	"time"

	till "github.com/xraph/till"
	"github.com/xraph/till/hook"
	"github.com/xraph/till/session"
	"github.com/xraph/till/store"
)

// Option configures the Till Forge extension.
type Option func(*Extension)

// WithStore sets the store for the billing engine, bypassing config-driven
// store construction.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithSessionStore sets the session store, bypassing config-driven
// construction.
func WithSessionStore(s session.Store) Option {
	return func(e *Extension) {
		e.sessions = s
	}
}

// WithTillOption passes a till.Option through to the underlying engine.
func WithTillOption(opt till.Option) Option {
	return func(e *Extension) {
		e.tillOpts = append(e.tillOpts, opt)
	}
}

// WithHook registers a till hook.
func WithHook(h hook.Hook) Option {
	return func(e *Extension) {
		e.tillOpts = append(e.tillOpts, till.WithHook(h))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithSandboxActors lists actor IDs whose sales never become durable.
func WithSandboxActors(ids ...string) Option {
	return func(e *Extension) {
		e.config.SandboxActors = append(e.config.SandboxActors, ids...)
	}
}

// WithSandboxRoles lists roles whose sales never become durable.
func WithSandboxRoles(roles ...string) Option {
	return func(e *Extension) {
		e.config.SandboxRoles = append(e.config.SandboxRoles, roles...)
	}
}

// WithLowStockThreshold sets the stock-low event threshold.
func WithLowStockThreshold(n int64) Option {
	return func(e *Extension) { e.config.LowStockThreshold = n }
}

// WithSessionTTL sets how long sandboxed invoice snapshots stay retrievable.
func WithSessionTTL(d time.Duration) Option {
	return func(e *Extension) { e.config.SessionTTL = d }
}
