package hook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/xraph/till/billing"
	"github.com/xraph/till/product"
)

// Registry manages registered hooks and dispatches events to them.
// Interfaces are cached at registration, so emission never type-switches.
type Registry struct {
	mu     sync.RWMutex
	hooks  []Hook
	logger *slog.Logger

	// Type-cached hook lists for efficient dispatch
	onInit            []OnInit
	onShutdown        []OnShutdown
	onSaleCompleted   []OnSaleCompleted
	onSaleFailed      []OnSaleFailed
	onStockLow        []OnStockLow
	onProductCreated  []OnProductCreated
	onProductUpdated  []OnProductUpdated
	onProductDeleted  []OnProductDeleted
	onInvoiceRendered []OnInvoiceRendered
}

// NewRegistry creates an empty hook registry.
func NewRegistry() *Registry {
	return &Registry{logger: slog.Default()}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a hook and caches the event interfaces it implements.
func (r *Registry) Register(h Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.hooks {
		if existing.Name() == h.Name() {
			return fmt.Errorf("hook: duplicate registration: %s", h.Name())
		}
	}

	r.hooks = append(r.hooks, h)

	var interfaces []string
	if v, ok := h.(OnInit); ok {
		r.onInit = append(r.onInit, v)
		interfaces = append(interfaces, "OnInit")
	}
	if v, ok := h.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
		interfaces = append(interfaces, "OnShutdown")
	}
	if v, ok := h.(OnSaleCompleted); ok {
		r.onSaleCompleted = append(r.onSaleCompleted, v)
		interfaces = append(interfaces, "OnSaleCompleted")
	}
	if v, ok := h.(OnSaleFailed); ok {
		r.onSaleFailed = append(r.onSaleFailed, v)
		interfaces = append(interfaces, "OnSaleFailed")
	}
	if v, ok := h.(OnStockLow); ok {
		r.onStockLow = append(r.onStockLow, v)
		interfaces = append(interfaces, "OnStockLow")
	}
	if v, ok := h.(OnProductCreated); ok {
		r.onProductCreated = append(r.onProductCreated, v)
		interfaces = append(interfaces, "OnProductCreated")
	}
	if v, ok := h.(OnProductUpdated); ok {
		r.onProductUpdated = append(r.onProductUpdated, v)
		interfaces = append(interfaces, "OnProductUpdated")
	}
	if v, ok := h.(OnProductDeleted); ok {
		r.onProductDeleted = append(r.onProductDeleted, v)
		interfaces = append(interfaces, "OnProductDeleted")
	}
	if v, ok := h.(OnInvoiceRendered); ok {
		r.onInvoiceRendered = append(r.onInvoiceRendered, v)
		interfaces = append(interfaces, "OnInvoiceRendered")
	}

	r.logger.Info("hook registered",
		"name", h.Name(),
		"interfaces", interfaces,
	)
	return nil
}

// Get returns a hook by name.
func (r *Registry) Get(name string) Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.hooks {
		if h.Name() == name {
			return h
		}
	}
	return nil
}

// List returns all registered hooks.
func (r *Registry) List() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Hook, len(r.hooks))
	copy(result, r.hooks)
	return result
}

// Count returns the number of registered hooks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all hooks that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	r.mu.RLock()
	hooks := r.onInit
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("hook OnInit failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitShutdown calls OnShutdown for all hooks that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	hooks := r.onShutdown
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("hook OnShutdown failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitSaleCompleted emits a sale completed event.
func (r *Registry) EmitSaleCompleted(ctx context.Context, rec *billing.Record, sandboxed bool) {
	r.mu.RLock()
	hooks := r.onSaleCompleted
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnSaleCompleted(ctx, rec, sandboxed)
		}); err != nil {
			r.logger.Warn("hook OnSaleCompleted failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitSaleFailed emits a sale failed event.
func (r *Registry) EmitSaleFailed(ctx context.Context, req *billing.SaleRequest, reason error) {
	r.mu.RLock()
	hooks := r.onSaleFailed
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnSaleFailed(ctx, req, reason)
		}); err != nil {
			r.logger.Warn("hook OnSaleFailed failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitStockLow emits a stock low event.
func (r *Registry) EmitStockLow(ctx context.Context, p *product.Product) {
	r.mu.RLock()
	hooks := r.onStockLow
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnStockLow(ctx, p)
		}); err != nil {
			r.logger.Warn("hook OnStockLow failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitProductCreated emits a product created event.
func (r *Registry) EmitProductCreated(ctx context.Context, p *product.Product) {
	r.mu.RLock()
	hooks := r.onProductCreated
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnProductCreated(ctx, p)
		}); err != nil {
			r.logger.Warn("hook OnProductCreated failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitProductUpdated emits a product updated event.
func (r *Registry) EmitProductUpdated(ctx context.Context, old, updated *product.Product) {
	r.mu.RLock()
	hooks := r.onProductUpdated
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnProductUpdated(ctx, old, updated)
		}); err != nil {
			r.logger.Warn("hook OnProductUpdated failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitProductDeleted emits a product deleted event.
func (r *Registry) EmitProductDeleted(ctx context.Context, productID int64) {
	r.mu.RLock()
	hooks := r.onProductDeleted
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnProductDeleted(ctx, productID)
		}); err != nil {
			r.logger.Warn("hook OnProductDeleted failed", "hook", h.Name(), "error", err)
		}
	}
}

// EmitInvoiceRendered emits an invoice rendered event.
func (r *Registry) EmitInvoiceRendered(ctx context.Context, ref int64, filename string, size int) {
	r.mu.RLock()
	hooks := r.onInvoiceRendered
	r.mu.RUnlock()

	for _, h := range hooks {
		if err := r.callWithTimeout(ctx, h.Name(), func() error {
			return h.OnInvoiceRendered(ctx, ref, filename, size)
		}); err != nil {
			r.logger.Warn("hook OnInvoiceRendered failed", "hook", h.Name(), "error", err)
		}
	}
}

// callWithTimeout calls a hook function with a timeout.
// Hooks must never block the sale pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, hookName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("hook timeout: %s", hookName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
