// Package hook provides an extensible hook system for Till.
// Hooks can observe sale, catalog, and invoice lifecycle events to extend
// functionality without touching the engine.
package hook

import (
	"context"

	"github.com/xraph/till/billing"
	"github.com/xraph/till/product"
)

// Hook is the base interface that all hooks must implement.
type Hook interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts. The engine is passed as any to
// keep this package free of a dependency on the root package.
type OnInit interface {
	Hook
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine is shutting down.
type OnShutdown interface {
	Hook
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Sale lifecycle hooks
// ──────────────────────────────────────────────────

// OnSaleCompleted is called after a sale commits. For sandboxed sales the
// record was never durable; Sandboxed distinguishes the two.
type OnSaleCompleted interface {
	Hook
	OnSaleCompleted(ctx context.Context, rec *billing.Record, sandboxed bool) error
}

// OnSaleFailed is called when a sale aborts for any reason.
type OnSaleFailed interface {
	Hook
	OnSaleFailed(ctx context.Context, req *billing.SaleRequest, reason error) error
}

// OnStockLow is called when a committed sale leaves a product at or below
// the engine's low-stock threshold.
type OnStockLow interface {
	Hook
	OnStockLow(ctx context.Context, p *product.Product) error
}

// ──────────────────────────────────────────────────
// Catalog lifecycle hooks
// ──────────────────────────────────────────────────

// OnProductCreated is called when a product is added to the catalog.
type OnProductCreated interface {
	Hook
	OnProductCreated(ctx context.Context, p *product.Product) error
}

// OnProductUpdated is called when a product is patched.
type OnProductUpdated interface {
	Hook
	OnProductUpdated(ctx context.Context, old, updated *product.Product) error
}

// OnProductDeleted is called when a product is removed from the catalog.
type OnProductDeleted interface {
	Hook
	OnProductDeleted(ctx context.Context, productID int64) error
}

// ──────────────────────────────────────────────────
// Invoice hooks
// ──────────────────────────────────────────────────

// OnInvoiceRendered is called after an invoice renders successfully.
type OnInvoiceRendered interface {
	Hook
	OnInvoiceRendered(ctx context.Context, ref int64, filename string, size int) error
}
