// Package observability provides a metrics extension for Till that records
// lifecycle event counts via a MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/till/billing"
	"github.com/xraph/till/hook"
	"github.com/xraph/till/product"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ hook.Hook              = (*MetricsExtension)(nil)
	_ hook.OnInit            = (*MetricsExtension)(nil)
	_ hook.OnSaleCompleted   = (*MetricsExtension)(nil)
	_ hook.OnSaleFailed      = (*MetricsExtension)(nil)
	_ hook.OnStockLow        = (*MetricsExtension)(nil)
	_ hook.OnProductCreated  = (*MetricsExtension)(nil)
	_ hook.OnProductUpdated  = (*MetricsExtension)(nil)
	_ hook.OnProductDeleted  = (*MetricsExtension)(nil)
	_ hook.OnInvoiceRendered = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Till hook to automatically track sale and catalog metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Sale metrics
	SalesCompleted Counter
	SalesSandboxed Counter
	SalesFailed    Counter
	SaleLines      Histogram
	SaleTotal      Histogram

	// Stock metrics
	StockLowEvents Counter

	// Catalog metrics
	ProductsCreated Counter
	ProductsUpdated Counter
	ProductsDeleted Counter

	// Invoice metrics
	InvoicesRendered Counter
	InvoiceSize      Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Sale metrics
		SalesCompleted: factory.Counter("till.sales.completed"),
		SalesSandboxed: factory.Counter("till.sales.sandboxed"),
		SalesFailed:    factory.Counter("till.sales.failed"),
		SaleLines:      factory.Histogram("till.sales.lines"),
		SaleTotal:      factory.Histogram("till.sales.total_amount"),

		// Stock metrics
		StockLowEvents: factory.Counter("till.stock.low"),

		// Catalog metrics
		ProductsCreated: factory.Counter("till.products.created"),
		ProductsUpdated: factory.Counter("till.products.updated"),
		ProductsDeleted: factory.Counter("till.products.deleted"),

		// Invoice metrics
		InvoicesRendered: factory.Counter("till.invoices.rendered"),
		InvoiceSize:      factory.Histogram("till.invoices.size_bytes"),
	}
}

// Name implements hook.Hook.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements hook.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Sale lifecycle hooks
// ──────────────────────────────────────────────────

// OnSaleCompleted implements hook.OnSaleCompleted.
func (m *MetricsExtension) OnSaleCompleted(_ context.Context, rec *billing.Record, sandboxed bool) error {
	if sandboxed {
		m.SalesSandboxed.Inc()
	} else {
		m.SalesCompleted.Inc()
	}
	m.SaleLines.Observe(float64(len(rec.Items)))
	m.SaleTotal.Observe(float64(rec.Total.Amount))
	return nil
}

// OnSaleFailed implements hook.OnSaleFailed.
func (m *MetricsExtension) OnSaleFailed(_ context.Context, _ *billing.SaleRequest, _ error) error {
	m.SalesFailed.Inc()
	return nil
}

// OnStockLow implements hook.OnStockLow.
func (m *MetricsExtension) OnStockLow(_ context.Context, _ *product.Product) error {
	m.StockLowEvents.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Catalog lifecycle hooks
// ──────────────────────────────────────────────────

// OnProductCreated implements hook.OnProductCreated.
func (m *MetricsExtension) OnProductCreated(_ context.Context, _ *product.Product) error {
	m.ProductsCreated.Inc()
	return nil
}

// OnProductUpdated implements hook.OnProductUpdated.
func (m *MetricsExtension) OnProductUpdated(_ context.Context, _, _ *product.Product) error {
	m.ProductsUpdated.Inc()
	return nil
}

// OnProductDeleted implements hook.OnProductDeleted.
func (m *MetricsExtension) OnProductDeleted(_ context.Context, _ int64) error {
	m.ProductsDeleted.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Invoice hooks
// ──────────────────────────────────────────────────

// OnInvoiceRendered implements hook.OnInvoiceRendered.
func (m *MetricsExtension) OnInvoiceRendered(_ context.Context, _ int64, _ string, size int) error {
	m.InvoicesRendered.Inc()
	m.InvoiceSize.Observe(float64(size))
	return nil
}
