// Package audithook bridges Till lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not depend on any
// concrete audit system. Callers inject a RecorderFunc adapter that bridges
// to their backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xraph/till/billing"
	"github.com/xraph/till/hook"
	"github.com/xraph/till/product"
)

// Compile-time interface checks.
var (
	_ hook.Hook              = (*Extension)(nil)
	_ hook.OnSaleCompleted   = (*Extension)(nil)
	_ hook.OnSaleFailed      = (*Extension)(nil)
	_ hook.OnStockLow        = (*Extension)(nil)
	_ hook.OnProductCreated  = (*Extension)(nil)
	_ hook.OnProductUpdated  = (*Extension)(nil)
	_ hook.OnProductDeleted  = (*Extension)(nil)
	_ hook.OnInvoiceRendered = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// Defined locally so this package does not import any audit module —
// callers inject the concrete backend at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Till lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements hook.Hook.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Sale lifecycle hooks
// ──────────────────────────────────────────────────

// OnSaleCompleted implements hook.OnSaleCompleted. Sandboxed sales get their
// own action so an auditor can tell demo traffic from the real ledger.
func (e *Extension) OnSaleCompleted(ctx context.Context, rec *billing.Record, sandboxed bool) error {
	action := ActionSaleCompleted
	if sandboxed {
		action = ActionSaleSandboxed
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceSale, rec.Ref.String(), CategoryBilling, nil,
		"ref", rec.Ref.String(),
		"lines", len(rec.Items),
		"total", rec.Total.FormatMajor(),
		"created_by", rec.CreatedBy,
	)
}

// OnSaleFailed implements hook.OnSaleFailed.
func (e *Extension) OnSaleFailed(ctx context.Context, req *billing.SaleRequest, reason error) error {
	lines := 0
	if req != nil {
		lines = len(req.Lines)
	}
	return e.record(ctx, ActionSaleFailed, SeverityWarning, OutcomeFailure,
		ResourceSale, "", CategoryBilling, reason,
		"lines", lines,
	)
}

// ──────────────────────────────────────────────────
// Stock hooks
// ──────────────────────────────────────────────────

// OnStockLow implements hook.OnStockLow.
func (e *Extension) OnStockLow(ctx context.Context, p *product.Product) error {
	return e.record(ctx, ActionStockLow, SeverityWarning, OutcomeSuccess,
		ResourceProduct, strconv.FormatInt(p.ID, 10), CategoryInventory, nil,
		"product_id", p.ID,
		"name", p.Name,
		"stock", p.Stock,
	)
}

// ──────────────────────────────────────────────────
// Catalog lifecycle hooks
// ──────────────────────────────────────────────────

// OnProductCreated implements hook.OnProductCreated.
func (e *Extension) OnProductCreated(ctx context.Context, p *product.Product) error {
	return e.record(ctx, ActionProductCreated, SeverityInfo, OutcomeSuccess,
		ResourceProduct, strconv.FormatInt(p.ID, 10), CategoryInventory, nil,
		"product_id", p.ID,
		"name", p.Name,
		"sku", p.SKU,
	)
}

// OnProductUpdated implements hook.OnProductUpdated.
func (e *Extension) OnProductUpdated(ctx context.Context, old, updated *product.Product) error {
	return e.record(ctx, ActionProductUpdated, SeverityInfo, OutcomeSuccess,
		ResourceProduct, strconv.FormatInt(updated.ID, 10), CategoryInventory, nil,
		"product_id", updated.ID,
		"name", updated.Name,
		"old_stock", old.Stock,
		"new_stock", updated.Stock,
	)
}

// OnProductDeleted implements hook.OnProductDeleted.
func (e *Extension) OnProductDeleted(ctx context.Context, productID int64) error {
	return e.record(ctx, ActionProductDeleted, SeverityInfo, OutcomeSuccess,
		ResourceProduct, strconv.FormatInt(productID, 10), CategoryInventory, nil,
		"product_id", productID,
	)
}

// ──────────────────────────────────────────────────
// Invoice hooks
// ──────────────────────────────────────────────────

// OnInvoiceRendered implements hook.OnInvoiceRendered.
func (e *Extension) OnInvoiceRendered(ctx context.Context, ref int64, filename string, size int) error {
	return e.record(ctx, ActionInvoiceRendered, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, strconv.FormatInt(ref, 10), CategoryDocument, nil,
		"ref", ref,
		"filename", filename,
		"size_bytes", size,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
