package till

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/till/billing"
	"github.com/xraph/till/hook"
	"github.com/xraph/till/id"
	"github.com/xraph/till/invoice"
	"github.com/xraph/till/product"
	"github.com/xraph/till/session"
	"github.com/xraph/till/store"
	"github.com/xraph/till/types"
)

// Sandbox reports whether a request context runs in sandbox mode. The engine
// only ever asks this one question; the policy itself lives in the sandbox
// package and does its work inside the store it wraps.
type Sandbox interface {
	Sandboxed(ctx context.Context) bool
}

// Till is the point-of-sale billing and inventory engine.
type Till struct {
	store    store.Store
	hooks    *hook.Registry
	logger   *slog.Logger
	sandbox  Sandbox
	sessions session.Store
	renderer invoice.Renderer

	// Configuration
	currency          string
	lowStockThreshold int64
	sessionTTL        time.Duration
}

// New creates a new Till instance.
func New(s store.Store, opts ...Option) *Till {
	t := &Till{
		store:             s,
		hooks:             hook.NewRegistry(),
		logger:            slog.Default(),
		currency:          types.INR(0).Currency,
		lowStockThreshold: 5,
		sessionTTL:        30 * time.Minute,
	}

	for _, opt := range opts {
		opt(t)
	}

	// A sandbox-aware store doubles as the sandbox predicate.
	if t.sandbox == nil {
		if sb, ok := s.(Sandbox); ok {
			t.sandbox = sb
		}
	}

	return t
}

// Option configures a Till instance.
type Option func(*Till)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Till) {
		t.logger = logger
		t.hooks.WithLogger(logger)
	}
}

// WithHook registers a hook.
func WithHook(h hook.Hook) Option {
	return func(t *Till) {
		_ = t.hooks.Register(h) //nolint:errcheck // best-effort hook registration during init
	}
}

// WithSandbox sets the sandbox predicate. Unnecessary when the store itself
// implements Sandbox (the usual case with sandbox.Wrap).
func WithSandbox(sb Sandbox) Option {
	return func(t *Till) {
		t.sandbox = sb
	}
}

// WithSessions sets the ephemeral session store used for sandboxed invoices.
func WithSessions(s session.Store) Option {
	return func(t *Till) {
		t.sessions = s
	}
}

// WithRenderer sets the invoice renderer.
func WithRenderer(r invoice.Renderer) Option {
	return func(t *Till) {
		t.renderer = r
	}
}

// WithCurrency sets the catalog currency for degraded line snapshots and
// imported products that carry none.
func WithCurrency(currency string) Option {
	return func(t *Till) {
		t.currency = currency
	}
}

// WithLowStockThreshold sets the stock level at or below which a committed
// sale emits an OnStockLow event.
func WithLowStockThreshold(n int64) Option {
	return func(t *Till) {
		t.lowStockThreshold = n
	}
}

// WithSessionTTL sets how long a sandboxed sale's invoice snapshot stays
// retrievable within its session.
func WithSessionTTL(ttl time.Duration) Option {
	return func(t *Till) {
		t.sessionTTL = ttl
	}
}

// Start migrates the store and initializes hooks.
func (t *Till) Start(ctx context.Context) error {
	if err := t.store.Migrate(ctx); err != nil {
		return err
	}

	t.hooks.EmitInit(ctx, t)

	t.logger.Info("till started",
		"currency", t.currency,
		"low_stock_threshold", t.lowStockThreshold,
	)
	return nil
}

// Stop shuts down the engine.
func (t *Till) Stop() error {
	ctx := context.Background()
	t.hooks.EmitShutdown(ctx)

	if t.sessions != nil {
		_ = t.sessions.Close() //nolint:errcheck // best-effort session cleanup on shutdown
	}
	return t.store.Close()
}

// Hooks returns the hook registry for post-construction registration.
func (t *Till) Hooks() *hook.Registry { return t.hooks }

// ──────────────────────────────────────────────────
// Sales
// ──────────────────────────────────────────────────

// ProcessSale atomically checks and decrements stock for every requested line
// and appends an immutable billing record with per-line snapshots. Either the
// whole sale commits or nothing does. Totals are caller-computed and persisted
// verbatim after validation.
//
// A line naming a product that no longer exists degrades to a zero-value
// snapshot ("Unknown Product", price 0) and decrements nothing; the sale still
// completes. The first line whose quantity exceeds available stock aborts the
// entire sale with an InsufficientStockError.
func (t *Till) ProcessSale(ctx context.Context, req *billing.SaleRequest) (*billing.SaleResponse, error) {
	if err := validateSaleRequest(req); err != nil {
		return nil, err
	}

	actor, _ := ActorFromContext(ctx)

	tx, err := t.store.Begin(ctx)
	if err != nil {
		t.hooks.EmitSaleFailed(ctx, req, err)
		return nil, fmt.Errorf("till: begin sale: %w", err)
	}

	resolved, err := t.resolveAndDecrement(ctx, tx, req.Lines)
	if err != nil {
		_ = tx.Rollback(ctx) //nolint:errcheck // rollback on the error path
		t.hooks.EmitSaleFailed(ctx, req, err)
		return nil, err
	}

	now := time.Now()
	rec := &billing.Record{
		Entity:          types.NewEntity(),
		ID:              id.NewRecordID(),
		Ref:             id.NewRef(now),
		Timestamp:       now,
		Subtotal:        req.Subtotal,
		DiscountPercent: req.DiscountPercent,
		DiscountAmount:  req.DiscountAmount,
		GSTRate:         req.GSTRate,
		GSTAmount:       req.GSTAmount,
		Total:           req.Total,
		CreatedBy:       actor.ID,
	}

	items := make([]billing.Item, len(req.Lines))
	for i, line := range req.Lines {
		items[i] = billing.Item{
			ID:          id.NewItemID(),
			RecordID:    rec.ID,
			ProductID:   line.ProductID,
			ProductName: resolved[i].name,
			Quantity:    line.Quantity,
			Price:       resolved[i].price,
			Unit:        resolved[i].unit,
		}
	}

	if err := t.persistSale(ctx, tx, rec, items); err != nil {
		_ = tx.Rollback(ctx) //nolint:errcheck // rollback on the error path
		t.hooks.EmitSaleFailed(ctx, req, err)
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		t.hooks.EmitSaleFailed(ctx, req, err)
		return nil, err
	}

	rec.Items = items
	resp := &billing.SaleResponse{
		Record: rec,
		Lines:  responseLines(req.Lines, resolved),
	}

	sandboxed := t.sandbox != nil && t.sandbox.Sandboxed(ctx)
	if sandboxed {
		t.stashSandboxInvoice(ctx, rec.Ref, resp)
	}

	t.hooks.EmitSaleCompleted(ctx, rec, sandboxed)
	t.emitLowStock(ctx, resolved)

	t.logger.Info("sale completed",
		"ref", rec.Ref,
		"lines", len(req.Lines),
		"total", rec.Total.String(),
		"created_by", rec.CreatedBy,
		"sandboxed", sandboxed,
	)
	return resp, nil
}

// resolvedLine is the product snapshot taken for one sale line.
type resolvedLine struct {
	name      string
	category  string
	stock     int64 // after decrement
	price     types.Money
	unit      string
	sku       string
	degraded  bool
	productID int64
}

// resolveAndDecrement loads every line's product inside the transaction,
// checks stock, and stages the decrement. The first insufficient line aborts.
func (t *Till) resolveAndDecrement(ctx context.Context, tx store.Tx, lines []billing.SaleLine) ([]resolvedLine, error) {
	resolved := make([]resolvedLine, len(lines))
	for i, line := range lines {
		p, err := tx.GetProduct(ctx, line.ProductID)
		if errors.Is(err, ErrProductNotFound) {
			// The product row is gone; snapshot a degraded line and move on.
			resolved[i] = resolvedLine{
				name:      "Unknown Product",
				price:     types.Zero(t.currency),
				unit:      "pc",
				degraded:  true,
				productID: line.ProductID,
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("till: resolve product %d: %w", line.ProductID, err)
		}

		if p.Stock < line.Quantity {
			return nil, &InsufficientStockError{
				ProductID: p.ID,
				Name:      p.Name,
				Requested: line.Quantity,
				Available: p.Stock,
			}
		}

		newStock := p.Stock - line.Quantity
		if err := tx.UpdateProductStock(ctx, p.ID, newStock); err != nil {
			return nil, fmt.Errorf("till: decrement stock for product %d: %w: %v",
				p.ID, ErrTransactionFailed, err)
		}

		resolved[i] = resolvedLine{
			name:      p.Name,
			category:  p.Category,
			stock:     newStock,
			price:     p.Price,
			unit:      p.Unit,
			sku:       p.SKU,
			productID: p.ID,
		}
	}
	return resolved, nil
}

func (t *Till) persistSale(ctx context.Context, tx store.Tx, rec *billing.Record, items []billing.Item) error {
	if err := tx.CreateRecord(ctx, rec); err != nil {
		return fmt.Errorf("till: persist record: %w: %v", ErrTransactionFailed, err)
	}
	for i := range items {
		if err := tx.CreateItem(ctx, &items[i]); err != nil {
			return fmt.Errorf("till: persist item: %w: %v", ErrTransactionFailed, err)
		}
	}
	return nil
}

func responseLines(lines []billing.SaleLine, resolved []resolvedLine) []billing.ResponseLine {
	out := make([]billing.ResponseLine, len(lines))
	for i, line := range lines {
		out[i] = billing.ResponseLine{
			ProductID: line.ProductID,
			Name:      resolved[i].name,
			Category:  resolved[i].category,
			Stock:     resolved[i].stock,
			Price:     resolved[i].price,
			Unit:      resolved[i].unit,
			SKU:       resolved[i].sku,
			Quantity:  line.Quantity,
		}
	}
	return out
}

// stashSandboxInvoice keeps a sandboxed sale's response in session storage so
// the invoice download still works with no durable record.
func (t *Till) stashSandboxInvoice(ctx context.Context, ref id.Ref, resp *billing.SaleResponse) {
	if t.sessions == nil {
		return
	}
	sessionID, ok := SessionFromContext(ctx)
	if !ok {
		t.logger.Warn("sandboxed sale without session id; invoice will not be retrievable", "ref", ref)
		return
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.logger.Warn("marshal sandbox invoice", "ref", ref, "error", err)
		return
	}
	if err := t.sessions.Put(ctx, sessionID, invoiceSessionKey(ref), data, t.sessionTTL); err != nil {
		t.logger.Warn("stash sandbox invoice", "ref", ref, "error", err)
	}
}

func (t *Till) emitLowStock(ctx context.Context, resolved []resolvedLine) {
	for _, r := range resolved {
		if r.degraded || r.stock > t.lowStockThreshold {
			continue
		}
		t.hooks.EmitStockLow(ctx, &product.Product{
			ID:       r.productID,
			Name:     r.name,
			Category: r.category,
			Stock:    r.stock,
			Price:    r.price,
			Unit:     r.unit,
			SKU:      r.sku,
		})
	}
}

// History returns all billing records newest-first with their items attached.
// Read-only and idempotent.
func (t *Till) History(ctx context.Context) ([]*billing.Record, error) {
	records, err := t.store.ListRecords(ctx, billing.ListOpts{})
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		items, err := t.store.ListItems(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		rec.Items = items
	}
	return records, nil
}

// ──────────────────────────────────────────────────
// Invoices
// ──────────────────────────────────────────────────

// Invoice projects the sale identified by its client-visible ref into the
// normalized renderer payload, plus the download filename. Durable records
// win; for sandboxed sales the projector falls back to the session snapshot.
func (t *Till) Invoice(ctx context.Context, ref id.Ref) (*invoice.Document, string, error) {
	filename := invoice.Filename(ref)

	rec, err := t.store.GetRecordByRef(ctx, ref)
	if err == nil {
		items, err := t.store.ListItems(ctx, rec.ID)
		if err != nil {
			return nil, "", err
		}
		return invoice.FromRecord(rec, items), filename, nil
	}
	if !IsNotFound(err) {
		return nil, "", err
	}

	doc, serr := t.sessionInvoice(ctx, ref)
	if serr != nil {
		// Missing in both the ledger and the session cache.
		return nil, "", ErrRecordNotFound
	}
	return doc, filename, nil
}

func (t *Till) sessionInvoice(ctx context.Context, ref id.Ref) (*invoice.Document, error) {
	if t.sessions == nil {
		return nil, ErrSessionMiss
	}
	sessionID, ok := SessionFromContext(ctx)
	if !ok {
		return nil, ErrSessionMiss
	}
	data, err := t.sessions.Get(ctx, sessionID, invoiceSessionKey(ref))
	if err != nil {
		return nil, err
	}
	return invoice.FromSnapshot(data)
}

// RenderInvoice renders the invoice through the configured renderer and
// returns the bytes plus download filename.
func (t *Till) RenderInvoice(ctx context.Context, ref id.Ref) ([]byte, string, error) {
	if t.renderer == nil {
		return nil, "", fmt.Errorf("till: no renderer configured: %w", ErrRenderFailed)
	}

	doc, filename, err := t.Invoice(ctx, ref)
	if err != nil {
		return nil, "", err
	}

	out, err := t.renderer.Render(ctx, doc)
	if err != nil {
		return nil, "", fmt.Errorf("till: render invoice %d: %w: %v", ref, ErrRenderFailed, err)
	}

	t.hooks.EmitInvoiceRendered(ctx, int64(ref), filename, len(out))
	return out, filename, nil
}

func invoiceSessionKey(ref id.Ref) string {
	return "invoice:" + ref.String()
}

// ──────────────────────────────────────────────────
// Catalog
// ──────────────────────────────────────────────────

// AddProduct adds a product to the catalog. A zero ID is assigned the next
// free catalog number; a zero price currency inherits the engine currency.
func (t *Till) AddProduct(ctx context.Context, p *product.Product) error {
	if p == nil {
		return &ValidationError{Field: "product", Message: "must not be nil"}
	}
	if p.Name == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if p.Stock < 0 {
		return &ValidationError{Field: "stock", Message: "must not be negative"}
	}
	if p.Price.IsNegative() {
		return &ValidationError{Field: "price", Message: "must not be negative"}
	}

	if p.ID == 0 {
		next, err := t.nextProductID(ctx)
		if err != nil {
			return err
		}
		p.ID = next
	}
	if p.Unit == "" {
		p.Unit = "pc"
	}
	if p.Price.Currency == "" {
		p.Price.Currency = t.currency
	}
	p.Entity = types.NewEntity()

	if err := t.store.CreateProduct(ctx, p); err != nil {
		return err
	}

	t.hooks.EmitProductCreated(ctx, p)
	return nil
}

// GetProduct retrieves a product by catalog id.
func (t *Till) GetProduct(ctx context.Context, productID int64) (*product.Product, error) {
	return t.store.GetProduct(ctx, productID)
}

// Products lists catalog products.
func (t *Till) Products(ctx context.Context, opts product.ListOpts) ([]*product.Product, error) {
	return t.store.ListProducts(ctx, opts)
}

// LowStock lists products at or below the engine's low-stock threshold.
func (t *Till) LowStock(ctx context.Context) ([]*product.Product, error) {
	return t.store.ListProducts(ctx, product.ListOpts{MaxStock: t.lowStockThreshold + 1})
}

// UpdateProduct applies a partial patch over the stored product. Absent patch
// fields leave the stored values untouched.
func (t *Till) UpdateProduct(ctx context.Context, productID int64, patch product.Patch) (*product.Product, error) {
	current, err := t.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	old := *current

	current.Apply(patch)
	if current.Name == "" {
		return nil, &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if current.Stock < 0 {
		return nil, &ValidationError{Field: "stock", Message: "must not be negative"}
	}
	if current.Price.IsNegative() {
		return nil, &ValidationError{Field: "price", Message: "must not be negative"}
	}

	if err := t.store.UpdateProduct(ctx, current); err != nil {
		return nil, err
	}

	t.hooks.EmitProductUpdated(ctx, &old, current)
	return current, nil
}

// RemoveProduct deletes a product from the catalog. Historical billing items
// keep their snapshots; only the live row goes away.
func (t *Till) RemoveProduct(ctx context.Context, productID int64) error {
	if err := t.store.DeleteProduct(ctx, productID); err != nil {
		return err
	}
	t.hooks.EmitProductDeleted(ctx, productID)
	return nil
}

// ExportInventory snapshots the whole catalog for transfer.
func (t *Till) ExportInventory(ctx context.Context) (*product.Export, error) {
	products, err := t.store.ListProducts(ctx, product.ListOpts{})
	if err != nil {
		return nil, err
	}
	return &product.Export{
		ExportDate:    time.Now(),
		TotalProducts: len(products),
		Products:      products,
	}, nil
}

// ImportInventory replaces the entire catalog with the export's products and
// returns how many were imported. The whole set is validated before the first
// delete, so a bad file never leaves the catalog half-replaced.
func (t *Till) ImportInventory(ctx context.Context, exp *product.Export) (int, error) {
	if exp == nil || len(exp.Products) == 0 {
		return 0, &ValidationError{Field: "products", Message: "must not be empty"}
	}
	if err := validateImportSet(exp.Products); err != nil {
		return 0, err
	}

	existing, err := t.store.ListProducts(ctx, product.ListOpts{})
	if err != nil {
		return 0, err
	}
	for _, p := range existing {
		if err := t.store.DeleteProduct(ctx, p.ID); err != nil {
			return 0, err
		}
	}

	imported := 0
	for _, p := range exp.Products {
		if p.Unit == "" {
			p.Unit = "pc"
		}
		if p.Price.Currency == "" {
			p.Price.Currency = t.currency
		}
		p.Entity = types.NewEntity()
		if err := t.store.CreateProduct(ctx, p); err != nil {
			return imported, err
		}
		imported++
	}

	t.logger.Info("inventory imported", "count", imported)
	return imported, nil
}

func (t *Till) nextProductID(ctx context.Context) (int64, error) {
	products, err := t.store.ListProducts(ctx, product.ListOpts{})
	if err != nil {
		return 0, err
	}
	var max int64
	for _, p := range products {
		if p.ID > max {
			max = p.ID
		}
	}
	return max + 1, nil
}

// ──────────────────────────────────────────────────
// Validation
// ──────────────────────────────────────────────────

// validateImportSet checks an import file in full before the catalog is
// touched: every row creatable on its own, no intra-set id or SKU conflicts.
func validateImportSet(products []*product.Product) error {
	ids := make(map[int64]bool, len(products))
	skus := make(map[string]bool, len(products))
	for i, p := range products {
		if p == nil {
			return &ValidationError{
				Field:   fmt.Sprintf("products[%d]", i),
				Message: "must not be null",
			}
		}
		if p.ID <= 0 {
			return &ValidationError{
				Field:   fmt.Sprintf("products[%d].id", i),
				Message: "must be positive",
			}
		}
		if p.Name == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("products[%d].name", i),
				Message: "must not be empty",
			}
		}
		if p.Stock < 0 {
			return &ValidationError{
				Field:   fmt.Sprintf("products[%d].stock", i),
				Message: "must not be negative",
			}
		}
		if p.Price.IsNegative() {
			return &ValidationError{
				Field:   fmt.Sprintf("products[%d].price", i),
				Message: "must not be negative",
			}
		}
		if ids[p.ID] {
			return &ValidationError{
				Field:   fmt.Sprintf("products[%d].id", i),
				Message: fmt.Sprintf("duplicate id %d in import", p.ID),
			}
		}
		ids[p.ID] = true
		if p.SKU != "" {
			if skus[p.SKU] {
				return &ValidationError{
					Field:   fmt.Sprintf("products[%d].sku", i),
					Message: fmt.Sprintf("duplicate sku %q in import", p.SKU),
				}
			}
			skus[p.SKU] = true
		}
	}
	return nil
}

func validateSaleRequest(req *billing.SaleRequest) error {
	if req == nil {
		return &ValidationError{Field: "request", Message: "must not be nil"}
	}
	if len(req.Lines) == 0 {
		return &ValidationError{Field: "items", Message: "must not be empty"}
	}
	for i, line := range req.Lines {
		if line.Quantity <= 0 {
			return &ValidationError{
				Field:   fmt.Sprintf("items[%d].quantity", i),
				Message: "must be positive",
			}
		}
	}
	if req.Subtotal.IsNegative() || req.DiscountAmount.IsNegative() ||
		req.GSTAmount.IsNegative() || req.Total.IsNegative() {
		return &ValidationError{Field: "totals", Message: "must not be negative"}
	}
	if req.DiscountPercent < 0 || req.DiscountPercent > 100 {
		return &ValidationError{Field: "discountPercent", Message: "must be between 0 and 100"}
	}
	if req.GSTRate < 0 {
		return &ValidationError{Field: "gstRate", Message: "must not be negative"}
	}
	return nil
}
