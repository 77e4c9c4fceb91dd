package till_test

import (
	"context"
	"errors"
	"testing"

	"github.com/xraph/till"
	"github.com/xraph/till/billing"
	"github.com/xraph/till/invoice"
	"github.com/xraph/till/product"
	"github.com/xraph/till/sandbox"
	sessionmemory "github.com/xraph/till/session/memory"
	storememory "github.com/xraph/till/store/memory"
	"github.com/xraph/till/types"
)

func newEngine(t *testing.T, opts ...till.Option) *till.Till {
	t.Helper()
	eng := till.New(storememory.New(), opts...)
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })
	return eng
}

func seedCatalog(t *testing.T, eng *till.Till) {
	t.Helper()
	ctx := context.Background()
	products := []*product.Product{
		{ID: 1, Name: "Switch Socket", Category: "Electrical", Stock: 5, Price: types.INR(1000), Unit: "pc", SKU: "SWT001"},
		{ID: 2, Name: "Copper Wire", Category: "Electrical", Stock: 2, Price: types.INR(500), Unit: "m", SKU: "WIR002"},
	}
	for _, p := range products {
		if err := eng.AddProduct(ctx, p); err != nil {
			t.Fatalf("AddProduct %d: %v", p.ID, err)
		}
	}
}

func saleRequest(lines ...billing.SaleLine) *billing.SaleRequest {
	return &billing.SaleRequest{
		Lines:    lines,
		Subtotal: types.INR(3000),
		Total:    types.INR(3000),
	}
}

func TestProcessSaleDecrementsStockAndRecords(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	seedCatalog(t, eng)

	resp, err := eng.ProcessSale(ctx, saleRequest(billing.SaleLine{ProductID: 1, Quantity: 3}))
	if err != nil {
		t.Fatalf("ProcessSale: %v", err)
	}

	p, err := eng.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if p.Stock != 2 {
		t.Errorf("stock after sale = %d, want 2", p.Stock)
	}

	if resp.Record == nil || resp.Record.Ref == 0 {
		t.Fatal("response missing record ref")
	}
	if !resp.Record.Total.Equal(types.INR(3000)) {
		t.Errorf("total = %v", resp.Record.Total)
	}
	if len(resp.Lines) != 1 {
		t.Fatalf("response lines = %d", len(resp.Lines))
	}
	line := resp.Lines[0]
	if line.Name != "Switch Socket" || line.Quantity != 3 || line.Stock != 2 {
		t.Errorf("response line = %+v", line)
	}

	history, err := eng.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history = %d records", len(history))
	}
	if len(history[0].Items) != 1 || history[0].Items[0].ProductName != "Switch Socket" {
		t.Errorf("history items = %+v", history[0].Items)
	}
}

func TestProcessSaleInsufficientStockAborts(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	seedCatalog(t, eng)

	// Product 2 has stock 2; asking for 3 must abort the whole sale,
	// including the decrement already staged for product 1.
	_, err := eng.ProcessSale(ctx, saleRequest(
		billing.SaleLine{ProductID: 1, Quantity: 1},
		billing.SaleLine{ProductID: 2, Quantity: 3},
	))
	if err == nil {
		t.Fatal("expected insufficient stock error")
	}
	if !till.IsInsufficientStock(err) {
		t.Fatalf("error = %v, want insufficient stock", err)
	}
	var ise *till.InsufficientStockError
	if errors.As(err, &ise) {
		if ise.ProductID != 2 || ise.Requested != 3 || ise.Available != 2 {
			t.Errorf("error detail = %+v", ise)
		}
	} else {
		t.Errorf("error %v does not unwrap to InsufficientStockError", err)
	}

	for id, want := range map[int64]int64{1: 5, 2: 2} {
		p, err := eng.GetProduct(ctx, id)
		if err != nil {
			t.Fatalf("GetProduct %d: %v", id, err)
		}
		if p.Stock != want {
			t.Errorf("product %d stock = %d, want %d (rollback)", id, p.Stock, want)
		}
	}

	history, err := eng.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history = %d records, want 0", len(history))
	}
}

func TestProcessSaleMissingProductDegrades(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	seedCatalog(t, eng)

	resp, err := eng.ProcessSale(ctx, saleRequest(
		billing.SaleLine{ProductID: 1, Quantity: 1},
		billing.SaleLine{ProductID: 99, Quantity: 2},
	))
	if err != nil {
		t.Fatalf("ProcessSale: %v", err)
	}

	ghost := resp.Lines[1]
	if ghost.Name != "Unknown Product" {
		t.Errorf("degraded name = %q", ghost.Name)
	}
	if !ghost.Price.IsZero() {
		t.Errorf("degraded price = %v", ghost.Price)
	}
	if ghost.Unit != "pc" {
		t.Errorf("degraded unit = %q", ghost.Unit)
	}

	// The known line still decremented normally.
	p, _ := eng.GetProduct(ctx, 1)
	if p.Stock != 4 {
		t.Errorf("stock = %d, want 4", p.Stock)
	}
}

func TestProcessSaleValidation(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	seedCatalog(t, eng)

	cases := []struct {
		name string
		req  *billing.SaleRequest
	}{
		{"nil request", nil},
		{"no lines", &billing.SaleRequest{}},
		{"zero quantity", saleRequest(billing.SaleLine{ProductID: 1, Quantity: 0})},
		{"negative quantity", saleRequest(billing.SaleLine{ProductID: 1, Quantity: -2})},
		{"negative total", &billing.SaleRequest{
			Lines: []billing.SaleLine{{ProductID: 1, Quantity: 1}},
			Total: types.INR(-100),
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := eng.ProcessSale(ctx, tc.req); !till.IsValidation(err) {
				t.Errorf("error = %v, want validation error", err)
			}
		})
	}

	// Validation failures never touch stock.
	p, _ := eng.GetProduct(ctx, 1)
	if p.Stock != 5 {
		t.Errorf("stock = %d, want 5", p.Stock)
	}
}

func TestHistoryNewestFirstAndIdempotent(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	seedCatalog(t, eng)

	for i := 0; i < 3; i++ {
		if _, err := eng.ProcessSale(ctx, saleRequest(billing.SaleLine{ProductID: 1, Quantity: 1})); err != nil {
			t.Fatalf("ProcessSale %d: %v", i, err)
		}
	}

	first, err := eng.History(ctx)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("history = %d records", len(first))
	}
	for i := 1; i < len(first); i++ {
		if first[i].Timestamp.After(first[i-1].Timestamp) {
			t.Errorf("history not newest-first at %d", i)
		}
	}

	second, err := eng.History(ctx)
	if err != nil {
		t.Fatalf("History again: %v", err)
	}
	if len(second) != len(first) {
		t.Errorf("second read = %d records, want %d", len(second), len(first))
	}
}

func TestSandboxedSaleLeavesNoTrace(t *testing.T) {
	sessions := sessionmemory.New()
	inner := storememory.New()
	eng := till.New(sandbox.Wrap(inner), till.WithSessions(sessions))
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = eng.Stop() })
	seedCatalog(t, eng)

	demoCtx := till.WithSession(
		till.WithActor(context.Background(), till.Actor{ID: "demo-1", Role: "demo"}),
		"sess-a",
	)

	resp, err := eng.ProcessSale(demoCtx, saleRequest(billing.SaleLine{ProductID: 1, Quantity: 3}))
	if err != nil {
		t.Fatalf("ProcessSale: %v", err)
	}

	// Same session state and echoed response as a real sale.
	if resp.Record.Ref == 0 || len(resp.Lines) != 1 {
		t.Fatalf("sandboxed response = %+v", resp)
	}

	ctx := context.Background()
	p, _ := eng.GetProduct(ctx, 1)
	if p.Stock != 5 {
		t.Errorf("durable stock = %d, want 5 (untouched)", p.Stock)
	}
	history, _ := eng.History(ctx)
	if len(history) != 0 {
		t.Errorf("history = %d records, want 0", len(history))
	}

	// The same session can still project the invoice from the session stash.
	doc, filename, err := eng.Invoice(demoCtx, resp.Record.Ref)
	if err != nil {
		t.Fatalf("Invoice (same session): %v", err)
	}
	if doc.Ref != resp.Record.Ref {
		t.Errorf("doc ref = %d, want %d", doc.Ref, resp.Record.Ref)
	}
	if want := invoice.Filename(resp.Record.Ref); filename != want {
		t.Errorf("filename = %q, want %q", filename, want)
	}
	if len(doc.Lines) != 1 || doc.Lines[0].Name != "Switch Socket" {
		t.Errorf("doc lines = %+v", doc.Lines)
	}

	// A different session misses.
	otherCtx := till.WithSession(context.Background(), "sess-b")
	if _, _, err := eng.Invoice(otherCtx, resp.Record.Ref); !till.IsNotFound(err) {
		t.Errorf("cross-session invoice error = %v, want not found", err)
	}
}

func TestInvoiceFromDurableRecord(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	seedCatalog(t, eng)

	resp, err := eng.ProcessSale(ctx, saleRequest(billing.SaleLine{ProductID: 1, Quantity: 3}))
	if err != nil {
		t.Fatalf("ProcessSale: %v", err)
	}

	doc, filename, err := eng.Invoice(ctx, resp.Record.Ref)
	if err != nil {
		t.Fatalf("Invoice: %v", err)
	}
	if doc.Ref != resp.Record.Ref || len(doc.Lines) != 1 {
		t.Errorf("doc = %+v", doc)
	}
	if want := invoice.Filename(resp.Record.Ref); filename != want {
		t.Errorf("filename = %q, want %q", filename, want)
	}

	if _, _, err := eng.Invoice(ctx, 1); !till.IsNotFound(err) {
		t.Errorf("unknown ref error = %v, want not found", err)
	}
}

func TestRenderInvoice(t *testing.T) {
	ctx := context.Background()
	rendered := 0
	renderer := invoice.RendererFunc(func(_ context.Context, doc *invoice.Document) ([]byte, error) {
		rendered++
		return []byte("PDF:" + doc.Total.String()), nil
	})
	eng := newEngine(t, till.WithRenderer(renderer))
	seedCatalog(t, eng)

	resp, err := eng.ProcessSale(ctx, saleRequest(billing.SaleLine{ProductID: 1, Quantity: 3}))
	if err != nil {
		t.Fatalf("ProcessSale: %v", err)
	}

	out, filename, err := eng.RenderInvoice(ctx, resp.Record.Ref)
	if err != nil {
		t.Fatalf("RenderInvoice: %v", err)
	}
	if rendered != 1 || len(out) == 0 {
		t.Errorf("rendered=%d out=%q", rendered, out)
	}
	if want := invoice.Filename(resp.Record.Ref); filename != want {
		t.Errorf("filename = %q, want %q", filename, want)
	}
}

func TestAddProductAssignsNextID(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	seedCatalog(t, eng)

	p := &product.Product{Name: "MCB Breaker", Stock: 10, Price: types.INR(25000)}
	if err := eng.AddProduct(ctx, p); err != nil {
		t.Fatalf("AddProduct: %v", err)
	}
	if p.ID != 3 {
		t.Errorf("assigned ID = %d, want 3", p.ID)
	}
	if p.Unit != "pc" {
		t.Errorf("default unit = %q", p.Unit)
	}
}

func TestUpdateProductMergesPatch(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	seedCatalog(t, eng)

	newStock := int64(50)
	updated, err := eng.UpdateProduct(ctx, 1, product.Patch{Stock: &newStock})
	if err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}

	// Absent patch fields stay as stored.
	if updated.Stock != 50 {
		t.Errorf("stock = %d", updated.Stock)
	}
	if updated.Name != "Switch Socket" || !updated.Price.Equal(types.INR(1000)) || updated.SKU != "SWT001" {
		t.Errorf("untouched fields changed: %+v", updated)
	}

	if _, err := eng.UpdateProduct(ctx, 99, product.Patch{Stock: &newStock}); !till.IsNotFound(err) {
		t.Errorf("unknown product error = %v, want not found", err)
	}
}

func TestRemoveProductKeepsHistory(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	seedCatalog(t, eng)

	resp, err := eng.ProcessSale(ctx, saleRequest(billing.SaleLine{ProductID: 1, Quantity: 1}))
	if err != nil {
		t.Fatalf("ProcessSale: %v", err)
	}
	if err := eng.RemoveProduct(ctx, 1); err != nil {
		t.Fatalf("RemoveProduct: %v", err)
	}

	if _, err := eng.GetProduct(ctx, 1); !till.IsNotFound(err) {
		t.Errorf("deleted product error = %v", err)
	}

	// Historical snapshot survives the catalog delete.
	doc, _, err := eng.Invoice(ctx, resp.Record.Ref)
	if err != nil {
		t.Fatalf("Invoice after delete: %v", err)
	}
	if doc.Lines[0].Name != "Switch Socket" {
		t.Errorf("snapshot name = %q", doc.Lines[0].Name)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	seedCatalog(t, eng)

	exp, err := eng.ExportInventory(ctx)
	if err != nil {
		t.Fatalf("ExportInventory: %v", err)
	}
	if exp.TotalProducts != 2 || len(exp.Products) != 2 {
		t.Fatalf("export = %+v", exp)
	}
	if exp.ExportDate.IsZero() {
		t.Error("export date unset")
	}

	// Import into a fresh engine replaces whatever is there.
	other := newEngine(t)
	if err := other.AddProduct(ctx, &product.Product{ID: 7, Name: "Stale Row", Stock: 1, Price: types.INR(100)}); err != nil {
		t.Fatalf("AddProduct: %v", err)
	}

	n, err := other.ImportInventory(ctx, exp)
	if err != nil {
		t.Fatalf("ImportInventory: %v", err)
	}
	if n != 2 {
		t.Errorf("imported = %d, want 2", n)
	}

	products, err := other.Products(ctx, product.ListOpts{})
	if err != nil {
		t.Fatalf("Products: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("catalog = %d products, want 2 (replaced)", len(products))
	}
	if _, err := other.GetProduct(ctx, 7); !till.IsNotFound(err) {
		t.Errorf("stale row error = %v, want not found", err)
	}

	if _, err := other.ImportInventory(ctx, &product.Export{}); !till.IsValidation(err) {
		t.Errorf("empty import error = %v, want validation", err)
	}
}

func TestImportInventoryBadFileLeavesCatalogIntact(t *testing.T) {
	ctx := context.Background()
	eng := newEngine(t)
	seedCatalog(t, eng)

	bad := []*product.Export{
		{Products: []*product.Product{ // duplicate SKU within the file
			{ID: 10, Name: "N1", Stock: 1, Price: types.INR(100), SKU: "DUP"},
			{ID: 11, Name: "N2", Stock: 1, Price: types.INR(200), SKU: "DUP"},
		}},
		{Products: []*product.Product{ // duplicate id within the file
			{ID: 10, Name: "N1", Stock: 1, Price: types.INR(100)},
			{ID: 10, Name: "N2", Stock: 1, Price: types.INR(200)},
		}},
		{Products: []*product.Product{ // unnamed row
			{ID: 10, Stock: 1, Price: types.INR(100)},
		}},
		{Products: []*product.Product{ // missing id
			{Name: "N1", Stock: 1, Price: types.INR(100)},
		}},
	}
	for _, exp := range bad {
		if _, err := eng.ImportInventory(ctx, exp); !till.IsValidation(err) {
			t.Errorf("import error = %v, want validation", err)
		}
	}

	// Every rejection happened before the first delete.
	products, err := eng.Products(ctx, product.ListOpts{})
	if err != nil {
		t.Fatalf("Products: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("catalog = %d products, want 2 (untouched)", len(products))
	}
	if p, err := eng.GetProduct(ctx, 1); err != nil || p.Name != "Switch Socket" {
		t.Errorf("product 1 = %+v, %v", p, err)
	}
}

func TestStockLowHookFires(t *testing.T) {
	ctx := context.Background()
	low := &lowStockRecorder{}
	eng := newEngine(t, till.WithHook(low), till.WithLowStockThreshold(3))
	seedCatalog(t, eng)

	// 5 - 3 = 2 <= threshold 3.
	if _, err := eng.ProcessSale(ctx, saleRequest(billing.SaleLine{ProductID: 1, Quantity: 3})); err != nil {
		t.Fatalf("ProcessSale: %v", err)
	}
	if len(low.products) != 1 || low.products[0].ID != 1 || low.products[0].Stock != 2 {
		t.Errorf("low stock events = %+v", low.products)
	}
}

type lowStockRecorder struct {
	products []*product.Product
}

func (h *lowStockRecorder) Name() string { return "low-stock-recorder" }

func (h *lowStockRecorder) OnStockLow(_ context.Context, p *product.Product) error {
	h.products = append(h.products, p)
	return nil
}
