package till_test

import (
	"context"
	"log"
	"log/slog"
	"testing"

	"github.com/xraph/till"
	"github.com/xraph/till/billing"
	"github.com/xraph/till/product"
	"github.com/xraph/till/sandbox"
	sessionmemory "github.com/xraph/till/session/memory"
	"github.com/xraph/till/store/memory"
	"github.com/xraph/till/types"
)

// TestDocumentationExamples verifies that all examples in the documentation compile
func TestDocumentationExamples(t *testing.T) {
	// Test Quick Start example from README
	t.Run("QuickStartExample", func(t *testing.T) {
		// Create store (memory for demo, use PostgreSQL in production)
		store := memory.New()

		// Initialize Till
		eng := till.New(store,
			till.WithLogger(slog.Default()),
			till.WithLowStockThreshold(5),
		)

		// Start the engine
		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		// Stock the catalog
		p := &product.Product{
			Name:     "Switch Socket",
			Category: "Electrical",
			Stock:    10,
			Price:    types.INR(1000), // ₹10.00
			Unit:     "pc",
			SKU:      "SWT001",
		}
		if err := eng.AddProduct(ctx, p); err != nil {
			t.Fatal(err)
		}

		// Identify the cashier
		ctx = till.WithActor(ctx, till.Actor{ID: "cashier-7", Role: "cashier"})

		// Process a sale: stock check, decrement, and record creation are atomic
		resp, err := eng.ProcessSale(ctx, &billing.SaleRequest{
			Lines:    []billing.SaleLine{{ProductID: p.ID, Quantity: 3}},
			Subtotal: types.INR(3000),
			Total:    types.INR(3000),
		})
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("sale %s total %s\n", resp.Record.Ref, resp.Record.Total)

		// Project the invoice for download
		doc, filename, err := eng.Invoice(ctx, resp.Record.Ref)
		if err != nil {
			t.Fatal(err)
		}
		log.Printf("invoice %s with %d lines\n", filename, len(doc.Lines))
	})

	// Test sandbox example from package docs
	t.Run("SandboxExample", func(t *testing.T) {
		sessions := sessionmemory.New()

		policy := sandbox.Wrap(memory.New()) // the "demo" role is sandboxed by default
		eng := till.New(policy, till.WithSessions(sessions))

		ctx := context.Background()
		if err := eng.Start(ctx); err != nil {
			t.Fatal(err)
		}
		defer eng.Stop()

		if err := eng.AddProduct(ctx, &product.Product{
			Name: "Copper Wire", Stock: 10, Price: types.INR(500), Unit: "m",
		}); err != nil {
			t.Fatal(err)
		}

		// A demo actor runs the full sale flow without any durable write.
		demoCtx := till.WithSession(
			till.WithActor(ctx, till.Actor{ID: "demo-1", Role: "demo"}),
			"demo-session",
		)
		resp, err := eng.ProcessSale(demoCtx, &billing.SaleRequest{
			Lines:    []billing.SaleLine{{ProductID: 1, Quantity: 2}},
			Subtotal: types.INR(1000),
			Total:    types.INR(1000),
		})
		if err != nil {
			t.Fatal(err)
		}

		// Stock is untouched and the ledger is empty...
		got, _ := eng.GetProduct(ctx, 1)
		if got.Stock != 10 {
			t.Fatalf("stock = %d, want 10", got.Stock)
		}

		// ...but the demo session can still download its invoice.
		if _, _, err := eng.Invoice(demoCtx, resp.Record.Ref); err != nil {
			t.Fatal(err)
		}
	})
}
