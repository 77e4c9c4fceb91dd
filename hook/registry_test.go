package hook

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/till/billing"
	"github.com/xraph/till/product"
)

type saleHook struct {
	name      string
	completed atomic.Int64
	failed    atomic.Int64
	err       error
}

func (h *saleHook) Name() string { return h.name }

func (h *saleHook) OnSaleCompleted(_ context.Context, _ *billing.Record, _ bool) error {
	h.completed.Add(1)
	return h.err
}

func (h *saleHook) OnSaleFailed(_ context.Context, _ *billing.SaleRequest, _ error) error {
	h.failed.Add(1)
	return nil
}

type stockHook struct {
	name string
	low  atomic.Int64
}

func (h *stockHook) Name() string { return h.name }

func (h *stockHook) OnStockLow(_ context.Context, _ *product.Product) error {
	h.low.Add(1)
	return nil
}

func TestRegisterAndDispatch(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry()

	sale := &saleHook{name: "sale-watcher"}
	stock := &stockHook{name: "stock-watcher"}
	if err := r.Register(sale); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(stock); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if r.Count() != 2 {
		t.Errorf("Count = %d", r.Count())
	}

	r.EmitSaleCompleted(ctx, &billing.Record{}, false)
	r.EmitSaleFailed(ctx, &billing.SaleRequest{}, errors.New("boom"))
	r.EmitStockLow(ctx, &product.Product{})

	if sale.completed.Load() != 1 || sale.failed.Load() != 1 {
		t.Errorf("sale hook calls: completed=%d failed=%d",
			sale.completed.Load(), sale.failed.Load())
	}
	if stock.low.Load() != 1 {
		t.Errorf("stock hook calls: %d", stock.low.Load())
	}
	// Events a hook does not implement never reach it.
	r.EmitProductDeleted(ctx, 1)
}

func TestDuplicateRegistration(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&saleHook{name: "dup"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&saleHook{name: "dup"}); err == nil {
		t.Error("expected duplicate registration error")
	}
}

func TestHookErrorDoesNotPropagate(t *testing.T) {
	r := NewRegistry()
	sale := &saleHook{name: "failing", err: errors.New("hook broke")}
	if err := r.Register(sale); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Emission swallows hook errors; the sale pipeline must not notice.
	r.EmitSaleCompleted(context.Background(), &billing.Record{}, true)
	if sale.completed.Load() != 1 {
		t.Errorf("hook not called: %d", sale.completed.Load())
	}
}

type slowHook struct{ saleHook }

func (h *slowHook) OnShutdown(_ context.Context) error {
	time.Sleep(50 * time.Millisecond)
	return nil
}

func TestGetAndList(t *testing.T) {
	r := NewRegistry()
	h := &slowHook{saleHook{name: "slow"}}
	if err := r.Register(h); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if got := r.Get("slow"); got != h {
		t.Errorf("Get = %v", got)
	}
	if got := r.Get("absent"); got != nil {
		t.Errorf("Get absent = %v", got)
	}
	if len(r.List()) != 1 {
		t.Errorf("List = %d", len(r.List()))
	}

	r.EmitShutdown(context.Background())
}
