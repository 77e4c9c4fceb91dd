package sandbox

import (
	"context"
	"errors"
	"testing"
	"time"

	till "github.com/xraph/till"
	"github.com/xraph/till/billing"
	"github.com/xraph/till/id"
	"github.com/xraph/till/product"
	"github.com/xraph/till/store/memory"
	"github.com/xraph/till/types"
)

func demoCtx() context.Context {
	return till.WithActor(context.Background(), till.Actor{ID: "demo", Role: "demo"})
}

func cashierCtx() context.Context {
	return till.WithActor(context.Background(), till.Actor{ID: "asha", Role: "cashier"})
}

func seed(t *testing.T, s *memory.Store) {
	t.Helper()
	err := s.CreateProduct(context.Background(), &product.Product{
		Entity: types.NewEntity(),
		ID:     1,
		Name:   "Switch Socket",
		Stock:  10,
		Price:  types.INR(550),
		Unit:   "pc",
		SKU:    "SWT001",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestSandboxedCommitLeavesNothingDurable(t *testing.T) {
	inner := memory.New()
	seed(t, inner)
	policy := Wrap(inner)

	ctx := demoCtx()
	tx, err := policy.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := tx.UpdateProductStock(ctx, 1, 7); err != nil {
		t.Fatalf("UpdateProductStock: %v", err)
	}
	if err := tx.CreateRecord(ctx, &billing.Record{
		ID: id.NewRecordID(), Ref: 555, Timestamp: time.Now(),
	}); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	// The transaction still sees its own writes.
	p, err := tx.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("tx GetProduct: %v", err)
	}
	if p.Stock != 7 {
		t.Errorf("tx stock = %d, want 7", p.Stock)
	}

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	after, _ := inner.GetProduct(ctx, 1)
	if after.Stock != 10 {
		t.Errorf("durable stock = %d, want 10", after.Stock)
	}
	if _, err := inner.GetRecordByRef(ctx, 555); !errors.Is(err, till.ErrRecordNotFound) {
		t.Errorf("record leaked to durable store: %v", err)
	}
}

func TestRegularActorCommitsNormally(t *testing.T) {
	inner := memory.New()
	seed(t, inner)
	policy := Wrap(inner)

	ctx := cashierCtx()
	tx, err := policy.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := tx.UpdateProductStock(ctx, 1, 7); err != nil {
		t.Fatalf("UpdateProductStock: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	after, _ := inner.GetProduct(ctx, 1)
	if after.Stock != 7 {
		t.Errorf("durable stock = %d, want 7", after.Stock)
	}
}

func TestSandboxedPredicate(t *testing.T) {
	inner := memory.New()

	tests := []struct {
		name string
		opts []Option
		ctx  context.Context
		want bool
	}{
		{"default role demo", nil, demoCtx(), true},
		{"default role cashier", nil, cashierCtx(), false},
		{"no actor in context", nil, context.Background(), false},
		{
			"explicit actor id",
			[]Option{WithActors("asha")},
			cashierCtx(),
			true,
		},
		{
			"explicit actors exclude default role",
			[]Option{WithActors("asha")},
			demoCtx(),
			false,
		},
		{
			"explicit role",
			[]Option{WithRoles("trainee")},
			till.WithActor(context.Background(), till.Actor{ID: "n1", Role: "trainee"}),
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := Wrap(inner, tt.opts...)
			if got := policy.Sandboxed(tt.ctx); got != tt.want {
				t.Errorf("Sandboxed() = %v, want %v", got, tt.want)
			}
		})
	}
}
