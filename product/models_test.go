package product

import (
	"testing"

	"github.com/xraph/till/types"
)

func strPtr(s string) *string { return &s }
func intPtr(n int64) *int64   { return &n }

func TestPatchApply(t *testing.T) {
	base := func() *Product {
		return &Product{
			Entity:   types.NewEntity(),
			ID:       1,
			Name:     "PVC Pipe 1/2 inch",
			Category: "Plumbing",
			Stock:    50,
			Price:    types.INR(1099),
			Unit:     "pc",
			SKU:      "PVC001",
		}
	}

	tests := []struct {
		name  string
		patch Patch
		check func(t *testing.T, p *Product)
	}{
		{
			"empty patch changes nothing",
			Patch{},
			func(t *testing.T, p *Product) {
				if p.Name != "PVC Pipe 1/2 inch" || p.Stock != 50 || p.SKU != "PVC001" {
					t.Errorf("product mutated by empty patch: %+v", p)
				}
			},
		},
		{
			"single field",
			Patch{Stock: intPtr(35)},
			func(t *testing.T, p *Product) {
				if p.Stock != 35 {
					t.Errorf("Stock: got %d, want 35", p.Stock)
				}
				if p.Name != "PVC Pipe 1/2 inch" {
					t.Errorf("Name changed unexpectedly: %q", p.Name)
				}
			},
		},
		{
			"multiple fields",
			Patch{
				Name:     strPtr("PVC Pipe 3/4 inch"),
				Category: strPtr("Fittings"),
				Price:    &types.Money{Amount: 1299, Currency: "inr"},
				SKU:      strPtr("PVC003"),
			},
			func(t *testing.T, p *Product) {
				if p.Name != "PVC Pipe 3/4 inch" || p.Category != "Fittings" || p.SKU != "PVC003" {
					t.Errorf("patched fields not applied: %+v", p)
				}
				if p.Price.Amount != 1299 {
					t.Errorf("Price: got %d, want 1299", p.Price.Amount)
				}
				if p.Stock != 50 {
					t.Errorf("Stock changed unexpectedly: %d", p.Stock)
				}
			},
		},
		{
			"zero values apply when pointed at",
			Patch{Stock: intPtr(0)},
			func(t *testing.T, p *Product) {
				if p.Stock != 0 {
					t.Errorf("Stock: got %d, want 0", p.Stock)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base()
			before := p.UpdatedAt
			p.Apply(tt.patch)
			tt.check(t, p)
			if p.UpdatedAt.Before(before) {
				t.Error("UpdatedAt moved backwards")
			}
		})
	}
}

func TestLowStock(t *testing.T) {
	p := &Product{Stock: 8}

	if !p.LowStock(10) {
		t.Error("stock 8 should be low against threshold 10")
	}
	// At-threshold counts as low, matching the engine's post-sale check.
	if !p.LowStock(8) {
		t.Error("stock 8 should be low against threshold 8")
	}
	if p.LowStock(7) {
		t.Error("stock 8 should not be low against threshold 7")
	}
}
