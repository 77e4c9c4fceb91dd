// Package product defines the catalog entity mutated by the billing engine.
package product

import "github.com/xraph/till/types"

// Product is a catalog row. The billing engine reads every field but mutates
// Stock only; everything else belongs to catalog management.
// Stock is never negative after a committed transaction.
type Product struct {
	types.Entity
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Stock    int64       `json:"stock"`
	Price    types.Money `json:"price"`
	Unit     string      `json:"unit"`
	SKU      string      `json:"sku"`
}

// Patch is a partial update applied field-by-field over a loaded product.
// Nil fields are left untouched; a product is never blindly replaced.
type Patch struct {
	Name     *string
	Category *string
	Stock    *int64
	Price    *types.Money
	Unit     *string
	SKU      *string
}

// Apply merges the patch into p and stamps UpdatedAt.
func (p *Product) Apply(patch Patch) {
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Unit != nil {
		p.Unit = *patch.Unit
	}
	if patch.SKU != nil {
		p.SKU = *patch.SKU
	}
	p.Touch()
}

// LowStock reports whether the product's stock is at or below the given
// threshold, the same test the engine applies after a sale.
func (p *Product) LowStock(threshold int64) bool {
	return p.Stock <= threshold
}
