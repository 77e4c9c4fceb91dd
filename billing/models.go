// Package billing defines the immutable sale ledger: records and their
// line-item snapshots.
package billing

import (
	"time"

	"github.com/xraph/till/id"
	"github.com/xraph/till/types"
)

// Record is one completed sale. Created exactly once, immutable thereafter,
// never deleted by the engine. Totals are caller-supplied and persisted
// verbatim, atomically with the stock mutation; the engine does not recompute
// them. Invariant: Total == Subtotal - DiscountAmount + GSTAmount.
type Record struct {
	types.Entity
	// ID is the internal storage key.
	ID id.RecordID `json:"id"`
	// Ref is the client-visible identifier, derived from the sale's wall
	// clock in milliseconds. Distinct from ID by design.
	Ref             id.Ref      `json:"ref"`
	Timestamp       time.Time   `json:"timestamp"`
	Subtotal        types.Money `json:"subtotal"`
	DiscountPercent float64     `json:"discount_percent"`
	DiscountAmount  types.Money `json:"discount_amount"`
	GSTRate         float64     `json:"gst_rate"`
	GSTAmount       types.Money `json:"gst_amount"`
	Total           types.Money `json:"total"`
	CreatedBy       string      `json:"created_by"`
	// Items is populated on reads that join the record with its line items.
	Items []Item `json:"items,omitempty"`
}

// Item is a line of a sale, owned by its Record. Product name, price, and
// unit are snapshots taken at sale time — later catalog edits never rewrite
// a historical invoice. The product reference is weak: the product row may
// be gone entirely.
type Item struct {
	ID          id.ItemID   `json:"id"`
	RecordID    id.RecordID `json:"record_id"`
	ProductID   int64       `json:"product_id"`
	ProductName string      `json:"product_name"`
	Quantity    int64       `json:"quantity"`
	Price       types.Money `json:"price"`
	Unit        string      `json:"unit"`
}

// Amount returns the line total (price snapshot × quantity).
func (i Item) Amount() types.Money {
	return i.Price.Multiply(i.Quantity)
}

// SaleLine is one requested line of a sale: a product reference and a
// strictly positive quantity.
type SaleLine struct {
	ProductID int64 `json:"id"`
	Quantity  int64 `json:"quantity"`
}

// SaleRequest is the ephemeral input that produces a Record. It is never
// persisted as its own entity. Totals are computed by the caller and trusted
// after validation.
type SaleRequest struct {
	Lines           []SaleLine  `json:"items"`
	Subtotal        types.Money `json:"subtotal"`
	DiscountPercent float64     `json:"discountPercent"`
	DiscountAmount  types.Money `json:"discountAmount"`
	GSTRate         float64     `json:"gstRate"`
	GSTAmount       types.Money `json:"gstAmount"`
	Total           types.Money `json:"total"`
}

// SaleResponse echoes the caller's line shape merged with the resolved
// snapshot fields, preserving the response format clients already parse.
type SaleResponse struct {
	Record *Record        `json:"record"`
	Lines  []ResponseLine `json:"items"`
}

// ResponseLine is the caller-facing line shape: the requested product id and
// quantity plus the snapshot the engine resolved for it.
type ResponseLine struct {
	ProductID int64       `json:"id"`
	Name      string      `json:"name"`
	Category  string      `json:"category"`
	Stock     int64       `json:"stock"`
	Price     types.Money `json:"price"`
	Unit      string      `json:"unit"`
	SKU       string      `json:"sku"`
	Quantity  int64       `json:"quantity"`
}
