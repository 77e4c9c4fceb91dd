// Package invoice projects sale data into the one normalized payload a
// renderer consumes. The payload is built either from a durable record with
// its line items or from the ephemeral snapshot a sandboxed sale left in
// session storage; the renderer cannot tell the two apart.
package invoice

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/till/billing"
	"github.com/xraph/till/id"
	"github.com/xraph/till/types"
)

// Document is the normalized invoice payload handed to a Renderer.
type Document struct {
	Ref             id.Ref      `json:"ref"`
	Timestamp       time.Time   `json:"timestamp"`
	CreatedBy       string      `json:"created_by"`
	Subtotal        types.Money `json:"subtotal"`
	DiscountPercent float64     `json:"discount_percent"`
	DiscountAmount  types.Money `json:"discount_amount"`
	GSTRate         float64     `json:"gst_rate"`
	GSTAmount       types.Money `json:"gst_amount"`
	Total           types.Money `json:"total"`
	Lines           []Line      `json:"lines"`
}

// Line is one rendered invoice row.
type Line struct {
	Name     string      `json:"name"`
	Quantity int64       `json:"quantity"`
	Price    types.Money `json:"price"`
	Unit     string      `json:"unit"`
	Amount   types.Money `json:"amount"`
}

// Renderer turns a Document into final invoice bytes. Implementations live
// outside this module (PDF, HTML, thermal printer escape codes).
type Renderer interface {
	Render(ctx context.Context, doc *Document) ([]byte, error)
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(ctx context.Context, doc *Document) ([]byte, error)

func (f RendererFunc) Render(ctx context.Context, doc *Document) ([]byte, error) {
	return f(ctx, doc)
}

// Filename is the download name for an invoice, derived from the
// client-visible ref.
func Filename(ref id.Ref) string {
	return fmt.Sprintf("invoice_%d.pdf", int64(ref))
}

// FromRecord builds a Document from a durable record and its item snapshots.
func FromRecord(rec *billing.Record, items []billing.Item) *Document {
	lines := make([]Line, len(items))
	for i, item := range items {
		lines[i] = Line{
			Name:     item.ProductName,
			Quantity: item.Quantity,
			Price:    item.Price,
			Unit:     item.Unit,
			Amount:   item.Amount(),
		}
	}
	return &Document{
		Ref:             rec.Ref,
		Timestamp:       rec.Timestamp,
		CreatedBy:       rec.CreatedBy,
		Subtotal:        rec.Subtotal,
		DiscountPercent: rec.DiscountPercent,
		DiscountAmount:  rec.DiscountAmount,
		GSTRate:         rec.GSTRate,
		GSTAmount:       rec.GSTAmount,
		Total:           rec.Total,
		Lines:           lines,
	}
}

// snapshot mirrors the JSON a sandboxed sale leaves in session storage: the
// serialized sale response, with the timestamp downgraded to text.
type snapshot struct {
	Record struct {
		Ref             id.Ref      `json:"ref"`
		Timestamp       string      `json:"timestamp"`
		Subtotal        types.Money `json:"subtotal"`
		DiscountPercent float64     `json:"discount_percent"`
		DiscountAmount  types.Money `json:"discount_amount"`
		GSTRate         float64     `json:"gst_rate"`
		GSTAmount       types.Money `json:"gst_amount"`
		Total           types.Money `json:"total"`
		CreatedBy       string      `json:"created_by"`
	} `json:"record"`
	Items []struct {
		Name     string      `json:"name"`
		Quantity int64       `json:"quantity"`
		Price    types.Money `json:"price"`
		Unit     string      `json:"unit"`
	} `json:"items"`
}

// FromSnapshot rebuilds a Document from a session-cached sale snapshot. A
// timestamp that fails to parse is replaced with the current time; an invoice
// is never unrenderable over a timestamp format mismatch.
func FromSnapshot(data []byte) (*Document, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invoice: decode snapshot: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, snap.Record.Timestamp)
	if err != nil {
		ts = time.Now()
	}

	lines := make([]Line, len(snap.Items))
	for i, item := range snap.Items {
		lines[i] = Line{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
			Unit:     item.Unit,
			Amount:   item.Price.Multiply(item.Quantity),
		}
	}

	return &Document{
		Ref:             snap.Record.Ref,
		Timestamp:       ts,
		CreatedBy:       snap.Record.CreatedBy,
		Subtotal:        snap.Record.Subtotal,
		DiscountPercent: snap.Record.DiscountPercent,
		DiscountAmount:  snap.Record.DiscountAmount,
		GSTRate:         snap.Record.GSTRate,
		GSTAmount:       snap.Record.GSTAmount,
		Total:           snap.Record.Total,
		Lines:           lines,
	}, nil
}
