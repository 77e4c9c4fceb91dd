package invoice

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/xraph/till/billing"
	"github.com/xraph/till/id"
	"github.com/xraph/till/types"
)

func TestFilename(t *testing.T) {
	if got := Filename(1700000000000); got != "invoice_1700000000000.pdf" {
		t.Errorf("Filename = %q", got)
	}
}

func TestFromRecord(t *testing.T) {
	ts := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	rec := &billing.Record{
		ID:              id.NewRecordID(),
		Ref:             1700000000000,
		Timestamp:       ts,
		Subtotal:        types.INR(1100),
		DiscountPercent: 10,
		DiscountAmount:  types.INR(110),
		GSTRate:         18,
		GSTAmount:       types.INR(178),
		Total:           types.INR(1168),
		CreatedBy:       "asha",
	}
	items := []billing.Item{
		{ProductName: "Switch Socket", Quantity: 2, Price: types.INR(550), Unit: "pc"},
	}

	doc := FromRecord(rec, items)

	if doc.Ref != 1700000000000 {
		t.Errorf("Ref = %d", doc.Ref)
	}
	if !doc.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v", doc.Timestamp)
	}
	if doc.CreatedBy != "asha" {
		t.Errorf("CreatedBy = %q", doc.CreatedBy)
	}
	if len(doc.Lines) != 1 {
		t.Fatalf("Lines = %d", len(doc.Lines))
	}
	line := doc.Lines[0]
	if line.Name != "Switch Socket" || line.Quantity != 2 || line.Unit != "pc" {
		t.Errorf("line = %+v", line)
	}
	if !line.Amount.Equal(types.INR(1100)) {
		t.Errorf("line amount = %v", line.Amount)
	}
}

func TestFromSnapshotRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	resp := billing.SaleResponse{
		Record: &billing.Record{
			ID:        id.NewRecordID(),
			Ref:       1700000000000,
			Timestamp: ts,
			Subtotal:  types.INR(1100),
			Total:     types.INR(1100),
			CreatedBy: "demo",
		},
		Lines: []billing.ResponseLine{
			{ProductID: 1, Name: "Switch Socket", Quantity: 2, Price: types.INR(550), Unit: "pc"},
		},
	}
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	doc, err := FromSnapshot(data)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if doc.Ref != 1700000000000 {
		t.Errorf("Ref = %d", doc.Ref)
	}
	if !doc.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", doc.Timestamp, ts)
	}
	if len(doc.Lines) != 1 || doc.Lines[0].Name != "Switch Socket" {
		t.Errorf("Lines = %+v", doc.Lines)
	}
	if !doc.Lines[0].Amount.Equal(types.INR(1100)) {
		t.Errorf("Amount = %v", doc.Lines[0].Amount)
	}
}

func TestFromSnapshotBadTimestampFallsBackToNow(t *testing.T) {
	data := []byte(`{
		"record": {"ref": 42, "timestamp": "not-a-time", "created_by": "demo"},
		"items": []
	}`)

	before := time.Now()
	doc, err := FromSnapshot(data)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	after := time.Now()

	if doc.Timestamp.Before(before) || doc.Timestamp.After(after) {
		t.Errorf("Timestamp = %v, want within [%v, %v]", doc.Timestamp, before, after)
	}
}

func TestFromSnapshotRejectsGarbage(t *testing.T) {
	if _, err := FromSnapshot([]byte("{")); err == nil {
		t.Error("expected error for malformed snapshot")
	}
}
