package billing

import (
	"testing"

	"github.com/xraph/till/types"
)

func TestItemAmount(t *testing.T) {
	item := Item{Quantity: 3, Price: types.INR(550)}
	if got := item.Amount(); !got.Equal(types.INR(1650)) {
		t.Errorf("Amount = %v, want ₹16.50", got)
	}
}

func TestRecordTotalInvariant(t *testing.T) {
	rec := Record{
		Subtotal:       types.INR(1100),
		DiscountAmount: types.INR(110),
		GSTAmount:      types.INR(178),
		Total:          types.INR(1168),
	}
	want := rec.Subtotal.Subtract(rec.DiscountAmount).Add(rec.GSTAmount)
	if !rec.Total.Equal(want) {
		t.Errorf("Total = %v, want %v", rec.Total, want)
	}
}
