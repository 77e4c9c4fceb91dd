package memory

import (
	"context"
	"testing"
	"time"

	till "github.com/xraph/till"
	"github.com/xraph/till/billing"
	"github.com/xraph/till/id"
	"github.com/xraph/till/product"
	"github.com/xraph/till/types"
)

func seedProduct(t *testing.T, s *Store, productID, stock int64) {
	t.Helper()
	err := s.CreateProduct(context.Background(), &product.Product{
		Entity: types.NewEntity(),
		ID:     productID,
		Name:   "Switch Socket",
		Stock:  stock,
		Price:  types.INR(550),
		Unit:   "pc",
		SKU:    "SWT001",
	})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
}

func TestCommitAppliesStagedWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedProduct(t, s, 1, 20)

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if err := tx.UpdateProductStock(ctx, 1, 17); err != nil {
		t.Fatalf("UpdateProductStock: %v", err)
	}

	rec := &billing.Record{
		Entity:    types.NewEntity(),
		ID:        id.NewRecordID(),
		Ref:       id.NewRef(time.Now()),
		Timestamp: time.Now(),
		Total:     types.INR(1650),
	}
	if err := tx.CreateRecord(ctx, rec); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}
	if err := tx.CreateItem(ctx, &billing.Item{
		ID:          id.NewItemID(),
		RecordID:    rec.ID,
		ProductID:   1,
		ProductName: "Switch Socket",
		Quantity:    3,
		Price:       types.INR(550),
		Unit:        "pc",
	}); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	// Uncommitted writes are invisible outside the transaction but visible
	// through it.
	outside, err := s.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("GetProduct: %v", err)
	}
	if outside.Stock != 20 {
		t.Errorf("stock leaked before commit: %d", outside.Stock)
	}
	inside, err := tx.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("tx GetProduct: %v", err)
	}
	if inside.Stock != 17 {
		t.Errorf("tx read missed staged stock: %d", inside.Stock)
	}

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	after, _ := s.GetProduct(ctx, 1)
	if after.Stock != 17 {
		t.Errorf("stock after commit: got %d, want 17", after.Stock)
	}
	got, err := s.GetRecordByRef(ctx, rec.Ref)
	if err != nil {
		t.Fatalf("GetRecordByRef: %v", err)
	}
	items, err := s.ListItems(ctx, got.ID)
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 1 || items[0].Quantity != 3 {
		t.Errorf("items after commit: %+v", items)
	}
}

func TestRollbackDiscardsEverything(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedProduct(t, s, 1, 20)

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := tx.UpdateProductStock(ctx, 1, 5); err != nil {
		t.Fatalf("UpdateProductStock: %v", err)
	}
	rec := &billing.Record{ID: id.NewRecordID(), Ref: 12345, Timestamp: time.Now()}
	if err := tx.CreateRecord(ctx, rec); err != nil {
		t.Fatalf("CreateRecord: %v", err)
	}

	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	p, _ := s.GetProduct(ctx, 1)
	if p.Stock != 20 {
		t.Errorf("stock after rollback: got %d, want 20", p.Stock)
	}
	if _, err := s.GetRecordByRef(ctx, 12345); !till.IsNotFound(err) {
		t.Errorf("record survived rollback: %v", err)
	}
}

func TestBeginSerializesTransactions(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedProduct(t, s, 1, 20)

	tx1, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	started := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		close(started)
		tx2, err := s.Begin(ctx)
		if err == nil {
			_ = tx2.Rollback(ctx)
		}
		close(finished)
	}()

	<-started
	select {
	case <-finished:
		t.Fatal("second Begin did not block on first transaction")
	case <-time.After(50 * time.Millisecond):
	}

	_ = tx1.Rollback(ctx)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("second Begin never unblocked")
	}
}

func TestListRecordsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i, ref := range []id.Ref{1000, 2000, 3000} {
		tx, err := s.Begin(ctx)
		if err != nil {
			t.Fatalf("Begin: %v", err)
		}
		err = tx.CreateRecord(ctx, &billing.Record{
			ID:        id.NewRecordID(),
			Ref:       ref,
			Timestamp: time.Now().Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("CreateRecord: %v", err)
		}
		if err := tx.Commit(ctx); err != nil {
			t.Fatalf("Commit: %v", err)
		}
	}

	records, err := s.ListRecords(ctx, billing.ListOpts{})
	if err != nil {
		t.Fatalf("ListRecords: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	if records[0].Ref != 3000 || records[2].Ref != 1000 {
		t.Errorf("order: got %d,%d,%d; want 3000,2000,1000",
			records[0].Ref, records[1].Ref, records[2].Ref)
	}
}

func TestDuplicateSKURejected(t *testing.T) {
	ctx := context.Background()
	s := New()
	seedProduct(t, s, 1, 20)

	err := s.CreateProduct(ctx, &product.Product{ID: 2, Name: "Other", SKU: "SWT001"})
	if err != till.ErrDuplicateSKU {
		t.Errorf("got %v, want ErrDuplicateSKU", err)
	}
}

func TestEmptySKUNotUnique(t *testing.T) {
	ctx := context.Background()
	s := New()

	for i := int64(1); i <= 2; i++ {
		err := s.CreateProduct(ctx, &product.Product{ID: i, Name: "Unlabeled", Stock: 1})
		if err != nil {
			t.Fatalf("CreateProduct %d with empty sku: %v", i, err)
		}
	}
}
