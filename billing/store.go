package billing

import (
	"context"

	"github.com/xraph/till/id"
)

// Store is the billing ledger persistence contract. Records are append-only.
type Store interface {
	CreateRecord(ctx context.Context, rec *Record) error
	GetRecordByRef(ctx context.Context, ref id.Ref) (*Record, error)
	// ListRecords returns records ordered newest-first by sale timestamp.
	ListRecords(ctx context.Context, opts ListOpts) ([]*Record, error)
	CreateItem(ctx context.Context, item *Item) error
	ListItems(ctx context.Context, recordID id.RecordID) ([]Item, error)
}

// ListOpts narrows a ledger listing.
type ListOpts struct {
	CreatedBy string
	Limit     int
	Offset    int
}
