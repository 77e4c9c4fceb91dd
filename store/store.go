package store

import (
	"context"

	"github.com/xraph/till/billing"
	"github.com/xraph/till/id"
	"github.com/xraph/till/product"
)

// Store is the unified storage interface for all Till entities.
// Reads outside a sale go through the Store directly; every mutation that
// must be atomic with the rest of a sale goes through a Tx.
type Store interface {
	// Begin opens the one exclusive transaction a sale runs under.
	Begin(ctx context.Context) (Tx, error)

	// Catalog methods
	CreateProduct(ctx context.Context, p *product.Product) error
	GetProduct(ctx context.Context, productID int64) (*product.Product, error)
	ListProducts(ctx context.Context, opts product.ListOpts) ([]*product.Product, error)
	UpdateProduct(ctx context.Context, p *product.Product) error
	DeleteProduct(ctx context.Context, productID int64) error

	// Billing ledger methods (reads only; writes are transactional)
	GetRecordByRef(ctx context.Context, ref id.Ref) (*billing.Record, error)
	ListRecords(ctx context.Context, opts billing.ListOpts) ([]*billing.Record, error)
	ListItems(ctx context.Context, recordID id.RecordID) ([]billing.Item, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Tx is one sale's transaction scope. Reads through a Tx observe the Tx's
// own uncommitted writes; nothing becomes durable before Commit, and
// Rollback discards everything. Check-then-decrement for every line of a
// sale happens inside one Tx, so concurrent sales of the same product see
// either all or none of each other's effect.
type Tx interface {
	GetProduct(ctx context.Context, productID int64) (*product.Product, error)
	// UpdateProductStock sets the product's stock to newStock. The engine
	// computes newStock from a read inside the same Tx.
	UpdateProductStock(ctx context.Context, productID, newStock int64) error
	CreateRecord(ctx context.Context, rec *billing.Record) error
	CreateItem(ctx context.Context, item *billing.Item) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
