// Package sandbox lets designated demo actors exercise the full sale path
// without touching durable state. The policy decorates a store.Store: for a
// request whose context actor is sandboxed, Begin hands back a transaction
// whose Commit discards everything instead of flushing it. The engine itself
// carries no actor-identity branches.
package sandbox

import (
	"context"

	till "github.com/xraph/till"
	"github.com/xraph/till/billing"
	"github.com/xraph/till/id"
	"github.com/xraph/till/product"
	"github.com/xraph/till/store"
)

// compile-time interface check
var _ store.Store = (*Policy)(nil)

// DefaultRole is sandboxed when no actors or roles are configured.
const DefaultRole = "demo"

// Policy wraps a store and diverts sandboxed actors' commits into discards.
type Policy struct {
	inner  store.Store
	actors map[string]bool
	roles  map[string]bool
}

// Option configures a Policy.
type Option func(*Policy)

// WithActors marks specific actor IDs as sandboxed.
func WithActors(ids ...string) Option {
	return func(p *Policy) {
		for _, id := range ids {
			p.actors[id] = true
		}
	}
}

// WithRoles marks whole roles as sandboxed.
func WithRoles(roles ...string) Option {
	return func(p *Policy) {
		for _, role := range roles {
			p.roles[role] = true
		}
	}
}

// Wrap decorates inner with sandbox behavior. With no options, actors with
// the DefaultRole role are sandboxed.
func Wrap(inner store.Store, opts ...Option) *Policy {
	p := &Policy{
		inner:  inner,
		actors: make(map[string]bool),
		roles:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	if len(p.actors) == 0 && len(p.roles) == 0 {
		p.roles[DefaultRole] = true
	}
	return p
}

// Sandboxed reports whether the context's actor runs in sandbox mode.
func (p *Policy) Sandboxed(ctx context.Context) bool {
	a, ok := till.ActorFromContext(ctx)
	if !ok {
		return false
	}
	return p.actors[a.ID] || p.roles[a.Role]
}

// Begin opens a real transaction for regular actors and a discarding one for
// sandboxed actors. Either way the caller gets working reads of its own
// uncommitted writes; only durability differs.
func (p *Policy) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := p.inner.Begin(ctx)
	if err != nil {
		return nil, err
	}
	if p.Sandboxed(ctx) {
		return &discardTx{inner: tx}, nil
	}
	return tx, nil
}

// ==================== Pass-through reads and catalog ====================

func (p *Policy) CreateProduct(ctx context.Context, pr *product.Product) error {
	return p.inner.CreateProduct(ctx, pr)
}

func (p *Policy) GetProduct(ctx context.Context, productID int64) (*product.Product, error) {
	return p.inner.GetProduct(ctx, productID)
}

func (p *Policy) ListProducts(ctx context.Context, opts product.ListOpts) ([]*product.Product, error) {
	return p.inner.ListProducts(ctx, opts)
}

func (p *Policy) UpdateProduct(ctx context.Context, pr *product.Product) error {
	return p.inner.UpdateProduct(ctx, pr)
}

func (p *Policy) DeleteProduct(ctx context.Context, productID int64) error {
	return p.inner.DeleteProduct(ctx, productID)
}

func (p *Policy) GetRecordByRef(ctx context.Context, ref id.Ref) (*billing.Record, error) {
	return p.inner.GetRecordByRef(ctx, ref)
}

func (p *Policy) ListRecords(ctx context.Context, opts billing.ListOpts) ([]*billing.Record, error) {
	return p.inner.ListRecords(ctx, opts)
}

func (p *Policy) ListItems(ctx context.Context, recordID id.RecordID) ([]billing.Item, error) {
	return p.inner.ListItems(ctx, recordID)
}

func (p *Policy) Migrate(ctx context.Context) error { return p.inner.Migrate(ctx) }
func (p *Policy) Ping(ctx context.Context) error    { return p.inner.Ping(ctx) }
func (p *Policy) Close() error                      { return p.inner.Close() }

// ==================== Discarding transaction ====================

// discardTx delegates every operation to the real transaction but turns
// Commit into a rollback. The sale logic runs unchanged; nothing survives.
type discardTx struct {
	inner store.Tx
}

func (t *discardTx) GetProduct(ctx context.Context, productID int64) (*product.Product, error) {
	return t.inner.GetProduct(ctx, productID)
}

func (t *discardTx) UpdateProductStock(ctx context.Context, productID, newStock int64) error {
	return t.inner.UpdateProductStock(ctx, productID, newStock)
}

func (t *discardTx) CreateRecord(ctx context.Context, rec *billing.Record) error {
	return t.inner.CreateRecord(ctx, rec)
}

func (t *discardTx) CreateItem(ctx context.Context, item *billing.Item) error {
	return t.inner.CreateItem(ctx, item)
}

func (t *discardTx) Commit(ctx context.Context) error {
	return t.inner.Rollback(ctx)
}

func (t *discardTx) Rollback(ctx context.Context) error {
	return t.inner.Rollback(ctx)
}
