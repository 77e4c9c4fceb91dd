// Package memory provides an in-memory Store for tests and demos.
package memory

import (
	"context"
	"sort"
	"sync"

	till "github.com/xraph/till"
	"github.com/xraph/till/billing"
	"github.com/xraph/till/id"
	"github.com/xraph/till/product"
	"github.com/xraph/till/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store keeps all entities in process memory. Transactions stage their
// writes in an overlay and apply them on Commit; Begin is exclusive, so at
// most one transaction is in flight at a time.
type Store struct {
	mu sync.RWMutex

	// txMu serializes transactions: held from Begin until Commit/Rollback.
	txMu sync.Mutex

	products map[int64]*product.Product
	// records is kept newest-first; commits prepend.
	records []*billing.Record
	items   map[string][]billing.Item // keyed by record storage ID

	closed bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		products: make(map[int64]*product.Product),
		items:    make(map[string][]billing.Item),
	}
}

// ==================== Catalog ====================

func (s *Store) CreateProduct(_ context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.ID]; exists {
		return till.ErrAlreadyExists
	}
	// Empty SKUs are exempt from uniqueness, matching the partial indexes
	// the durable backends build.
	if p.SKU != "" {
		for _, existing := range s.products {
			if existing.SKU == p.SKU {
				return till.ErrDuplicateSKU
			}
		}
	}

	clone := *p
	s.products[p.ID] = &clone
	return nil
}

func (s *Store) GetProduct(_ context.Context, productID int64) (*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.products[productID]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, till.ErrProductNotFound
}

func (s *Store) ListProducts(_ context.Context, opts product.ListOpts) ([]*product.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*product.Product, 0, len(s.products))
	for _, p := range s.products {
		if opts.Category != "" && p.Category != opts.Category {
			continue
		}
		if opts.MaxStock > 0 && p.Stock >= opts.MaxStock {
			continue
		}
		clone := *p
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	return page(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateProduct(_ context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[p.ID]; !exists {
		return till.ErrProductNotFound
	}
	clone := *p
	s.products[p.ID] = &clone
	return nil
}

func (s *Store) DeleteProduct(_ context.Context, productID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.products, productID)
	return nil
}

// ==================== Billing ledger ====================

func (s *Store) GetRecordByRef(_ context.Context, ref id.Ref) (*billing.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// records is newest-first, so a Ref collision resolves to the newest.
	for _, rec := range s.records {
		if rec.Ref == ref {
			clone := *rec
			return &clone, nil
		}
	}
	return nil, till.ErrRecordNotFound
}

func (s *Store) ListRecords(_ context.Context, opts billing.ListOpts) ([]*billing.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*billing.Record, 0, len(s.records))
	for _, rec := range s.records {
		if opts.CreatedBy != "" && rec.CreatedBy != opts.CreatedBy {
			continue
		}
		clone := *rec
		result = append(result, &clone)
	}

	return page(result, opts.Offset, opts.Limit), nil
}

func (s *Store) ListItems(_ context.Context, recordID id.RecordID) ([]billing.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.items[recordID.String()]
	result := make([]billing.Item, len(items))
	copy(result, items)
	return result, nil
}

// ==================== Transactions ====================

// Tx stages writes in an overlay over the parent store.
type Tx struct {
	s    *Store
	done bool

	stagedStock   map[int64]int64
	stagedRecords []*billing.Record
	stagedItems   map[string][]billing.Item
}

func (s *Store) Begin(_ context.Context) (store.Tx, error) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil, till.ErrStoreClosed
	}

	s.txMu.Lock()
	return &Tx{
		s:           s,
		stagedStock: make(map[int64]int64),
		stagedItems: make(map[string][]billing.Item),
	}, nil
}

func (t *Tx) GetProduct(ctx context.Context, productID int64) (*product.Product, error) {
	p, err := t.s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	// Reads observe this transaction's own writes.
	if staged, ok := t.stagedStock[productID]; ok {
		p.Stock = staged
	}
	return p, nil
}

func (t *Tx) UpdateProductStock(ctx context.Context, productID, newStock int64) error {
	if _, err := t.s.GetProduct(ctx, productID); err != nil {
		return err
	}
	t.stagedStock[productID] = newStock
	return nil
}

func (t *Tx) CreateRecord(_ context.Context, rec *billing.Record) error {
	clone := *rec
	t.stagedRecords = append(t.stagedRecords, &clone)
	return nil
}

func (t *Tx) CreateItem(_ context.Context, item *billing.Item) error {
	key := item.RecordID.String()
	t.stagedItems[key] = append(t.stagedItems[key], *item)
	return nil
}

func (t *Tx) Commit(_ context.Context) error {
	if t.done {
		return till.ErrTransactionFailed
	}
	t.done = true
	defer t.s.txMu.Unlock()

	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for productID, stock := range t.stagedStock {
		if p, ok := t.s.products[productID]; ok {
			p.Stock = stock
			p.Touch()
		}
	}
	// Prepend so listings stay newest-first.
	for _, rec := range t.stagedRecords {
		t.s.records = append([]*billing.Record{rec}, t.s.records...)
	}
	for key, items := range t.stagedItems {
		t.s.items[key] = append(t.s.items[key], items...)
	}
	return nil
}

func (t *Tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.txMu.Unlock()

	t.stagedStock = nil
	t.stagedRecords = nil
	t.stagedItems = nil
	return nil
}

// ==================== Store management ====================

func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return till.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// page applies offset/limit the way every list method does.
func page[T any](in []T, offset, limit int) []T {
	start := offset
	if start > len(in) {
		start = len(in)
	}
	end := start + limit
	if limit == 0 || end > len(in) {
		end = len(in)
	}
	return in[start:end]
}
