package product

import "context"

// Store is the catalog persistence contract.
type Store interface {
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, productID int64) (*Product, error)
	List(ctx context.Context, opts ListOpts) ([]*Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, productID int64) error
}

// ListOpts narrows a catalog listing.
type ListOpts struct {
	Category string
	// MaxStock, when > 0, returns only products with stock strictly below it
	// (low-stock report).
	MaxStock int64
	Limit    int
	Offset   int
}
