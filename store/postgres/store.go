// Package postgres implements store.Store on PostgreSQL via database/sql and
// lib/pq. Sale transactions take row locks on the products they touch, so
// concurrent sales of the same product serialize on the database instead of
// in process.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	till "github.com/xraph/till"
	"github.com/xraph/till/billing"
	"github.com/xraph/till/id"
	"github.com/xraph/till/product"
	tillstore "github.com/xraph/till/store"
	"github.com/xraph/till/types"
)

// compile-time interface check
var _ tillstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL using a lib/pq connection string and verifies
// the connection. Migrate must still be called before first use.
func Open(connStr string) (*Store, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("till/postgres: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("till/postgres: ping: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return New(db), nil
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database handle for direct access.
func (s *Store) DB() *sql.DB { return s.db }

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if err := applyMigrations(ctx, s.db); err != nil {
		return fmt.Errorf("till/postgres: %w: %v", till.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Catalog ====================

func (s *Store) CreateProduct(ctx context.Context, p *product.Product) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO till_products
			(id, name, category, stock, price_cents, price_currency, unit, sku, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Name, p.Category, p.Stock,
		p.Price.Amount, p.Price.Currency, p.Unit, p.SKU,
		p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if strings.Contains(pqErr.Constraint, "sku") {
				return till.ErrDuplicateSKU
			}
			return till.ErrAlreadyExists
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, productID int64) (*product.Product, error) {
	row := s.db.QueryRowContext(ctx,
		productSelect+` WHERE id = $1`, productID)
	return scanProductRow(row)
}

func (s *Store) ListProducts(ctx context.Context, opts product.ListOpts) ([]*product.Product, error) {
	query := productSelect + ` WHERE 1=1`
	var args []any
	if opts.Category != "" {
		args = append(args, opts.Category)
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	if opts.MaxStock > 0 {
		args = append(args, opts.MaxStock)
		query += fmt.Sprintf(` AND stock < $%d`, len(args))
	}
	query += ` ORDER BY id ASC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var result []*product.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) UpdateProduct(ctx context.Context, p *product.Product) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE till_products
		SET name = $1, category = $2, stock = $3, price_cents = $4, price_currency = $5,
		    unit = $6, sku = $7, updated_at = NOW()
		WHERE id = $8`,
		p.Name, p.Category, p.Stock, p.Price.Amount, p.Price.Currency,
		p.Unit, p.SKU, p.ID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return till.ErrDuplicateSKU
		}
		return fmt.Errorf("update product: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return till.ErrProductNotFound
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, productID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM till_products WHERE id = $1`, productID)
	return err
}

// ==================== Billing ledger ====================

func (s *Store) GetRecordByRef(ctx context.Context, ref id.Ref) (*billing.Record, error) {
	// Refs are wall-clock derived and can collide; the newest record wins.
	row := s.db.QueryRowContext(ctx,
		recordSelect+` WHERE ref = $1 ORDER BY id DESC LIMIT 1`, int64(ref))
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, till.ErrRecordNotFound
		}
		return nil, err
	}
	return rec, nil
}

func (s *Store) ListRecords(ctx context.Context, opts billing.ListOpts) ([]*billing.Record, error) {
	query := recordSelect + ` WHERE 1=1`
	var args []any
	if opts.CreatedBy != "" {
		args = append(args, opts.CreatedBy)
		query += fmt.Sprintf(` AND created_by = $%d`, len(args))
	}
	query += ` ORDER BY timestamp DESC, id DESC`
	if opts.Limit > 0 {
		args = append(args, opts.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}
	if opts.Offset > 0 {
		args = append(args, opts.Offset)
		query += fmt.Sprintf(` OFFSET $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var result []*billing.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (s *Store) ListItems(ctx context.Context, recordID id.RecordID) ([]billing.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, record_id, product_id, product_name, quantity, price_cents, price_currency, unit
		FROM till_billing_items
		WHERE record_id = $1
		ORDER BY id ASC`,
		recordID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var result []billing.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

// ==================== Transactions ====================

// Tx wraps a *sql.Tx. Product reads lock the row (FOR UPDATE), so the
// check-then-decrement sequence is safe against concurrent sales.
type Tx struct {
	tx *sql.Tx
}

func (s *Store) Begin(ctx context.Context) (tillstore.Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("till/postgres: begin: %w", err)
	}
	return &Tx{tx: tx}, nil
}

func (t *Tx) GetProduct(ctx context.Context, productID int64) (*product.Product, error) {
	row := t.tx.QueryRowContext(ctx,
		productSelect+` WHERE id = $1 FOR UPDATE`, productID)
	return scanProductRow(row)
}

func (t *Tx) UpdateProductStock(ctx context.Context, productID, newStock int64) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE till_products SET stock = $1, updated_at = NOW() WHERE id = $2`,
		newStock, productID,
	)
	if err != nil {
		return fmt.Errorf("update stock: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return till.ErrProductNotFound
	}
	return nil
}

func (t *Tx) CreateRecord(ctx context.Context, rec *billing.Record) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO till_billing_records
			(id, ref, timestamp,
			 subtotal_cents, subtotal_currency,
			 discount_percent, discount_cents, discount_currency,
			 gst_rate, gst_cents, gst_currency,
			 total_cents, total_currency,
			 created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		rec.ID.String(), int64(rec.Ref), rec.Timestamp.UTC(),
		rec.Subtotal.Amount, rec.Subtotal.Currency,
		rec.DiscountPercent, rec.DiscountAmount.Amount, rec.DiscountAmount.Currency,
		rec.GSTRate, rec.GSTAmount.Amount, rec.GSTAmount.Currency,
		rec.Total.Amount, rec.Total.Currency,
		rec.CreatedBy, rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (t *Tx) CreateItem(ctx context.Context, item *billing.Item) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO till_billing_items
			(id, record_id, product_id, product_name, quantity, price_cents, price_currency, unit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID.String(), item.RecordID.String(), item.ProductID,
		item.ProductName, item.Quantity,
		item.Price.Amount, item.Price.Currency, item.Unit,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("till/postgres: %w: %v", till.ErrTransactionFailed, err)
	}
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// ==================== Row scanning ====================

const productSelect = `
	SELECT id, name, category, stock, price_cents, price_currency, unit, sku, created_at, updated_at
	FROM till_products`

const recordSelect = `
	SELECT id, ref, timestamp,
	       subtotal_cents, subtotal_currency,
	       discount_percent, discount_cents, discount_currency,
	       gst_rate, gst_cents, gst_currency,
	       total_cents, total_currency,
	       created_by, created_at, updated_at
	FROM till_billing_records`

type scanner interface {
	Scan(dest ...any) error
}

func scanProductRow(row *sql.Row) (*product.Product, error) {
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, till.ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func scanProduct(row scanner) (*product.Product, error) {
	var (
		p             product.Product
		priceCents    int64
		priceCurrency string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Stock,
		&priceCents, &priceCurrency, &p.Unit, &p.SKU,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Price = types.Money{Amount: priceCents, Currency: priceCurrency}
	return &p, nil
}

func scanRecord(row scanner) (*billing.Record, error) {
	var (
		rec                  billing.Record
		recordID             string
		ref                  int64
		subCents, discCents  int64
		gstCents, totalCents int64
		subCur, discCur      string
		gstCur, totalCur     string
	)
	err := row.Scan(&recordID, &ref, &rec.Timestamp,
		&subCents, &subCur,
		&rec.DiscountPercent, &discCents, &discCur,
		&rec.GSTRate, &gstCents, &gstCur,
		&totalCents, &totalCur,
		&rec.CreatedBy, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.ID, err = id.ParseRecordID(recordID)
	if err != nil {
		return nil, fmt.Errorf("till/postgres: corrupt record id %q: %w", recordID, err)
	}
	rec.Ref = id.Ref(ref)
	rec.Subtotal = types.Money{Amount: subCents, Currency: subCur}
	rec.DiscountAmount = types.Money{Amount: discCents, Currency: discCur}
	rec.GSTAmount = types.Money{Amount: gstCents, Currency: gstCur}
	rec.Total = types.Money{Amount: totalCents, Currency: totalCur}
	return &rec, nil
}

func scanItem(row scanner) (billing.Item, error) {
	var (
		item             billing.Item
		itemID, recordID string
		priceCents       int64
		priceCurrency    string
	)
	err := row.Scan(&itemID, &recordID, &item.ProductID, &item.ProductName,
		&item.Quantity, &priceCents, &priceCurrency, &item.Unit)
	if err != nil {
		return item, err
	}
	item.ID, err = id.ParseItemID(itemID)
	if err != nil {
		return item, fmt.Errorf("till/postgres: corrupt item id %q: %w", itemID, err)
	}
	item.RecordID, err = id.ParseRecordID(recordID)
	if err != nil {
		return item, fmt.Errorf("till/postgres: corrupt record id %q: %w", recordID, err)
	}
	item.Price = types.Money{Amount: priceCents, Currency: priceCurrency}
	return item, nil
}
