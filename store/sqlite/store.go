// Package sqlite implements store.Store on SQLite via database/sql and the
// pure-Go modernc.org/sqlite driver. Suited to single-node deployments; the
// driver serializes writers, which matches the engine's one-sale-at-a-time
// transaction model.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	till "github.com/xraph/till"
	"github.com/xraph/till/billing"
	"github.com/xraph/till/id"
	"github.com/xraph/till/product"
	tillstore "github.com/xraph/till/store"
	"github.com/xraph/till/types"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// compile-time interface check
var _ tillstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path and returns a
// store around it. Migrate must still be called before first use.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("till/sqlite: storage path is required")
	}
	dsn := path + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("till/sqlite: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("till/sqlite: ping: %w", err)
	}
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
		return fmt.Errorf("till/sqlite: %w: %v", till.ErrMigrationFailed, err)
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Category, p.Stock,
		p.Price.Amount, p.Price.Currency, p.Unit, p.SKU,
		toMillis(p.CreatedAt), toMillis(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			if strings.Contains(strings.ToLower(err.Error()), "sku") {
				return till.ErrDuplicateSKU
			}
			return till.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, productID int64) (*product.Product, error) {
	row := s.db.QueryRowContext(ctx,
		productSelect+` WHERE id = ?`, productID)
	p, err := scanProduct(row)
	if err != nil {
		if isNoRows(err) {
			return nil, till.ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *Store) ListProducts(ctx context.Context, opts product.ListOpts) ([]*product.Product, error) {
	query := productSelect + ` WHERE 1=1`
	var args []any
	if opts.Category != "" {
		query += ` AND category = ?`
		args = append(args, opts.Category)
	}
	if opts.MaxStock > 0 {
		query += ` AND stock < ?`
		args = append(args, opts.MaxStock)
	}
	query += ` ORDER BY id ASC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
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
		SET name = ?, category = ?, stock = ?, price_cents = ?, price_currency = ?,
		    unit = ?, sku = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, p.Category, p.Stock, p.Price.Amount, p.Price.Currency,
		p.Unit, p.SKU, time.Now().UTC().UnixMilli(), p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return till.ErrDuplicateSKU
		}
		return err
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
		`DELETE FROM till_products WHERE id = ?`, productID)
	return err
}

// ==================== Billing ledger ====================

func (s *Store) GetRecordByRef(ctx context.Context, ref id.Ref) (*billing.Record, error) {
	// Refs are wall-clock derived and can collide; the newest record wins.
	// Record IDs are K-sortable, so id DESC orders by creation time.
	row := s.db.QueryRowContext(ctx,
		recordSelect+` WHERE ref = ? ORDER BY id DESC LIMIT 1`, int64(ref))
	rec, err := scanRecord(row)
	if err != nil {
		if isNoRows(err) {
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
		query += ` AND created_by = ?`
		args = append(args, opts.CreatedBy)
	}
	query += ` ORDER BY timestamp DESC, id DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
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
		WHERE record_id = ?
		ORDER BY id ASC`,
		recordID.String(),
	)
	if err != nil {
		return nil, err
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

// Tx wraps a *sql.Tx; reads through it see the transaction's own writes.
type Tx struct {
	tx *sql.Tx
}

func (s *Store) Begin(ctx context.Context) (tillstore.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("till/sqlite: begin: %w", err)
	}
	return &Tx{tx: tx}, nil
}

func (t *Tx) GetProduct(ctx context.Context, productID int64) (*product.Product, error) {
	row := t.tx.QueryRowContext(ctx,
		productSelect+` WHERE id = ?`, productID)
	p, err := scanProduct(row)
	if err != nil {
		if isNoRows(err) {
			return nil, till.ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (t *Tx) UpdateProductStock(ctx context.Context, productID, newStock int64) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE till_products SET stock = ?, updated_at = ? WHERE id = ?`,
		newStock, time.Now().UTC().UnixMilli(), productID,
	)
	if err != nil {
		return err
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
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), int64(rec.Ref), toMillis(rec.Timestamp),
		rec.Subtotal.Amount, rec.Subtotal.Currency,
		rec.DiscountPercent, rec.DiscountAmount.Amount, rec.DiscountAmount.Currency,
		rec.GSTRate, rec.GSTAmount.Amount, rec.GSTAmount.Currency,
		rec.Total.Amount, rec.Total.Currency,
		rec.CreatedBy, toMillis(rec.CreatedAt), toMillis(rec.UpdatedAt),
	)
	return err
}

func (t *Tx) CreateItem(ctx context.Context, item *billing.Item) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO till_billing_items
			(id, record_id, product_id, product_name, quantity, price_cents, price_currency, unit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID.String(), item.RecordID.String(), item.ProductID,
		item.ProductName, item.Quantity,
		item.Price.Amount, item.Price.Currency, item.Unit,
	)
	return err
}

func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("till/sqlite: %w: %v", till.ErrTransactionFailed, err)
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

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (*product.Product, error) {
	var (
		p                    product.Product
		priceCents           int64
		priceCurrency        string
		createdAt, updatedAt int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Stock,
		&priceCents, &priceCurrency, &p.Unit, &p.SKU,
		&createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.Price = types.Money{Amount: priceCents, Currency: priceCurrency}
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = fromMillis(updatedAt)
	return &p, nil
}

func scanRecord(row scanner) (*billing.Record, error) {
	var (
		rec                          billing.Record
		recordID                     string
		ref                          int64
		timestamp                    int64
		subCents, discCents          int64
		gstCents, totalCents         int64
		subCur, discCur              string
		gstCur, totalCur             string
		createdAt, updatedAt         int64
	)
	err := row.Scan(&recordID, &ref, &timestamp,
		&subCents, &subCur,
		&rec.DiscountPercent, &discCents, &discCur,
		&rec.GSTRate, &gstCents, &gstCur,
		&totalCents, &totalCur,
		&rec.CreatedBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	rec.ID, err = id.ParseRecordID(recordID)
	if err != nil {
		return nil, fmt.Errorf("till/sqlite: corrupt record id %q: %w", recordID, err)
	}
	rec.Ref = id.Ref(ref)
	rec.Timestamp = fromMillis(timestamp)
	rec.Subtotal = types.Money{Amount: subCents, Currency: subCur}
	rec.DiscountAmount = types.Money{Amount: discCents, Currency: discCur}
	rec.GSTAmount = types.Money{Amount: gstCents, Currency: gstCur}
	rec.Total = types.Money{Amount: totalCents, Currency: totalCur}
	rec.CreatedAt = fromMillis(createdAt)
	rec.UpdatedAt = fromMillis(updatedAt)
	return &rec, nil
}

func scanItem(row scanner) (billing.Item, error) {
	var (
		item                  billing.Item
		itemID, recordID      string
		priceCents            int64
		priceCurrency         string
	)
	err := row.Scan(&itemID, &recordID, &item.ProductID, &item.ProductName,
		&item.Quantity, &priceCents, &priceCurrency, &item.Unit)
	if err != nil {
		return item, err
	}
	item.ID, err = id.ParseItemID(itemID)
	if err != nil {
		return item, fmt.Errorf("till/sqlite: corrupt item id %q: %w", itemID, err)
	}
	item.RecordID, err = id.ParseRecordID(recordID)
	if err != nil {
		return item, fmt.Errorf("till/sqlite: corrupt record id %q: %w", recordID, err)
	}
	item.Price = types.Money{Amount: priceCents, Currency: priceCurrency}
	return item, nil
}

// ==================== Helpers ====================

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
