package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// migration is one named, ordered schema step. Applied steps are recorded in
// till_migrations and never re-run.
type migration struct {
	Name string
	SQL  string
}

// migrations run in order; append only, never reorder or edit an applied step.
var migrations = []migration{
	{
		Name: "create_till_products",
		SQL: `
CREATE TABLE IF NOT EXISTS till_products (
    id             INTEGER PRIMARY KEY,
    name           TEXT NOT NULL DEFAULT '',
    category       TEXT NOT NULL DEFAULT '',
    stock          INTEGER NOT NULL DEFAULT 0,
    price_cents    INTEGER NOT NULL DEFAULT 0,
    price_currency TEXT NOT NULL DEFAULT '',
    unit           TEXT NOT NULL DEFAULT 'pc',
    sku            TEXT NOT NULL DEFAULT '',
    created_at     INTEGER NOT NULL DEFAULT 0,
    updated_at     INTEGER NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_till_products_sku ON till_products (sku) WHERE sku != '';
CREATE INDEX IF NOT EXISTS idx_till_products_category ON till_products (category);
CREATE INDEX IF NOT EXISTS idx_till_products_stock ON till_products (stock);
`,
	},
	{
		Name: "create_till_billing_records",
		SQL: `
CREATE TABLE IF NOT EXISTS till_billing_records (
    id                TEXT PRIMARY KEY,
    ref               INTEGER NOT NULL,
    timestamp         INTEGER NOT NULL DEFAULT 0,
    subtotal_cents    INTEGER NOT NULL DEFAULT 0,
    subtotal_currency TEXT NOT NULL DEFAULT '',
    discount_percent  REAL NOT NULL DEFAULT 0,
    discount_cents    INTEGER NOT NULL DEFAULT 0,
    discount_currency TEXT NOT NULL DEFAULT '',
    gst_rate          REAL NOT NULL DEFAULT 0,
    gst_cents         INTEGER NOT NULL DEFAULT 0,
    gst_currency      TEXT NOT NULL DEFAULT '',
    total_cents       INTEGER NOT NULL DEFAULT 0,
    total_currency    TEXT NOT NULL DEFAULT '',
    created_by        TEXT NOT NULL DEFAULT '',
    created_at        INTEGER NOT NULL DEFAULT 0,
    updated_at        INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_till_records_ref ON till_billing_records (ref);
CREATE INDEX IF NOT EXISTS idx_till_records_created_by ON till_billing_records (created_by);
`,
	},
	{
		Name: "create_till_billing_items",
		SQL: `
CREATE TABLE IF NOT EXISTS till_billing_items (
    id             TEXT PRIMARY KEY,
    record_id      TEXT NOT NULL,
    product_id     INTEGER NOT NULL DEFAULT 0,
    product_name   TEXT NOT NULL DEFAULT '',
    quantity       INTEGER NOT NULL DEFAULT 0,
    price_cents    INTEGER NOT NULL DEFAULT 0,
    price_currency TEXT NOT NULL DEFAULT '',
    unit           TEXT NOT NULL DEFAULT 'pc'
);

CREATE INDEX IF NOT EXISTS idx_till_items_record ON till_billing_items (record_id);
`,
	},
}

// applyMigrations runs every unapplied migration inside its own transaction.
func applyMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS till_migrations (
    name       TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`)
	if err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, m := range migrations {
		var found int
		err := db.QueryRowContext(ctx,
			`SELECT 1 FROM till_migrations WHERE name = ?`, m.Name).Scan(&found)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check migration %s: %w", m.Name, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO till_migrations (name, applied_at) VALUES (?, ?)`,
			m.Name, time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.Name, err)
		}
	}
	return nil
}
