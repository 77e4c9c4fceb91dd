package mongo

import (
	"fmt"
	"time"

	"github.com/xraph/till/billing"
	"github.com/xraph/till/id"
	"github.com/xraph/till/product"
	"github.com/xraph/till/types"
)

// ==================== Product models ====================

type productModel struct {
	ID            int64     `bson:"_id"`
	Name          string    `bson:"name"`
	Category      string    `bson:"category"`
	Stock         int64     `bson:"stock"`
	PriceCents    int64     `bson:"price_cents"`
	PriceCurrency string    `bson:"price_currency"`
	Unit          string    `bson:"unit"`
	SKU           string    `bson:"sku"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func toProductModel(p *product.Product) *productModel {
	return &productModel{
		ID:            p.ID,
		Name:          p.Name,
		Category:      p.Category,
		Stock:         p.Stock,
		PriceCents:    p.Price.Amount,
		PriceCurrency: p.Price.Currency,
		Unit:          p.Unit,
		SKU:           p.SKU,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func fromProductModel(m *productModel) *product.Product {
	p := &product.Product{
		ID:       m.ID,
		Name:     m.Name,
		Category: m.Category,
		Stock:    m.Stock,
		Price:    types.Money{Amount: m.PriceCents, Currency: m.PriceCurrency},
		Unit:     m.Unit,
		SKU:      m.SKU,
	}
	p.CreatedAt = m.CreatedAt
	p.UpdatedAt = m.UpdatedAt
	return p
}

// ==================== Billing models ====================

type recordModel struct {
	ID               string    `bson:"_id"`
	Ref              int64     `bson:"ref"`
	Timestamp        time.Time `bson:"timestamp"`
	SubtotalCents    int64     `bson:"subtotal_cents"`
	SubtotalCurrency string    `bson:"subtotal_currency"`
	DiscountPercent  float64   `bson:"discount_percent"`
	DiscountCents    int64     `bson:"discount_cents"`
	DiscountCurrency string    `bson:"discount_currency"`
	GSTRate          float64   `bson:"gst_rate"`
	GSTCents         int64     `bson:"gst_cents"`
	GSTCurrency      string    `bson:"gst_currency"`
	TotalCents       int64     `bson:"total_cents"`
	TotalCurrency    string    `bson:"total_currency"`
	CreatedBy        string    `bson:"created_by"`
	CreatedAt        time.Time `bson:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"`
}

func toRecordModel(rec *billing.Record) *recordModel {
	return &recordModel{
		ID:               rec.ID.String(),
		Ref:              int64(rec.Ref),
		Timestamp:        rec.Timestamp,
		SubtotalCents:    rec.Subtotal.Amount,
		SubtotalCurrency: rec.Subtotal.Currency,
		DiscountPercent:  rec.DiscountPercent,
		DiscountCents:    rec.DiscountAmount.Amount,
		DiscountCurrency: rec.DiscountAmount.Currency,
		GSTRate:          rec.GSTRate,
		GSTCents:         rec.GSTAmount.Amount,
		GSTCurrency:      rec.GSTAmount.Currency,
		TotalCents:       rec.Total.Amount,
		TotalCurrency:    rec.Total.Currency,
		CreatedBy:        rec.CreatedBy,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
}

func fromRecordModel(m *recordModel) (*billing.Record, error) {
	recordID, err := id.ParseRecordID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("till/mongo: corrupt record id %q: %w", m.ID, err)
	}
	rec := &billing.Record{
		ID:              recordID,
		Ref:             id.Ref(m.Ref),
		Timestamp:       m.Timestamp,
		Subtotal:        types.Money{Amount: m.SubtotalCents, Currency: m.SubtotalCurrency},
		DiscountPercent: m.DiscountPercent,
		DiscountAmount:  types.Money{Amount: m.DiscountCents, Currency: m.DiscountCurrency},
		GSTRate:         m.GSTRate,
		GSTAmount:       types.Money{Amount: m.GSTCents, Currency: m.GSTCurrency},
		Total:           types.Money{Amount: m.TotalCents, Currency: m.TotalCurrency},
		CreatedBy:       m.CreatedBy,
	}
	rec.CreatedAt = m.CreatedAt
	rec.UpdatedAt = m.UpdatedAt
	return rec, nil
}

type itemModel struct {
	ID            string `bson:"_id"`
	RecordID      string `bson:"record_id"`
	ProductID     int64  `bson:"product_id"`
	ProductName   string `bson:"product_name"`
	Quantity      int64  `bson:"quantity"`
	PriceCents    int64  `bson:"price_cents"`
	PriceCurrency string `bson:"price_currency"`
	Unit          string `bson:"unit"`
}

func toItemModel(item *billing.Item) *itemModel {
	return &itemModel{
		ID:            item.ID.String(),
		RecordID:      item.RecordID.String(),
		ProductID:     item.ProductID,
		ProductName:   item.ProductName,
		Quantity:      item.Quantity,
		PriceCents:    item.Price.Amount,
		PriceCurrency: item.Price.Currency,
		Unit:          item.Unit,
	}
}

func fromItemModel(m *itemModel) (billing.Item, error) {
	itemID, err := id.ParseItemID(m.ID)
	if err != nil {
		return billing.Item{}, fmt.Errorf("till/mongo: corrupt item id %q: %w", m.ID, err)
	}
	recordID, err := id.ParseRecordID(m.RecordID)
	if err != nil {
		return billing.Item{}, fmt.Errorf("till/mongo: corrupt record id %q: %w", m.RecordID, err)
	}
	return billing.Item{
		ID:          itemID,
		RecordID:    recordID,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		Quantity:    m.Quantity,
		Price:       types.Money{Amount: m.PriceCents, Currency: m.PriceCurrency},
		Unit:        m.Unit,
	}, nil
}
