// Package mongo implements store.Store on MongoDB. Sale transactions use
// server sessions, which requires a replica set deployment.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	till "github.com/xraph/till"
	"github.com/xraph/till/billing"
	"github.com/xraph/till/id"
	"github.com/xraph/till/product"
	tillstore "github.com/xraph/till/store"
)

// Collection name constants.
const (
	colProducts = "till_products"
	colRecords  = "till_billing_records"
	colItems    = "till_billing_items"
)

// compile-time interface check
var _ tillstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to MongoDB and verifies the connection. Migrate must still be
// called before first use.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100)

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("till/mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("till/mongo: ping: %w", err)
	}
	return New(client, database), nil
}

// New wraps an existing client.
func New(client *mongo.Client, database string) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
	}
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *mongo.Database { return s.db }

// Migrate creates indexes for all collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		_, err := s.db.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("till/mongo: %w: migrate %s indexes: %v", till.ErrMigrationFailed, col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// ==================== Catalog ====================

func (s *Store) CreateProduct(ctx context.Context, p *product.Product) error {
	_, err := s.db.Collection(colProducts).InsertOne(ctx, toProductModel(p))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), "sku") {
				return till.ErrDuplicateSKU
			}
			return till.ErrAlreadyExists
		}
		return fmt.Errorf("till/mongo: create product: %w", err)
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, productID int64) (*product.Product, error) {
	var m productModel
	err := s.db.Collection(colProducts).
		FindOne(ctx, bson.M{"_id": productID}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, till.ErrProductNotFound
		}
		return nil, fmt.Errorf("till/mongo: get product: %w", err)
	}
	return fromProductModel(&m), nil
}

func (s *Store) ListProducts(ctx context.Context, opts product.ListOpts) ([]*product.Product, error) {
	filter := bson.M{}
	if opts.Category != "" {
		filter["category"] = opts.Category
	}
	if opts.MaxStock > 0 {
		filter["stock"] = bson.M{"$lt": opts.MaxStock}
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.db.Collection(colProducts).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("till/mongo: list products: %w", err)
	}
	var models []productModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("till/mongo: list products: %w", err)
	}

	result := make([]*product.Product, len(models))
	for i := range models {
		result[i] = fromProductModel(&models[i])
	}
	return result, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p *product.Product) error {
	m := toProductModel(p)
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.Collection(colProducts).
		ReplaceOne(ctx, bson.M{"_id": p.ID}, m)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return till.ErrDuplicateSKU
		}
		return fmt.Errorf("till/mongo: update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return till.ErrProductNotFound
	}
	return nil
}

func (s *Store) DeleteProduct(ctx context.Context, productID int64) error {
	_, err := s.db.Collection(colProducts).
		DeleteOne(ctx, bson.M{"_id": productID})
	if err != nil {
		return fmt.Errorf("till/mongo: delete product: %w", err)
	}
	return nil
}

// ==================== Billing ledger ====================

func (s *Store) GetRecordByRef(ctx context.Context, ref id.Ref) (*billing.Record, error) {
	// Refs are wall-clock derived and can collide; the newest record wins.
	var m recordModel
	err := s.db.Collection(colRecords).
		FindOne(ctx, bson.M{"ref": int64(ref)},
			options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}})).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, till.ErrRecordNotFound
		}
		return nil, fmt.Errorf("till/mongo: get record: %w", err)
	}
	return fromRecordModel(&m)
}

func (s *Store) ListRecords(ctx context.Context, opts billing.ListOpts) ([]*billing.Record, error) {
	filter := bson.M{}
	if opts.CreatedBy != "" {
		filter["created_by"] = opts.CreatedBy
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	if opts.Limit > 0 {
		findOpts = findOpts.SetLimit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		findOpts = findOpts.SetSkip(int64(opts.Offset))
	}

	cursor, err := s.db.Collection(colRecords).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("till/mongo: list records: %w", err)
	}
	var models []recordModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("till/mongo: list records: %w", err)
	}

	result := make([]*billing.Record, len(models))
	for i := range models {
		rec, err := fromRecordModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = rec
	}
	return result, nil
}

func (s *Store) ListItems(ctx context.Context, recordID id.RecordID) ([]billing.Item, error) {
	cursor, err := s.db.Collection(colItems).
		Find(ctx, bson.M{"record_id": recordID.String()},
			options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("till/mongo: list items: %w", err)
	}
	var models []itemModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("till/mongo: list items: %w", err)
	}

	result := make([]billing.Item, len(models))
	for i := range models {
		item, err := fromItemModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = item
	}
	return result, nil
}

// ==================== Transactions ====================

// Tx runs all operations under one server session transaction.
type Tx struct {
	s    *Store
	sess *mongo.Session
}

func (s *Store) Begin(ctx context.Context) (tillstore.Tx, error) {
	sess, err := s.client.StartSession()
	if err != nil {
		return nil, fmt.Errorf("till/mongo: start session: %w", err)
	}
	if err := sess.StartTransaction(); err != nil {
		sess.EndSession(ctx)
		return nil, fmt.Errorf("till/mongo: start transaction: %w", err)
	}
	return &Tx{s: s, sess: sess}, nil
}

func (t *Tx) GetProduct(ctx context.Context, productID int64) (*product.Product, error) {
	return t.s.GetProduct(mongo.NewSessionContext(ctx, t.sess), productID)
}

func (t *Tx) UpdateProductStock(ctx context.Context, productID, newStock int64) error {
	res, err := t.s.db.Collection(colProducts).
		UpdateOne(mongo.NewSessionContext(ctx, t.sess),
			bson.M{"_id": productID},
			bson.M{"$set": bson.M{"stock": newStock, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("till/mongo: update stock: %w", err)
	}
	if res.MatchedCount == 0 {
		return till.ErrProductNotFound
	}
	return nil
}

func (t *Tx) CreateRecord(ctx context.Context, rec *billing.Record) error {
	_, err := t.s.db.Collection(colRecords).
		InsertOne(mongo.NewSessionContext(ctx, t.sess), toRecordModel(rec))
	if err != nil {
		return fmt.Errorf("till/mongo: create record: %w", err)
	}
	return nil
}

func (t *Tx) CreateItem(ctx context.Context, item *billing.Item) error {
	_, err := t.s.db.Collection(colItems).
		InsertOne(mongo.NewSessionContext(ctx, t.sess), toItemModel(item))
	if err != nil {
		return fmt.Errorf("till/mongo: create item: %w", err)
	}
	return nil
}

func (t *Tx) Commit(ctx context.Context) error {
	defer t.sess.EndSession(ctx)
	if err := t.sess.CommitTransaction(ctx); err != nil {
		return fmt.Errorf("till/mongo: %w: %v", till.ErrTransactionFailed, err)
	}
	return nil
}

func (t *Tx) Rollback(ctx context.Context) error {
	defer t.sess.EndSession(ctx)
	if err := t.sess.AbortTransaction(ctx); err != nil {
		return fmt.Errorf("till/mongo: abort: %w", err)
	}
	return nil
}

// ==================== Helpers ====================

// migrationIndexes returns the index definitions for all collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colProducts: {
			{
				Keys: bson.D{{Key: "sku", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"sku": bson.M{"$gt": ""}}),
			},
			{Keys: bson.D{{Key: "category", Value: 1}}},
			{Keys: bson.D{{Key: "stock", Value: 1}}},
		},
		colRecords: {
			{Keys: bson.D{{Key: "ref", Value: 1}}},
			{Keys: bson.D{{Key: "created_by", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "timestamp", Value: -1}}},
		},
		colItems: {
			{Keys: bson.D{{Key: "record_id", Value: 1}}},
		},
	}
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
