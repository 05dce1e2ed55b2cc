package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// errNoMatch reports an update whose filter matched no document.
var errNoMatch = mongo.ErrNoDocuments

const (
	accountsCollection = "accounts"
	productsCollection = "products"
	ordersCollection   = "orders"
)

// MongoRepository implements the account, product, order and audit stores
// on one database.
type MongoRepository struct {
	client   *mongo.Client
	database *mongo.Database
	config   *config.MongoDBConfig
}

func NewMongoRepository(cfg *config.MongoDBConfig) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	return NewMongoRepositoryWithClient(client, cfg), nil
}

func NewMongoRepositoryWithClient(client *mongo.Client, cfg *config.MongoDBConfig) *MongoRepository {
	return &MongoRepository{
		client:   client,
		database: client.Database(cfg.Database),
		config:   cfg,
	}
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the stores rely on for uniqueness and
// ordering. It is safe to call on every start.
func (m *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := m.accounts().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create accounts index: %w", err)
	}

	_, err = m.orders().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "date", Value: -1}}},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "idempotencyKey", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"idempotencyKey": bson.M{"$exists": true}}),
		},
		{Keys: bson.D{{Key: "paymentReference", Value: 1}}, Options: options.Index().SetSparse(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create orders indexes: %w", err)
	}

	_, err = m.auditLogs().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "entity_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create audit index: %w", err)
	}
	return nil
}

// WithTransaction runs fn inside a multi-document transaction when
// transactions are enabled (they need a replica set). Otherwise fn runs
// directly and each write is atomic on its own.
func (m *MongoRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.config.Transactions {
		return fn(ctx)
	}

	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (m *MongoRepository) accounts() *mongo.Collection {
	return m.database.Collection(accountsCollection)
}

func (m *MongoRepository) products() *mongo.Collection {
	return m.database.Collection(productsCollection)
}

func (m *MongoRepository) orders() *mongo.Collection {
	return m.database.Collection(ordersCollection)
}

func (m *MongoRepository) auditLogs() *mongo.Collection {
	return m.database.Collection(m.config.AuditCollection)
}

func (m *MongoRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = models.NewID()
	}
	log.CreatedAt = time.Now()
	_, err := m.auditLogs().InsertOne(ctx, log)
	return err
}

func (m *MongoRepository) GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*models.AuditLog, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cur, err := m.auditLogs().Find(ctx, bson.M{"entity_id": entityID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log for %s: %w", entityID, err)
	}
	logs := []*models.AuditLog{}
	if err := cur.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode audit log for %s: %w", entityID, err)
	}
	return logs, nil
}

func mapMongoError(err error, what, id string) error {
	switch {
	case err == nil:
		return nil
	case err == mongo.ErrNoDocuments:
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s %s: %w", what, id, ErrConflict)
	default:
		return err
	}
}
