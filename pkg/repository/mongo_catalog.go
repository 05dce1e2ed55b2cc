package repository

import (
	"context"
	"time"

	"github.com/example/storefront/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (m *MongoRepository) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = models.NewID()
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now()
	}
	_, err := m.products().InsertOne(ctx, product)
	return mapMongoError(err, "product", product.ID)
}

func (m *MongoRepository) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := m.products().FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return nil, mapMongoError(err, "product", id)
	}
	return &product, nil
}

func (m *MongoRepository) ListProducts(ctx context.Context) ([]*models.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := m.products().Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	products := []*models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (m *MongoRepository) DeleteProduct(ctx context.Context, id string) error {
	res, err := m.products().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mapMongoError(errNoMatch, "product", id)
	}
	return nil
}
