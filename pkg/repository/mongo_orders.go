package repository

import (
	"context"
	"time"

	"github.com/example/storefront/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (m *MongoRepository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = models.NewID()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	_, err := m.orders().InsertOne(ctx, order)
	return mapMongoError(err, "order", order.ID)
}

func (m *MongoRepository) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return m.findOrder(ctx, bson.M{"_id": id}, id)
}

func (m *MongoRepository) FindOrderByIdempotencyKey(ctx context.Context, userID, key string) (*models.Order, error) {
	return m.findOrder(ctx, bson.M{"userId": userID, "idempotencyKey": key}, key)
}

func (m *MongoRepository) findOrder(ctx context.Context, filter bson.M, key string) (*models.Order, error) {
	var order models.Order
	if err := m.orders().FindOne(ctx, filter).Decode(&order); err != nil {
		return nil, mapMongoError(err, "order", key)
	}
	return &order, nil
}

func (m *MongoRepository) ListOrdersByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	return m.listOrders(ctx, bson.M{"userId": userID})
}

func (m *MongoRepository) ListOrders(ctx context.Context) ([]*models.Order, error) {
	return m.listOrders(ctx, bson.M{})
}

func (m *MongoRepository) listOrders(ctx context.Context, filter bson.M) ([]*models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cursor, err := m.orders().Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	orders := []*models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (m *MongoRepository) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) error {
	return m.updateOrder(ctx, id, bson.M{"status": status})
}

func (m *MongoRepository) UpdateOrderPayment(ctx context.Context, id string, update PaymentUpdate) error {
	set := bson.M{
		"paymentStatus": update.PaymentStatus,
		"payment":       update.Paid,
	}
	if update.Status != "" {
		set["status"] = update.Status
	}
	return m.updateOrder(ctx, id, set)
}

func (m *MongoRepository) updateOrder(ctx context.Context, id string, set bson.M) error {
	res, err := m.orders().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mapMongoError(errNoMatch, "order", id)
	}
	return nil
}
