package repository

import (
	"context"
	"testing"
	"time"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func newMockRepo(mt *mtest.T) *MongoRepository {
	return NewMongoRepositoryWithClient(mt.Client, &config.MongoDBConfig{
		Database:        "storefront",
		AuditCollection: "audit_logs",
	})
}

func TestMongoRepository_Accounts(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create sets empty cart", func(mt *mtest.T) {
		repo := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		acc := &models.Account{Email: "a@example.com"}
		require.NoError(mt, repo.CreateAccount(ctx, acc))
		assert.NotEmpty(mt, acc.ID)
		assert.NotNil(mt, acc.CartData)
		assert.NotNil(mt, acc.WishlistData)
	})

	mt.Run("duplicate email is a conflict", func(mt *mtest.T) {
		repo := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := repo.CreateAccount(ctx, &models.Account{Email: "a@example.com"})
		assert.ErrorIs(mt, err, ErrConflict)
	})

	mt.Run("get decodes cart", func(mt *mtest.T) {
		repo := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "storefront.accounts", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "u1"},
			{Key: "email", Value: "a@example.com"},
			{Key: "cartData", Value: bson.D{
				{Key: "p1", Value: bson.D{{Key: "M", Value: int32(2)}, {Key: "L", Value: int32(0)}}},
			}},
		}))

		acc, err := repo.GetAccount(ctx, "u1")
		require.NoError(mt, err)
		assert.Equal(mt, models.Cart{"p1": {"M": 2}}, acc.CartData)
	})

	mt.Run("get missing account", func(mt *mtest.T) {
		repo := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "storefront.accounts", mtest.FirstBatch))

		_, err := repo.GetAccount(ctx, "nobody")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("add cart item returns updated cart", func(mt *mtest.T) {
		repo := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: "u1"},
			{Key: "cartData", Value: bson.D{{Key: "p1", Value: bson.D{{Key: "M", Value: int32(3)}}}}},
		}}))

		cart, err := repo.AddCartItem(ctx, "u1", "p1", "M", 1)
		require.NoError(mt, err)
		assert.Equal(mt, 3, cart.Quantity("p1", "M"))
	})

	mt.Run("replace cart on missing account", func(mt *mtest.T) {
		repo := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: int32(0)},
			bson.E{Key: "nModified", Value: int32(0)},
		))

		err := repo.ReplaceCart(ctx, "nobody", models.Cart{})
		assert.ErrorIs(mt, err, ErrNotFound)
	})
}

func TestMongoRepository_Orders(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("list orders", func(mt *mtest.T) {
		repo := newMockRepo(mt)
		now := time.Now().UTC().Truncate(time.Millisecond)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "storefront.orders", mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "o2"},
				{Key: "userId", Value: "u1"},
				{Key: "amount", Value: 110.0},
				{Key: "status", Value: "Packing"},
				{Key: "date", Value: now},
			},
			bson.D{
				{Key: "_id", Value: "o1"},
				{Key: "userId", Value: "u1"},
				{Key: "amount", Value: 60.0},
				{Key: "status", Value: "Delivered"},
				{Key: "date", Value: now.Add(-time.Hour)},
			},
		))

		orders, err := repo.ListOrdersByUser(ctx, "u1")
		require.NoError(mt, err)
		require.Len(mt, orders, 2)
		assert.Equal(mt, "o2", orders[0].ID)
		assert.Equal(mt, models.StatusDelivered, orders[1].Status)
	})

	mt.Run("update status of missing order", func(mt *mtest.T) {
		repo := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: int32(0)}))

		err := repo.UpdateOrderStatus(ctx, "nope", models.StatusShipped)
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("update status", func(mt *mtest.T) {
		repo := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: int32(1)},
			bson.E{Key: "nModified", Value: int32(1)},
		))

		require.NoError(mt, repo.UpdateOrderStatus(ctx, "o1", models.StatusShipped))
	})
}

func TestMongoRepository_AuditLogs(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create stamps id and time", func(mt *mtest.T) {
		repo := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		log := &models.AuditLog{Service: "order", Action: "order_placed", EntityID: "o1"}
		require.NoError(mt, repo.CreateAuditLog(ctx, log))
		assert.NotEmpty(mt, log.ID)
		assert.False(mt, log.CreatedAt.IsZero())
	})

	mt.Run("get decodes entries", func(mt *mtest.T) {
		repo := newMockRepo(mt)
		now := time.Now().UTC().Truncate(time.Millisecond)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "storefront.audit_logs", mtest.FirstBatch,
			bson.D{
				{Key: "_id", Value: "a2"},
				{Key: "service", Value: "order"},
				{Key: "action", Value: "status_changed"},
				{Key: "entity_id", Value: "o1"},
				{Key: "data", Value: bson.D{{Key: "status", Value: "Shipped"}}},
				{Key: "created_at", Value: now},
			},
			bson.D{
				{Key: "_id", Value: "a1"},
				{Key: "service", Value: "order"},
				{Key: "action", Value: "order_placed"},
				{Key: "entity_id", Value: "o1"},
				{Key: "created_at", Value: now.Add(-time.Minute)},
			},
		))

		logs, err := repo.GetAuditLogs(ctx, "o1", 10)
		require.NoError(mt, err)
		require.Len(mt, logs, 2)
		assert.Equal(mt, "status_changed", logs[0].Action)
		assert.Equal(mt, "Shipped", logs[0].Data["status"])
		assert.Equal(mt, "order_placed", logs[1].Action)
		assert.Equal(mt, now, logs[0].CreatedAt.UTC())
	})

	mt.Run("get with no entries", func(mt *mtest.T) {
		repo := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "storefront.audit_logs", mtest.FirstBatch))

		logs, err := repo.GetAuditLogs(ctx, "o2", 0)
		require.NoError(mt, err)
		assert.Empty(mt, logs)
	})

	mt.Run("get surfaces server errors", func(mt *mtest.T) {
		repo := newMockRepo(mt)
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad query"}))

		_, err := repo.GetAuditLogs(ctx, "o1", 10)
		assert.Error(mt, err)
	})
}
