package repository

import (
	"context"
	"time"

	"github.com/example/storefront/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (m *MongoRepository) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = models.NewID()
	}
	if account.CartData == nil {
		account.CartData = models.Cart{}
	}
	if account.WishlistData == nil {
		account.WishlistData = []string{}
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now()
	}

	_, err := m.accounts().InsertOne(ctx, account)
	return mapMongoError(err, "account", account.Email)
}

func (m *MongoRepository) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	return m.findAccount(ctx, bson.M{"_id": id}, id)
}

func (m *MongoRepository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return m.findAccount(ctx, bson.M{"email": email}, email)
}

func (m *MongoRepository) findAccount(ctx context.Context, filter bson.M, key string) (*models.Account, error) {
	var account models.Account
	if err := m.accounts().FindOne(ctx, filter).Decode(&account); err != nil {
		return nil, mapMongoError(err, "account", key)
	}
	account.CartData = account.CartData.Normalize()
	return &account, nil
}

// AddCartItem uses $inc on the nested path so concurrent adds never lose
// an increment.
func (m *MongoRepository) AddCartItem(ctx context.Context, id, productID, size string, quantity int) (models.Cart, error) {
	update := bson.M{"$inc": bson.M{"cartData." + productID + "." + size: quantity}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"cartData": 1})

	var account models.Account
	err := m.accounts().FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&account)
	if err != nil {
		return nil, mapMongoError(err, "account", id)
	}
	return account.CartData.Normalize(), nil
}

func (m *MongoRepository) ReplaceCart(ctx context.Context, id string, cart models.Cart) error {
	if cart == nil {
		cart = models.Cart{}
	}
	res, err := m.accounts().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"cartData": cart}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mapMongoError(errNoMatch, "account", id)
	}
	return nil
}

func (m *MongoRepository) AddToWishlist(ctx context.Context, id, productID string) ([]string, error) {
	return m.updateWishlist(ctx, id, bson.M{"$addToSet": bson.M{"wishlistData": productID}})
}

func (m *MongoRepository) RemoveFromWishlist(ctx context.Context, id, productID string) ([]string, error) {
	return m.updateWishlist(ctx, id, bson.M{"$pull": bson.M{"wishlistData": productID}})
}

func (m *MongoRepository) updateWishlist(ctx context.Context, id string, update bson.M) ([]string, error) {
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(bson.M{"wishlistData": 1})

	var account models.Account
	if err := m.accounts().FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&account); err != nil {
		return nil, mapMongoError(err, "account", id)
	}
	if account.WishlistData == nil {
		return []string{}, nil
	}
	return account.WishlistData, nil
}

func (m *MongoRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := m.accounts().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"password": hash}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mapMongoError(errNoMatch, "account", id)
	}
	return nil
}
