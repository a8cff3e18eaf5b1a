package mongodb

import (
	"context"
	"fmt"
	"time"

	"wattschain/internal/models"
	"wattschain/internal/repositories/interfaces"
	"wattschain/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type walletRepository struct {
	collection *mongo.Collection
}

func NewWalletRepository(db *mongo.Database) interfaces.WalletRepository {
	return &walletRepository{
		collection: db.Collection("wallets"),
	}
}

func (r *walletRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&wallet)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewNotFoundError("wallet", userID.Hex())
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}

	return &wallet, nil
}

func (r *walletRepository) GetOrCreate(ctx context.Context, userID primitive.ObjectID) (*models.Wallet, error) {
	now := time.Now()
	update := bson.M{
		"$setOnInsert": bson.M{
			"user_id":    userID,
			"currency":   utils.DefaultCurrency,
			"created_at": now,
		},
		"$set": bson.M{"updated_at": now},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var wallet models.Wallet
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"user_id": userID}, update, opts).Decode(&wallet)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create wallet: %w", err)
	}

	return &wallet, nil
}

// incrementBalances is the single write path for balance mutation: an upsert
// with $inc so concurrent credits accumulate instead of racing.
func (r *walletRepository) incrementBalances(ctx context.Context, userID primitive.ObjectID, inc bson.M) error {
	now := time.Now()
	update := bson.M{
		"$inc": inc,
		"$setOnInsert": bson.M{
			"user_id":    userID,
			"currency":   utils.DefaultCurrency,
			"created_at": now,
		},
		"$set": bson.M{"updated_at": now},
	}

	opts := options.Update().SetUpsert(true)
	_, err := r.collection.UpdateOne(ctx, bson.M{"user_id": userID}, update, opts)
	if err != nil {
		return fmt.Errorf("failed to update wallet balances: %w", err)
	}

	return nil
}

func (r *walletRepository) CreditLockedCommission(ctx context.Context, userID primitive.ObjectID, amount float64) error {
	return r.incrementBalances(ctx, userID, bson.M{
		"locked_balance":           amount,
		"total_commissions_earned": amount,
		"pending_commissions":      amount,
	})
}

func (r *walletRepository) ReleaseLockedCommission(ctx context.Context, userID primitive.ObjectID, amount float64) error {
	return r.incrementBalances(ctx, userID, bson.M{
		"locked_balance":      -amount,
		"available_balance":   amount,
		"pending_commissions": -amount,
	})
}

func (r *walletRepository) DebitWithdrawal(ctx context.Context, userID primitive.ObjectID, amount float64) error {
	return r.incrementBalances(ctx, userID, bson.M{
		"available_balance":           -amount,
		"total_commissions_withdrawn": amount,
	})
}

func (r *walletRepository) CreditTokens(ctx context.Context, userID primitive.ObjectID, tokens float64) error {
	return r.incrementBalances(ctx, userID, bson.M{
		"token_balance": tokens,
	})
}
