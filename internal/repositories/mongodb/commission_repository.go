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

type commissionRepository struct {
	collection *mongo.Collection
}

func NewCommissionRepository(db *mongo.Database) interfaces.CommissionRepository {
	return &commissionRepository{
		collection: db.Collection("commissions"),
	}
}

func (r *commissionRepository) Create(ctx context.Context, commission *models.Commission) error {
	commission.ID = primitive.NewObjectID()
	commission.CreatedAt = time.Now()
	commission.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, commission)
	if err != nil {
		return fmt.Errorf("failed to create commission: %w", err)
	}

	return nil
}

func (r *commissionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error) {
	var commission models.Commission
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&commission)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewNotFoundError("commission", id.Hex())
		}
		return nil, fmt.Errorf("failed to get commission: %w", err)
	}

	return &commission, nil
}

func (r *commissionRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Commission, int64, error) {
	filter := bson.M{"user_id": userID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count commissions: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.GetSortOptions())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find commissions: %w", err)
	}
	defer cursor.Close(ctx)

	var commissions []*models.Commission
	for cursor.Next(ctx) {
		var commission models.Commission
		if err := cursor.Decode(&commission); err != nil {
			return nil, 0, fmt.Errorf("failed to decode commission: %w", err)
		}
		commissions = append(commissions, &commission)
	}

	return commissions, total, nil
}

func (r *commissionRepository) ExistsForTransaction(ctx context.Context, transactionID primitive.ObjectID) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"transaction_id": transactionID})
	if err != nil {
		return false, fmt.Errorf("failed to check transaction commissions: %w", err)
	}
	return count > 0, nil
}

func (r *commissionRepository) FindExpiredLocked(ctx context.Context, asOf time.Time, limit int) ([]*models.Commission, error) {
	filter := bson.M{
		"status":       models.CommissionStatusLocked,
		"locked_until": bson.M{"$lte": asOf},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "locked_until", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find expired commissions: %w", err)
	}
	defer cursor.Close(ctx)

	var commissions []*models.Commission
	for cursor.Next(ctx) {
		var commission models.Commission
		if err := cursor.Decode(&commission); err != nil {
			return nil, fmt.Errorf("failed to decode commission: %w", err)
		}
		commissions = append(commissions, &commission)
	}

	return commissions, nil
}

// UnlockIfLocked is the compare-and-set the sweep relies on: the filter pins
// status to locked, so a concurrent sweep that already moved the row simply
// matches nothing here.
func (r *commissionRepository) UnlockIfLocked(ctx context.Context, id primitive.ObjectID, unlockedAt time.Time) (bool, error) {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": models.CommissionStatusLocked},
		bson.M{
			"$set": bson.M{
				"status":      models.CommissionStatusUnlocked,
				"unlocked_at": unlockedAt,
				"updated_at":  time.Now(),
			},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to unlock commission: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

func (r *commissionRepository) WithdrawIfUnlocked(ctx context.Context, id primitive.ObjectID, withdrawnAt time.Time) (bool, error) {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "status": models.CommissionStatusUnlocked},
		bson.M{
			"$set": bson.M{
				"status":       models.CommissionStatusWithdrawn,
				"withdrawn_at": withdrawnAt,
				"updated_at":   time.Now(),
			},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to withdraw commission: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

func (r *commissionRepository) SumActiveByUser(ctx context.Context, userID primitive.ObjectID) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"user_id": userID,
			"status":  bson.M{"$ne": models.CommissionStatusCancelled},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum commissions: %w", err)
	}
	defer cursor.Close(ctx)

	if cursor.Next(ctx) {
		var result struct {
			Total float64 `bson:"total"`
		}
		if err := cursor.Decode(&result); err != nil {
			return 0, fmt.Errorf("failed to decode commission sum: %w", err)
		}
		return result.Total, nil
	}

	return 0, nil
}
