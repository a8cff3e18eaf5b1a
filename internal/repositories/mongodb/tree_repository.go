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
)

type treeRepository struct {
	collection *mongo.Collection
}

func NewTreeRepository(db *mongo.Database) interfaces.TreeRepository {
	return &treeRepository{
		collection: db.Collection("tree_nodes"),
	}
}

func (r *treeRepository) Create(ctx context.Context, node *models.TreeNode) error {
	node.ID = primitive.NewObjectID()
	node.CreatedAt = time.Now()
	node.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, node)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewConflictError("tree node", "node already exists for user "+node.UserID.Hex())
		}
		return fmt.Errorf("failed to create tree node: %w", err)
	}

	return nil
}

func (r *treeRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.TreeNode, error) {
	var node models.TreeNode
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&node)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewNotFoundError("tree node", userID.Hex())
		}
		return nil, fmt.Errorf("failed to get tree node: %w", err)
	}

	return &node, nil
}

func (r *treeRepository) Exists(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return false, fmt.Errorf("failed to check tree node existence: %w", err)
	}
	return count > 0, nil
}

func (r *treeRepository) RegisterDirectReferral(ctx context.Context, referrerID, childID primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"user_id": referrerID},
		bson.M{
			"$push": bson.M{"downline_members": childID},
			"$inc": bson.M{
				"direct_referrals":     1,
				"total_downline_count": 1,
				"level_counts.0":       1,
			},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to register direct referral: %w", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("tree node", referrerID.Hex())
	}

	return nil
}

func (r *treeRepository) IncrementAncestorCounters(ctx context.Context, ancestorID primitive.ObjectID, relativeDepth int) error {
	inc := bson.M{"total_downline_count": 1}
	// Level counters are bounded at MaxTreeLevel; deeper ancestors still get
	// the total but no per-level slot.
	if relativeDepth >= 1 && relativeDepth <= models.MaxTreeLevel {
		inc[fmt.Sprintf("level_counts.%d", relativeDepth-1)] = 1
	}

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"user_id": ancestorID},
		bson.M{
			"$inc": inc,
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to increment ancestor counters: %w", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("tree node", ancestorID.Hex())
	}

	return nil
}

func (r *treeRepository) Activate(ctx context.Context, userID primitive.ObjectID, purchaseAmount float64, activatedAt time.Time) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set": bson.M{
				"is_active":  true,
				"updated_at": time.Now(),
			},
			"$inc": bson.M{"personal_volume": purchaseAmount},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to activate tree node: %w", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("tree node", userID.Hex())
	}

	// activated_at is stamped once, on the first qualifying purchase.
	_, err = r.collection.UpdateOne(
		ctx,
		bson.M{"user_id": userID, "activated_at": nil},
		bson.M{"$set": bson.M{"activated_at": activatedAt}},
	)
	if err != nil {
		return fmt.Errorf("failed to stamp activation time: %w", err)
	}

	return nil
}

func (r *treeRepository) IncrementTotalVolume(ctx context.Context, userID primitive.ObjectID, amount float64) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$inc": bson.M{"total_volume": amount},
			"$set": bson.M{"updated_at": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to increment total volume: %w", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("tree node", userID.Hex())
	}

	return nil
}

func (r *treeRepository) SetFraudStatus(ctx context.Context, userID primitive.ObjectID, suspicious bool, flags []models.FraudFlag, auditedAt time.Time) error {
	if flags == nil {
		flags = []models.FraudFlag{}
	}

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set": bson.M{
				"is_suspicious":   suspicious,
				"fraud_flags":     flags,
				"last_audit_date": auditedAt,
				"updated_at":      time.Now(),
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to set fraud status: %w", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("tree node", userID.Hex())
	}

	return nil
}

func (r *treeRepository) DemoteToRoot(ctx context.Context, userID primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set": bson.M{
				"referrer_id":    nil,
				"level":          0,
				"upline_members": []primitive.ObjectID{},
				"updated_at":     time.Now(),
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to demote tree node: %w", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("tree node", userID.Hex())
	}

	return nil
}

func (r *treeRepository) SetLevelCounts(ctx context.Context, userID primitive.ObjectID, counts [models.MaxTreeLevel]int64) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$set": bson.M{
				"level_counts": counts,
				"updated_at":   time.Now(),
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to set level counts: %w", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("tree node", userID.Hex())
	}

	return nil
}

func (r *treeRepository) CountReferralsSince(ctx context.Context, referrerID primitive.ObjectID, since time.Time) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"referrer_id": referrerID,
		"created_at":  bson.M{"$gte": since},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count recent referrals: %w", err)
	}
	return count, nil
}

func (r *treeRepository) GetAll(ctx context.Context) ([]*models.TreeNode, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to scan tree nodes: %w", err)
	}
	defer cursor.Close(ctx)

	var nodes []*models.TreeNode
	for cursor.Next(ctx) {
		var node models.TreeNode
		if err := cursor.Decode(&node); err != nil {
			return nil, fmt.Errorf("failed to decode tree node: %w", err)
		}
		nodes = append(nodes, &node)
	}

	return nodes, nil
}

func (r *treeRepository) GetTreeStats(ctx context.Context) (*models.TreeStats, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":            nil,
			"total_members":  bson.M{"$sum": 1},
			"active_members": bson.M{"$sum": bson.M{"$cond": bson.A{"$is_active", 1, 0}}},
			"total_volume":   bson.M{"$sum": "$personal_volume"},
			"average_depth":  bson.M{"$avg": "$level"},
			"max_depth":      bson.M{"$max": "$level"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate tree stats: %w", err)
	}
	defer cursor.Close(ctx)

	stats := &models.TreeStats{
		LevelDistribution: make(map[int]int64),
		GeneratedAt:       time.Now(),
	}

	if cursor.Next(ctx) {
		var result struct {
			TotalMembers  int64   `bson:"total_members"`
			ActiveMembers int64   `bson:"active_members"`
			TotalVolume   float64 `bson:"total_volume"`
			AverageDepth  float64 `bson:"average_depth"`
			MaxDepth      int     `bson:"max_depth"`
		}
		if err := cursor.Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode tree stats: %w", err)
		}
		stats.TotalMembers = result.TotalMembers
		stats.ActiveMembers = result.ActiveMembers
		stats.TotalVolume = result.TotalVolume
		stats.AverageDepth = result.AverageDepth
		stats.MaxDepth = result.MaxDepth
	}

	levelPipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$level",
			"count": bson.M{"$sum": 1},
		}}},
	}

	levelCursor, err := r.collection.Aggregate(ctx, levelPipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate level distribution: %w", err)
	}
	defer levelCursor.Close(ctx)

	for levelCursor.Next(ctx) {
		var result struct {
			Level int   `bson:"_id"`
			Count int64 `bson:"count"`
		}
		if err := levelCursor.Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode level distribution: %w", err)
		}
		stats.LevelDistribution[result.Level] = result.Count
	}

	return stats, nil
}
