package mongodb

import (
	"context"
	"fmt"
	"time"

	"wattschain/internal/models"
	"wattschain/internal/repositories/interfaces"
	"wattschain/internal/services"
	"wattschain/internal/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type userRepository struct {
	collection *mongo.Collection
	cache      services.CacheService
}

func NewUserRepository(db *mongo.Database, cache services.CacheService) interfaces.UserRepository {
	return &userRepository{
		collection: db.Collection("users"),
		cache:      cache,
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return utils.NewConflictError("user", "email or referral code already registered")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.cacheUser(ctx, user)

	return nil
}

// inSession reports whether the context carries a mongo session. Reads
// inside a transaction must come from the session's snapshot, never from
// the cache.
func inSession(ctx context.Context) bool {
	return mongo.SessionFromContext(ctx) != nil
}

func (r *userRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if !inSession(ctx) {
		if user := r.getUserFromCache(ctx, id.Hex()); user != nil {
			return user, nil
		}
	}

	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "deleted_at": nil}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewNotFoundError("user", id.Hex())
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !inSession(ctx) {
		r.cacheUser(ctx, &user)
	}

	return &user, nil
}

func (r *userRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{
		"_id":        bson.M{"$in": ids},
		"deleted_at": nil,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []*models.User
	for cursor.Next(ctx) {
		var user models.User
		if err := cursor.Decode(&user); err != nil {
			return nil, fmt.Errorf("failed to decode user: %w", err)
		}
		users = append(users, &user)
	}

	return users, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"email": email, "deleted_at": nil}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewNotFoundError("user", email)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	if !inSession(ctx) {
		r.cacheUser(ctx, &user)
	}

	return &user, nil
}

func (r *userRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"referral_code": code, "deleted_at": nil}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, utils.NewNotFoundError("user", code)
		}
		return nil, fmt.Errorf("failed to get user by referral code: %w", err)
	}

	if !inSession(ctx) {
		r.cacheUser(ctx, &user)
	}

	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "deleted_at": nil},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("user", id.Hex())
	}

	r.invalidateUserCache(ctx, id.Hex())

	return nil
}

func (r *userRepository) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id, "deleted_at": nil})
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return count > 0, nil
}

func (r *userRepository) RecordQualifyingPurchase(ctx context.Context, id primitive.ObjectID, amount float64, activatedAt time.Time) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "deleted_at": nil},
		bson.M{
			"$set": bson.M{
				"is_mlm_eligible": true,
				"updated_at":      time.Now(),
			},
			"$inc": bson.M{"total_purchase_amount": amount},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to record qualifying purchase: %w", err)
	}
	if result.MatchedCount == 0 {
		return utils.NewNotFoundError("user", id.Hex())
	}

	// mlm_activated_at is stamped once, by the first qualifying purchase.
	_, err = r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "mlm_activated_at": nil},
		bson.M{"$set": bson.M{"mlm_activated_at": activatedAt}},
	)
	if err != nil {
		return fmt.Errorf("failed to stamp activation time: %w", err)
	}

	r.invalidateUserCache(ctx, id.Hex())

	return nil
}

// Cache operations
func (r *userRepository) cacheUser(ctx context.Context, user *models.User) {
	if r.cache == nil {
		return
	}

	cacheKey := fmt.Sprintf("%s%s", utils.CacheUserPrefix, user.ID.Hex())
	r.cache.Set(ctx, cacheKey, user, 15*time.Minute)
}

func (r *userRepository) getUserFromCache(ctx context.Context, userID string) *models.User {
	if r.cache == nil {
		return nil
	}

	cacheKey := fmt.Sprintf("%s%s", utils.CacheUserPrefix, userID)
	var user models.User
	if err := r.cache.Get(ctx, cacheKey, &user); err != nil {
		return nil
	}

	return &user
}

func (r *userRepository) invalidateUserCache(ctx context.Context, userID string) {
	if r.cache == nil {
		return
	}

	cacheKey := fmt.Sprintf("%s%s", utils.CacheUserPrefix, userID)
	r.cache.Delete(ctx, cacheKey)
}
