package interfaces

import (
	"context"
	"time"

	"wattschain/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)

	// RecordQualifyingPurchase mirrors MLM eligibility onto the user record:
	// marks the user eligible, stamps first activation, and accumulates the
	// lifetime purchase total.
	RecordQualifyingPurchase(ctx context.Context, id primitive.ObjectID, amount float64, activatedAt time.Time) error
}
