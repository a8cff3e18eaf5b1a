package interfaces

import (
	"context"
	"time"

	"wattschain/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TreeRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, node *models.TreeNode) error
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.TreeNode, error)
	Exists(ctx context.Context, userID primitive.ObjectID) (bool, error)

	// Referral linking side effects. RegisterDirectReferral updates the
	// direct referrer; IncrementAncestorCounters updates one ancestor at the
	// given relative depth (1 = direct referrer). Depths beyond
	// models.MaxTreeLevel must be a no-op for level counters.
	RegisterDirectReferral(ctx context.Context, referrerID, childID primitive.ObjectID) error
	IncrementAncestorCounters(ctx context.Context, ancestorID primitive.ObjectID, relativeDepth int) error

	// Activation and volume accumulation (atomic increments)
	Activate(ctx context.Context, userID primitive.ObjectID, purchaseAmount float64, activatedAt time.Time) error
	IncrementTotalVolume(ctx context.Context, userID primitive.ObjectID, amount float64) error

	// Fraud and repair writes
	SetFraudStatus(ctx context.Context, userID primitive.ObjectID, suspicious bool, flags []models.FraudFlag, auditedAt time.Time) error
	DemoteToRoot(ctx context.Context, userID primitive.ObjectID) error
	SetLevelCounts(ctx context.Context, userID primitive.ObjectID, counts [models.MaxTreeLevel]int64) error

	// Scans and statistics
	CountReferralsSince(ctx context.Context, referrerID primitive.ObjectID, since time.Time) (int64, error)
	GetAll(ctx context.Context) ([]*models.TreeNode, error)
	GetTreeStats(ctx context.Context) (*models.TreeStats, error)
}
