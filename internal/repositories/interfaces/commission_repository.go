package interfaces

import (
	"context"
	"time"

	"wattschain/internal/models"
	"wattschain/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CommissionRepository interface {
	Create(ctx context.Context, commission *models.Commission) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Commission, int64, error)

	// ExistsForTransaction reports whether any commission has already been
	// granted off the given source transaction. Distribution uses it as its
	// idempotency guard.
	ExistsForTransaction(ctx context.Context, transactionID primitive.ObjectID) (bool, error)

	// FindExpiredLocked returns locked commissions whose lock has matured as
	// of the given instant, capped at limit.
	FindExpiredLocked(ctx context.Context, asOf time.Time, limit int) ([]*models.Commission, error)

	// UnlockIfLocked and WithdrawIfUnlocked are transactional compare-and-set
	// transitions; they report false without error when another worker moved
	// the row first.
	UnlockIfLocked(ctx context.Context, id primitive.ObjectID, unlockedAt time.Time) (bool, error)
	WithdrawIfUnlocked(ctx context.Context, id primitive.ObjectID, withdrawnAt time.Time) (bool, error)

	// SumActiveByUser totals non-cancelled commission amounts for a user.
	SumActiveByUser(ctx context.Context, userID primitive.ObjectID) (float64, error)
}
