package interfaces

import (
	"context"
	"time"

	"wattschain/internal/models"
	"wattschain/internal/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransactionRepository interface {
	Create(ctx context.Context, transaction *models.Transaction) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Transaction, int64, error)

	// Fraud-window scans
	CountByUserSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (int64, error)
	MaxAmountByUserSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (float64, error)
}
