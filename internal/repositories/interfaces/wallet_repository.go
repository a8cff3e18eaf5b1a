package interfaces

import (
	"context"

	"wattschain/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WalletRepository mutates balances exclusively through atomic increments;
// there is no save-whole-document write, so concurrent distributions to the
// same ancestor accumulate instead of racing.
type WalletRepository interface {
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Wallet, error)
	GetOrCreate(ctx context.Context, userID primitive.ObjectID) (*models.Wallet, error)

	// CreditLockedCommission adds a freshly earned commission to the locked
	// and lifetime-earned aggregates (upserting the wallet if absent).
	CreditLockedCommission(ctx context.Context, userID primitive.ObjectID, amount float64) error

	// ReleaseLockedCommission moves a matured commission from locked to
	// available.
	ReleaseLockedCommission(ctx context.Context, userID primitive.ObjectID, amount float64) error

	// DebitWithdrawal moves an unlocked commission out of available into the
	// lifetime-withdrawn aggregate.
	DebitWithdrawal(ctx context.Context, userID primitive.ObjectID, amount float64) error

	CreditTokens(ctx context.Context, userID primitive.ObjectID, tokens float64) error
}
