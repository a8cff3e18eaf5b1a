package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Wallet holds per-user aggregate balances. Commission-sourced funds move
// locked -> available -> withdrawn; token balance tracks presale purchases.
// All mutations go through atomic increments in the wallet repository.
type Wallet struct {
	ID                        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID                    primitive.ObjectID `json:"user_id" bson:"user_id" validate:"required"`
	TokenBalance              float64            `json:"token_balance" bson:"token_balance" default:"0"`
	AvailableBalance          float64            `json:"available_balance" bson:"available_balance" default:"0"`
	LockedBalance             float64            `json:"locked_balance" bson:"locked_balance" default:"0"`
	TotalCommissionsEarned    float64            `json:"total_commissions_earned" bson:"total_commissions_earned" default:"0"`
	TotalCommissionsWithdrawn float64            `json:"total_commissions_withdrawn" bson:"total_commissions_withdrawn" default:"0"`
	PendingCommissions        float64            `json:"pending_commissions" bson:"pending_commissions" default:"0"`
	Currency                  string             `json:"currency" bson:"currency" default:"KES"`
	CreatedAt                 time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt                 time.Time          `json:"updated_at" bson:"updated_at"`
}
