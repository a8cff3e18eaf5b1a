package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CommissionStatus string

const (
	CommissionStatusPending   CommissionStatus = "pending"
	CommissionStatusLocked    CommissionStatus = "locked"
	CommissionStatusUnlocked  CommissionStatus = "unlocked"
	CommissionStatusWithdrawn CommissionStatus = "withdrawn"
	CommissionStatusCancelled CommissionStatus = "cancelled"
)

// Commission is one ledger grant. Immutable after creation except for the
// status transitions and their timestamps.
type Commission struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID        primitive.ObjectID `json:"user_id" bson:"user_id" validate:"required"`
	FromUserID    primitive.ObjectID `json:"from_user_id" bson:"from_user_id" validate:"required"`
	TransactionID primitive.ObjectID `json:"transaction_id" bson:"transaction_id" validate:"required"`
	Level         int                `json:"level" bson:"level" validate:"required,min=1,max=5"`
	Percentage    float64            `json:"percentage" bson:"percentage"`
	SourceAmount  float64            `json:"source_amount" bson:"source_amount"`
	Amount        float64            `json:"amount" bson:"amount"`
	Status        CommissionStatus   `json:"status" bson:"status" default:"locked"`
	EarnedAt      time.Time          `json:"earned_at" bson:"earned_at"`
	LockedUntil   time.Time          `json:"locked_until" bson:"locked_until"`
	UnlockedAt    *time.Time         `json:"unlocked_at" bson:"unlocked_at"`
	WithdrawnAt   *time.Time         `json:"withdrawn_at" bson:"withdrawn_at"`
	CancelledAt   *time.Time         `json:"cancelled_at" bson:"cancelled_at"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}

// CommissionAmount applies a percentage to a source amount.
func CommissionAmount(sourceAmount, percentage float64) float64 {
	return sourceAmount * percentage / 100
}
