package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TransactionType string
type TransactionStatus string

const (
	TransactionTypeTokenPurchase        TransactionType = "token_purchase"
	TransactionTypeCommissionWithdrawal TransactionType = "commission_withdrawal"

	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// Transaction is a settled payment record handed to the core by the payment
// ledger. The core references it from commissions but never mutates amounts.
type Transaction struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID        primitive.ObjectID `json:"user_id" bson:"user_id" validate:"required"`
	Type          TransactionType    `json:"type" bson:"type" validate:"required"`
	Status        TransactionStatus  `json:"status" bson:"status" default:"pending"`
	Amount        float64            `json:"amount" bson:"amount" validate:"required"`
	TokenAmount   float64            `json:"token_amount" bson:"token_amount"`
	TokenPrice    float64            `json:"token_price" bson:"token_price"`
	Currency      string             `json:"currency" bson:"currency" default:"KES"`
	PaymentMethod string             `json:"payment_method" bson:"payment_method"`
	Reference     string             `json:"reference" bson:"reference"`
	IPAddress     string             `json:"ip_address" bson:"ip_address"`
	ProcessedAt   *time.Time         `json:"processed_at" bson:"processed_at"`
	CreatedAt     time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at" bson:"updated_at"`
}
