package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DistributionResult summarizes one purchase's commission fan-out.
type DistributionResult struct {
	CommissionsCreated int     `json:"commissions_created"`
	TotalAmount        float64 `json:"total_amount"`
}

// UnlockResult summarizes one expiry sweep.
type UnlockResult struct {
	UnlockedCount int     `json:"unlocked_count"`
	TotalAmount   float64 `json:"total_amount"`
}

// ReferralValidation distinguishes "code does not resolve" from a storage
// failure: an unknown or ineligible code yields Valid=false with a nil error.
type ReferralValidation struct {
	Valid        bool                `json:"valid"`
	ReferrerID   *primitive.ObjectID `json:"referrer_id,omitempty"`
	ReferrerName string              `json:"referrer_name,omitempty"`
}

// FraudReport is the outcome of a risk scan. The scan also mutates the tree
// node's suspicion fields when the verdict is suspicious.
type FraudReport struct {
	UserID          primitive.ObjectID `json:"user_id"`
	RiskScore       float64            `json:"risk_score"`
	RiskLevel       string             `json:"risk_level"`
	IsSuspicious    bool               `json:"is_suspicious"`
	Flags           []FraudFlag        `json:"flags"`
	Recommendations []string           `json:"recommendations"`
	ScannedAt       time.Time          `json:"scanned_at"`
}

// AuditReport lists what the integrity pass found and how many records it
// rewrote while repairing.
type AuditReport struct {
	Issues     []string  `json:"issues"`
	FixedCount int       `json:"fixed_count"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// PurchaseResult summarizes a settled token purchase.
type PurchaseResult struct {
	TransactionID      primitive.ObjectID `json:"transaction_id"`
	TokensCredited     float64            `json:"tokens_credited"`
	CommissionsCreated int                `json:"commissions_created"`
	CommissionTotal    float64            `json:"commission_total"`
}
