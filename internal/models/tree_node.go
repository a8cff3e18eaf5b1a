package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaxTreeLevel caps both the upline chain stored per node and the depth at
// which commissions and downline counters apply.
const MaxTreeLevel = 5

type FraudFlag string

const (
	FraudFlagExcessiveReferrals FraudFlag = "excessive_daily_referrals"
	FraudFlagRapidPurchases     FraudFlag = "rapid_purchases"
	FraudFlagLargeTransaction   FraudFlag = "large_transaction"
	FraudFlagSharedIP           FraudFlag = "shared_ip_downline"
)

// TreeNode is one participant's position in the referral forest. ReferrerID
// is immutable once set; the only write that clears it is the orphan repair
// in the integrity audit.
type TreeNode struct {
	ID                 primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	UserID             primitive.ObjectID   `json:"user_id" bson:"user_id" validate:"required"`
	ReferrerID         *primitive.ObjectID  `json:"referrer_id" bson:"referrer_id"`
	Level              int                  `json:"level" bson:"level" default:"0"`
	UplineMembers      []primitive.ObjectID `json:"upline_members" bson:"upline_members"`
	DownlineMembers    []primitive.ObjectID `json:"downline_members" bson:"downline_members"`
	DirectReferrals    int64                `json:"direct_referrals" bson:"direct_referrals" default:"0"`
	TotalDownlineCount int64                `json:"total_downline_count" bson:"total_downline_count" default:"0"`
	LevelCounts        [MaxTreeLevel]int64  `json:"level_counts" bson:"level_counts"`
	PersonalVolume     float64              `json:"personal_volume" bson:"personal_volume" default:"0"`
	TotalVolume        float64              `json:"total_volume" bson:"total_volume" default:"0"`
	IsActive           bool                 `json:"is_active" bson:"is_active" default:"false"`
	ActivatedAt        *time.Time           `json:"activated_at" bson:"activated_at"`
	IsSuspicious       bool                 `json:"is_suspicious" bson:"is_suspicious" default:"false"`
	FraudFlags         []FraudFlag          `json:"fraud_flags" bson:"fraud_flags"`
	LastAuditDate      *time.Time           `json:"last_audit_date" bson:"last_audit_date"`
	CreatedAt          time.Time            `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time            `json:"updated_at" bson:"updated_at"`
}

// BuildUpline derives a child's upline chain from its referrer's node:
// the referrer first, then the referrer's own upline, truncated to
// MaxTreeLevel entries.
func BuildUpline(referrer *TreeNode) []primitive.ObjectID {
	upline := make([]primitive.ObjectID, 0, MaxTreeLevel)
	upline = append(upline, referrer.UserID)
	for _, ancestor := range referrer.UplineMembers {
		if len(upline) == MaxTreeLevel {
			break
		}
		upline = append(upline, ancestor)
	}
	return upline
}

// ChildLevel computes the depth of a node referred by a node at the given
// level, capped at MaxTreeLevel.
func ChildLevel(referrerLevel int) int {
	level := referrerLevel + 1
	if level > MaxTreeLevel {
		level = MaxTreeLevel
	}
	return level
}
