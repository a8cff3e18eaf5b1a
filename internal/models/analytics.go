package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TreeStats is the forest-wide analytics snapshot served to dashboards.
type TreeStats struct {
	TotalMembers      int64           `json:"total_members" bson:"total_members"`
	ActiveMembers     int64           `json:"active_members" bson:"active_members"`
	TotalVolume       float64         `json:"total_volume" bson:"total_volume"`
	AverageDepth      float64         `json:"average_depth" bson:"average_depth"`
	MaxDepth          int             `json:"max_depth" bson:"max_depth"`
	LevelDistribution map[int]int64   `json:"level_distribution" bson:"level_distribution"`
	GeneratedAt       time.Time       `json:"generated_at" bson:"generated_at"`
}

// TreeMemberSummary carries the display fields resolved for a node's direct
// relations when serving tree data.
type TreeMemberSummary struct {
	UserID       primitive.ObjectID `json:"user_id"`
	Name         string             `json:"name"`
	ReferralCode string             `json:"referral_code"`
	Level        int                `json:"level"`
	IsActive     bool               `json:"is_active"`
	JoinedAt     time.Time          `json:"joined_at"`
}

// TreeData is a node plus resolved referrer/direct-referral summaries.
type TreeData struct {
	Node            *TreeNode           `json:"node"`
	Referrer        *TreeMemberSummary  `json:"referrer,omitempty"`
	DirectDownline  []TreeMemberSummary `json:"direct_downline"`
}
