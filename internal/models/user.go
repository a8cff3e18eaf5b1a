package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserStatus string
type KYCStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusBanned    UserStatus = "banned"

	KYCStatusNotSubmitted KYCStatus = "not_submitted"
	KYCStatusPending      KYCStatus = "pending"
	KYCStatusApproved     KYCStatus = "approved"
	KYCStatusRejected     KYCStatus = "rejected"
)

type User struct {
	ID                  primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	FirstName           string              `json:"first_name" bson:"first_name" validate:"required,min=2,max=50"`
	LastName            string              `json:"last_name" bson:"last_name" validate:"required,min=2,max=50"`
	Email               string              `json:"email" bson:"email" validate:"required,email"`
	Phone               string              `json:"phone" bson:"phone"`
	CountryCode         string              `json:"country_code" bson:"country_code"`
	Password            string              `json:"-" bson:"password"`
	Status              UserStatus          `json:"status" bson:"status" default:"active"`
	KYCStatus           KYCStatus           `json:"kyc_status" bson:"kyc_status" default:"not_submitted"`
	ReferralCode        string              `json:"referral_code" bson:"referral_code"`
	ReferredBy          *primitive.ObjectID `json:"referred_by" bson:"referred_by"`
	IsMLMEligible       bool                `json:"is_mlm_eligible" bson:"is_mlm_eligible" default:"false"`
	MLMActivatedAt      *time.Time          `json:"mlm_activated_at" bson:"mlm_activated_at"`
	TotalPurchaseAmount float64             `json:"total_purchase_amount" bson:"total_purchase_amount" default:"0"`
	RegistrationIP      string              `json:"registration_ip" bson:"registration_ip"`
	IsEmailVerified     bool                `json:"is_email_verified" bson:"is_email_verified" default:"false"`
	LastLoginAt         *time.Time          `json:"last_login_at" bson:"last_login_at"`
	CreatedAt           time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt           time.Time           `json:"updated_at" bson:"updated_at"`
	DeletedAt           *time.Time          `json:"deleted_at" bson:"deleted_at"`
}

// CanReceiveCommissions reports whether the user is allowed to earn MLM
// commissions at all; the cumulative purchase threshold is checked separately.
func (u *User) CanReceiveCommissions() bool {
	return u.Status == UserStatusActive && u.IsMLMEligible && u.DeletedAt == nil
}

func (u *User) IsBanned() bool {
	return u.Status == UserStatusBanned || u.Status == UserStatusSuspended
}
