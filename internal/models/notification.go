package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string
type NotificationStatus string

const (
	NotificationTypeCommissionEarned   NotificationType = "commission_earned"
	NotificationTypeCommissionUnlocked NotificationType = "commission_unlocked"
	NotificationTypeWithdrawalDone     NotificationType = "withdrawal_completed"
	NotificationTypeGeneral            NotificationType = "general"

	NotificationStatusUnread NotificationStatus = "unread"
	NotificationStatusRead   NotificationStatus = "read"
	NotificationStatusFailed NotificationStatus = "failed"
)

type Notification struct {
	ID        primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID     `json:"user_id" bson:"user_id" validate:"required"`
	Type      NotificationType       `json:"type" bson:"type" validate:"required"`
	Status    NotificationStatus     `json:"status" bson:"status" default:"unread"`
	Title     string                 `json:"title" bson:"title"`
	Message   string                 `json:"message" bson:"message"`
	Data      map[string]interface{} `json:"data" bson:"data"`
	ReadAt    *time.Time             `json:"read_at" bson:"read_at"`
	CreatedAt time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time              `json:"updated_at" bson:"updated_at"`
}

// CommissionEvent is the fire-and-forget payload handed to the notification
// dispatcher when a commission is granted.
type CommissionEvent struct {
	BeneficiaryID primitive.ObjectID `json:"beneficiary_id"`
	FromUserID    primitive.ObjectID `json:"from_user_id"`
	CommissionID  primitive.ObjectID `json:"commission_id"`
	Level         int                `json:"level"`
	Amount        float64            `json:"amount"`
	LockedUntil   time.Time          `json:"locked_until"`
}
