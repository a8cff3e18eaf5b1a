package services

import (
	"context"
	"fmt"

	"wattschain/internal/models"
	"wattschain/internal/repositories/interfaces"
	"wattschain/internal/utils"
	"wattschain/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationService persists and dispatches user-facing notifications.
// The Notify methods are fire-and-forget: a dispatch failure is logged and
// never propagated into the flow that triggered it.
type NotificationService interface {
	NotifyCommissionEarned(ctx context.Context, event *models.CommissionEvent)
	NotifyCommissionUnlocked(ctx context.Context, userID, commissionID primitive.ObjectID, amount float64)
	NotifyWithdrawalCompleted(ctx context.Context, userID, transactionID primitive.ObjectID, amount float64)

	ListNotifications(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Notification, int64, error)
	MarkRead(ctx context.Context, id primitive.ObjectID) error
}

type notificationService struct {
	notificationRepo interfaces.NotificationRepository
	logger           *logger.Logger
}

func NewNotificationService(notificationRepo interfaces.NotificationRepository, logger *logger.Logger) NotificationService {
	return &notificationService{
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

func (s *notificationService) NotifyCommissionEarned(ctx context.Context, event *models.CommissionEvent) {
	notification := &models.Notification{
		UserID: event.BeneficiaryID,
		Type:   models.NotificationTypeCommissionEarned,
		Status: models.NotificationStatusUnread,
		Title:  "Commission earned",
		Message: fmt.Sprintf("You earned a level %d commission of %.2f %s. It unlocks on %s.",
			event.Level, event.Amount, utils.DefaultCurrency, event.LockedUntil.Format("2 Jan 2006")),
		Data: map[string]interface{}{
			"commission_id": event.CommissionID.Hex(),
			"from_user_id":  event.FromUserID.Hex(),
			"level":         event.Level,
			"amount":        event.Amount,
			"locked_until":  event.LockedUntil,
		},
	}

	s.deliver(ctx, notification, utils.EventCommissionEarned)
}

func (s *notificationService) NotifyCommissionUnlocked(ctx context.Context, userID, commissionID primitive.ObjectID, amount float64) {
	notification := &models.Notification{
		UserID:  userID,
		Type:    models.NotificationTypeCommissionUnlocked,
		Status:  models.NotificationStatusUnread,
		Title:   "Commission unlocked",
		Message: fmt.Sprintf("Your commission of %.2f %s is now available for withdrawal.", amount, utils.DefaultCurrency),
		Data: map[string]interface{}{
			"commission_id": commissionID.Hex(),
			"amount":        amount,
		},
	}

	s.deliver(ctx, notification, utils.EventCommissionUnlocked)
}

func (s *notificationService) NotifyWithdrawalCompleted(ctx context.Context, userID, transactionID primitive.ObjectID, amount float64) {
	notification := &models.Notification{
		UserID:  userID,
		Type:    models.NotificationTypeWithdrawalDone,
		Status:  models.NotificationStatusUnread,
		Title:   "Withdrawal completed",
		Message: fmt.Sprintf("Your withdrawal of %.2f %s has been processed.", amount, utils.DefaultCurrency),
		Data: map[string]interface{}{
			"transaction_id": transactionID.Hex(),
			"amount":         amount,
		},
	}

	s.deliver(ctx, notification, utils.EventCommissionWithdrawn)
}

func (s *notificationService) deliver(ctx context.Context, notification *models.Notification, event string) {
	deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), utils.NotificationTimeout)
	defer cancel()

	if err := s.notificationRepo.Create(deliverCtx, notification); err != nil {
		s.logger.WithUserID(notification.UserID).WithError(err).
			WithField("event", event).Error("Failed to deliver notification")
		return
	}

	s.logger.WithUserID(notification.UserID).WithField("event", event).Debug("Notification delivered")
}

func (s *notificationService) ListNotifications(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Notification, int64, error) {
	return s.notificationRepo.ListByUser(ctx, userID, params)
}

func (s *notificationService) MarkRead(ctx context.Context, id primitive.ObjectID) error {
	return s.notificationRepo.MarkRead(ctx, id)
}
