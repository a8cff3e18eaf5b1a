package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"wattschain/internal/config"
	"wattschain/internal/models"
	"wattschain/internal/repositories/interfaces"
	"wattschain/internal/utils"
	"wattschain/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MLMService is the commission engine: referral tree placement, activation,
// commission distribution with time locks, the unlock sweep and withdrawals.
type MLMService interface {
	// Tree placement
	InsertNode(ctx context.Context, userID primitive.ObjectID, referralCode string) (*models.TreeNode, error)
	Activate(ctx context.Context, userID primitive.ObjectID, purchaseAmount float64) error
	ValidateReferralCode(ctx context.Context, code string) (*models.ReferralValidation, error)

	// Commission lifecycle
	DistributeCommissions(ctx context.Context, transactionID primitive.ObjectID) (*models.DistributionResult, error)
	UnlockExpiredCommissions(ctx context.Context) (*models.UnlockResult, error)
	WithdrawCommission(ctx context.Context, userID, commissionID primitive.ObjectID) (*models.Transaction, error)
	ListCommissions(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Commission, int64, error)

	// Read surface
	GetTreeData(ctx context.Context, userID primitive.ObjectID) (*models.TreeData, error)
	GetWallet(ctx context.Context, userID primitive.ObjectID) (*models.Wallet, error)
	GetAnalytics(ctx context.Context) (*models.TreeStats, error)
}

type mlmService struct {
	txRunner        interfaces.TxRunner
	treeRepo        interfaces.TreeRepository
	commissionRepo  interfaces.CommissionRepository
	walletRepo      interfaces.WalletRepository
	userRepo        interfaces.UserRepository
	transactionRepo interfaces.TransactionRepository
	notifications   NotificationService
	cache           CacheService
	config          *config.MLMConfig
	logger          *logger.Logger
}

func NewMLMService(
	txRunner interfaces.TxRunner,
	treeRepo interfaces.TreeRepository,
	commissionRepo interfaces.CommissionRepository,
	walletRepo interfaces.WalletRepository,
	userRepo interfaces.UserRepository,
	transactionRepo interfaces.TransactionRepository,
	notifications NotificationService,
	cache CacheService,
	cfg *config.MLMConfig,
	logger *logger.Logger,
) MLMService {
	return &mlmService{
		txRunner:        txRunner,
		treeRepo:        treeRepo,
		commissionRepo:  commissionRepo,
		walletRepo:      walletRepo,
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		notifications:   notifications,
		cache:           cache,
		config:          cfg,
		logger:          logger,
	}
}

// runTx scopes fn to one storage transaction. Typed domain errors pass
// through untouched so handlers can map them; anything else is surfaced as a
// transaction abort.
func (s *mlmService) runTx(ctx context.Context, op string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	result, err := s.txRunner.WithTransaction(ctx, fn)
	if err != nil {
		if utils.IsNotFound(err) || utils.IsConflict(err) || utils.IsValidation(err) {
			return nil, err
		}
		return nil, utils.NewTransactionAbortError(op, err)
	}
	return result, nil
}

// InsertNode places a user into the referral tree. An empty referral code
// creates a new root. The node insert, the referrer's downline registration
// and every ancestor counter update commit or abort together.
func (s *mlmService) InsertNode(ctx context.Context, userID primitive.ObjectID, referralCode string) (*models.TreeNode, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsBanned() {
		return nil, utils.NewValidationError("user_id", "account is not allowed to join the tree")
	}

	result, err := s.runTx(ctx, "insert_node", func(ctx context.Context) (interface{}, error) {
		exists, err := s.treeRepo.Exists(ctx, userID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, utils.NewConflictError("tree node", "user already placed in the tree")
		}

		node := &models.TreeNode{
			UserID:          userID,
			Level:           0,
			UplineMembers:   []primitive.ObjectID{},
			DownlineMembers: []primitive.ObjectID{},
			FraudFlags:      []models.FraudFlag{},
		}

		if referralCode == "" {
			if err := s.treeRepo.Create(ctx, node); err != nil {
				return nil, err
			}
			return node, nil
		}

		referrer, err := s.userRepo.GetByReferralCode(ctx, referralCode)
		if err != nil {
			if utils.IsNotFound(err) {
				return nil, utils.NewValidationError("referral_code", "code does not resolve to a member")
			}
			return nil, err
		}
		if referrer.ID == userID {
			return nil, utils.NewValidationError("referral_code", "self referral is not allowed")
		}
		if referrer.IsBanned() {
			return nil, utils.NewValidationError("referral_code", "referrer account is not in good standing")
		}

		referrerNode, err := s.treeRepo.GetByUserID(ctx, referrer.ID)
		if err != nil {
			return nil, err
		}

		node.ReferrerID = &referrer.ID
		node.Level = models.ChildLevel(referrerNode.Level)
		node.UplineMembers = models.BuildUpline(referrerNode)

		if err := s.treeRepo.Create(ctx, node); err != nil {
			return nil, err
		}

		if err := s.treeRepo.RegisterDirectReferral(ctx, referrer.ID, userID); err != nil {
			return nil, err
		}
		for i, ancestorID := range node.UplineMembers[1:] {
			if err := s.treeRepo.IncrementAncestorCounters(ctx, ancestorID, i+2); err != nil {
				return nil, err
			}
		}

		return node, nil
	})
	if err != nil {
		return nil, err
	}

	node := result.(*models.TreeNode)
	s.logger.LogTreeEvent(userID, "node_inserted", map[string]interface{}{
		"level":        node.Level,
		"upline_depth": len(node.UplineMembers),
	})

	return node, nil
}

// Activate marks a member commission-eligible after a qualifying purchase.
// The user eligibility flag and the tree node activation move together.
func (s *mlmService) Activate(ctx context.Context, userID primitive.ObjectID, purchaseAmount float64) error {
	if purchaseAmount < s.config.MinPurchaseAmount {
		return utils.NewValidationError("amount", utils.ErrBelowMinimum)
	}

	activatedAt := time.Now()
	_, err := s.runTx(ctx, "activate", func(ctx context.Context) (interface{}, error) {
		if err := s.userRepo.RecordQualifyingPurchase(ctx, userID, purchaseAmount, activatedAt); err != nil {
			return nil, err
		}
		if err := s.treeRepo.Activate(ctx, userID, purchaseAmount, activatedAt); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	s.logger.LogTreeEvent(userID, "node_activated", map[string]interface{}{
		"purchase_amount": purchaseAmount,
	})

	return nil
}

func (s *mlmService) ValidateReferralCode(ctx context.Context, code string) (*models.ReferralValidation, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return &models.ReferralValidation{Valid: false}, nil
	}

	referrer, err := s.userRepo.GetByReferralCode(ctx, code)
	if err != nil {
		if utils.IsNotFound(err) {
			return &models.ReferralValidation{Valid: false}, nil
		}
		return nil, err
	}
	if referrer.IsBanned() || referrer.DeletedAt != nil {
		return &models.ReferralValidation{Valid: false}, nil
	}

	return &models.ReferralValidation{
		Valid:        true,
		ReferrerID:   &referrer.ID,
		ReferrerName: fullName(referrer),
	}, nil
}

// DistributeCommissions fans a settled purchase out to the purchaser's
// upline. Each eligible ancestor at relative depth L gets the configured
// level-L percentage; ineligible ancestors are skipped without promoting
// deeper ones. The whole fan-out commits or aborts as a unit, and a
// transaction that has already been distributed is a conflict.
func (s *mlmService) DistributeCommissions(ctx context.Context, transactionID primitive.ObjectID) (*models.DistributionResult, error) {
	var events []*models.CommissionEvent

	result, err := s.runTx(ctx, "distribute_commissions", func(ctx context.Context) (interface{}, error) {
		events = events[:0]

		distributed, err := s.commissionRepo.ExistsForTransaction(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		if distributed {
			return nil, utils.NewConflictError("commission", "transaction already distributed")
		}

		txn, err := s.transactionRepo.GetByID(ctx, transactionID)
		if err != nil {
			return nil, err
		}
		if txn.Type != models.TransactionTypeTokenPurchase {
			return nil, utils.NewValidationError("transaction_id", "only token purchases earn commissions")
		}
		if txn.Status != models.TransactionStatusCompleted {
			return nil, utils.NewValidationError("transaction_id", "transaction is not settled")
		}

		// A buyer outside the referral forest has nobody to pay. Not an
		// error: registration tolerates a failed tree placement, so such
		// purchases settle with a zero fan-out.
		purchaserNode, err := s.treeRepo.GetByUserID(ctx, txn.UserID)
		if err != nil {
			if utils.IsNotFound(err) {
				return &models.DistributionResult{}, nil
			}
			return nil, err
		}

		earnedAt := time.Now()
		lockedUntil := earnedAt.AddDate(0, s.config.LockPeriodMonths, 0)

		distribution := &models.DistributionResult{}
		for i, ancestorID := range purchaserNode.UplineMembers {
			level := i + 1
			rate, ok := s.config.RateForLevel(level)
			if !ok {
				break
			}

			eligible, err := s.isEligibleBeneficiary(ctx, ancestorID)
			if err != nil {
				return nil, err
			}
			if !eligible {
				continue
			}

			amount := models.CommissionAmount(txn.Amount, rate)
			if amount <= 0 {
				continue
			}

			commission := &models.Commission{
				UserID:        ancestorID,
				FromUserID:    txn.UserID,
				TransactionID: txn.ID,
				Level:         level,
				Percentage:    rate,
				SourceAmount:  txn.Amount,
				Amount:        amount,
				Status:        models.CommissionStatusLocked,
				EarnedAt:      earnedAt,
				LockedUntil:   lockedUntil,
			}
			if err := s.commissionRepo.Create(ctx, commission); err != nil {
				return nil, err
			}
			if err := s.walletRepo.CreditLockedCommission(ctx, ancestorID, amount); err != nil {
				return nil, err
			}
			if err := s.treeRepo.IncrementTotalVolume(ctx, ancestorID, txn.Amount); err != nil {
				return nil, err
			}

			distribution.CommissionsCreated++
			distribution.TotalAmount += amount
			events = append(events, &models.CommissionEvent{
				BeneficiaryID: ancestorID,
				FromUserID:    txn.UserID,
				CommissionID:  commission.ID,
				Level:         level,
				Amount:        amount,
				LockedUntil:   lockedUntil,
			})
		}

		return distribution, nil
	})
	if err != nil {
		return nil, err
	}

	for _, event := range events {
		s.logger.LogCommissionEvent(event.CommissionID, utils.EventCommissionEarned, event.BeneficiaryID, event.Level, event.Amount)
		if s.notifications != nil {
			s.notifications.NotifyCommissionEarned(ctx, event)
		}
	}
	s.invalidateTreeStats(ctx)

	return result.(*models.DistributionResult), nil
}

// isEligibleBeneficiary applies the skip rules: the beneficiary must exist,
// be active and commission-eligible. Fraud flags on the node are advisory
// and never withhold a payout on their own.
func (s *mlmService) isEligibleBeneficiary(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if utils.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if !user.CanReceiveCommissions() {
		return false, nil
	}

	node, err := s.treeRepo.GetByUserID(ctx, userID)
	if err != nil {
		if utils.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	if !node.IsActive {
		return false, nil
	}

	return true, nil
}

// UnlockExpiredCommissions sweeps matured locks. Each commission moves in
// its own small transaction so one bad record never poisons the batch, and
// the compare-and-set transition makes concurrent sweeps idempotent.
func (s *mlmService) UnlockExpiredCommissions(ctx context.Context) (*models.UnlockResult, error) {
	now := time.Now()
	result := &models.UnlockResult{}

	for {
		batch, err := s.commissionRepo.FindExpiredLocked(ctx, now, s.config.UnlockSweepBatch)
		if err != nil {
			return result, fmt.Errorf("failed to scan expired commissions: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		progressed := 0
		for _, commission := range batch {
			moved, err := s.unlockOne(ctx, commission, now)
			if err != nil {
				s.logger.WithError(err).WithField("commission_id", commission.ID.Hex()).
					Error("Failed to unlock commission")
				continue
			}
			if !moved {
				continue
			}

			progressed++
			result.UnlockedCount++
			result.TotalAmount += commission.Amount

			s.logger.LogCommissionEvent(commission.ID, utils.EventCommissionUnlocked, commission.UserID, commission.Level, commission.Amount)
			if s.notifications != nil {
				s.notifications.NotifyCommissionUnlocked(ctx, commission.UserID, commission.ID, commission.Amount)
			}
		}

		if len(batch) < s.config.UnlockSweepBatch {
			break
		}
		// Nothing moved in a full batch means every record is stuck or was
		// taken by another sweeper; stop rather than spin.
		if progressed == 0 {
			break
		}
	}

	return result, nil
}

func (s *mlmService) unlockOne(ctx context.Context, commission *models.Commission, now time.Time) (bool, error) {
	moved, err := s.runTx(ctx, "unlock_commission", func(ctx context.Context) (interface{}, error) {
		moved, err := s.commissionRepo.UnlockIfLocked(ctx, commission.ID, now)
		if err != nil {
			return false, err
		}
		if !moved {
			return false, nil
		}
		if err := s.walletRepo.ReleaseLockedCommission(ctx, commission.UserID, commission.Amount); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return false, err
	}
	return moved.(bool), nil
}

// WithdrawCommission moves one unlocked commission out of the beneficiary's
// available balance and books the matching ledger transaction.
func (s *mlmService) WithdrawCommission(ctx context.Context, userID, commissionID primitive.ObjectID) (*models.Transaction, error) {
	withdrawnAt := time.Now()

	result, err := s.runTx(ctx, "withdraw_commission", func(ctx context.Context) (interface{}, error) {
		commission, err := s.commissionRepo.GetByID(ctx, commissionID)
		if err != nil {
			return nil, err
		}
		if commission.UserID != userID {
			return nil, utils.NewValidationError("commission_id", "commission does not belong to the user")
		}

		moved, err := s.commissionRepo.WithdrawIfUnlocked(ctx, commissionID, withdrawnAt)
		if err != nil {
			return nil, err
		}
		if !moved {
			return nil, utils.NewConflictError("commission", "commission is not available for withdrawal")
		}

		if err := s.walletRepo.DebitWithdrawal(ctx, userID, commission.Amount); err != nil {
			return nil, err
		}

		txn := &models.Transaction{
			UserID:      userID,
			Type:        models.TransactionTypeCommissionWithdrawal,
			Status:      models.TransactionStatusCompleted,
			Amount:      commission.Amount,
			Currency:    utils.DefaultCurrency,
			Reference:   "wd-" + commissionID.Hex(),
			ProcessedAt: &withdrawnAt,
		}
		if err := s.transactionRepo.Create(ctx, txn); err != nil {
			return nil, err
		}

		return txn, nil
	})
	if err != nil {
		return nil, err
	}

	txn := result.(*models.Transaction)
	s.logger.LogCommissionEvent(commissionID, utils.EventCommissionWithdrawn, userID, 0, txn.Amount)
	if s.notifications != nil {
		s.notifications.NotifyWithdrawalCompleted(ctx, userID, txn.ID, txn.Amount)
	}

	return txn, nil
}

func (s *mlmService) ListCommissions(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Commission, int64, error) {
	return s.commissionRepo.ListByUser(ctx, userID, params)
}

func (s *mlmService) GetTreeData(ctx context.Context, userID primitive.ObjectID) (*models.TreeData, error) {
	node, err := s.treeRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	data := &models.TreeData{
		Node:           node,
		DirectDownline: []models.TreeMemberSummary{},
	}

	if node.ReferrerID != nil {
		if summary, err := s.memberSummary(ctx, *node.ReferrerID); err == nil {
			data.Referrer = summary
		}
	}

	for _, childID := range node.DownlineMembers {
		summary, err := s.memberSummary(ctx, childID)
		if err != nil {
			s.logger.WithError(err).WithField("child_id", childID.Hex()).Warn("Skipping unresolvable downline member")
			continue
		}
		data.DirectDownline = append(data.DirectDownline, *summary)
	}

	return data, nil
}

func (s *mlmService) memberSummary(ctx context.Context, userID primitive.ObjectID) (*models.TreeMemberSummary, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	node, err := s.treeRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.TreeMemberSummary{
		UserID:       userID,
		Name:         fullName(user),
		ReferralCode: user.ReferralCode,
		Level:        node.Level,
		IsActive:     node.IsActive,
		JoinedAt:     node.CreatedAt,
	}, nil
}

func (s *mlmService) GetWallet(ctx context.Context, userID primitive.ObjectID) (*models.Wallet, error) {
	return s.walletRepo.GetOrCreate(ctx, userID)
}

func (s *mlmService) GetAnalytics(ctx context.Context) (*models.TreeStats, error) {
	if s.cache != nil {
		var cached models.TreeStats
		if err := s.cache.Get(ctx, utils.CacheTreeStatsKey, &cached); err == nil {
			return &cached, nil
		}
	}

	stats, err := s.treeRepo.GetTreeStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to build tree analytics: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, utils.CacheTreeStatsKey, stats, 5*time.Minute)
	}

	return stats, nil
}

func (s *mlmService) invalidateTreeStats(ctx context.Context) {
	if s.cache != nil {
		s.cache.Delete(ctx, utils.CacheTreeStatsKey)
	}
}

func fullName(user *models.User) string {
	return strings.TrimSpace(user.FirstName + " " + user.LastName)
}
