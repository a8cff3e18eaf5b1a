package services

import (
	"context"
	"time"

	"wattschain/internal/config"
	"wattschain/internal/models"
	"wattschain/internal/repositories/interfaces"
	"wattschain/internal/utils"
	"wattschain/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TokenService settles presale token purchases. Settlement books the ledger
// transaction, credits tokens and activates the buyer's tree node in one
// transaction; commission distribution runs right after as its own atomic
// unit and can be replayed safely because distribution is idempotent per
// transaction.
type TokenService interface {
	PurchaseTokens(ctx context.Context, req *PurchaseRequest) (*models.PurchaseResult, error)
	GetTransaction(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Transaction, int64, error)
}

type PurchaseRequest struct {
	UserID        primitive.ObjectID `json:"user_id"`
	Amount        float64            `json:"amount" binding:"required,gt=0"`
	PaymentMethod string             `json:"payment_method"`
	Reference     string             `json:"reference"`
	IPAddress     string             `json:"ip_address"`
}

type tokenService struct {
	txRunner        interfaces.TxRunner
	transactionRepo interfaces.TransactionRepository
	walletRepo      interfaces.WalletRepository
	userRepo        interfaces.UserRepository
	treeRepo        interfaces.TreeRepository
	mlmService      MLMService
	mlmConfig       *config.MLMConfig
	presaleConfig   *config.PresaleConfig
	logger          *logger.Logger
}

func NewTokenService(
	txRunner interfaces.TxRunner,
	transactionRepo interfaces.TransactionRepository,
	walletRepo interfaces.WalletRepository,
	userRepo interfaces.UserRepository,
	treeRepo interfaces.TreeRepository,
	mlmService MLMService,
	mlmConfig *config.MLMConfig,
	presaleConfig *config.PresaleConfig,
	logger *logger.Logger,
) TokenService {
	return &tokenService{
		txRunner:        txRunner,
		transactionRepo: transactionRepo,
		walletRepo:      walletRepo,
		userRepo:        userRepo,
		treeRepo:        treeRepo,
		mlmService:      mlmService,
		mlmConfig:       mlmConfig,
		presaleConfig:   presaleConfig,
		logger:          logger,
	}
}

func (s *tokenService) PurchaseTokens(ctx context.Context, req *PurchaseRequest) (*models.PurchaseResult, error) {
	if req.Amount < s.presaleConfig.MinPurchase {
		return nil, utils.NewValidationError("amount", "below the presale minimum")
	}
	if req.Amount > s.presaleConfig.MaxPurchase {
		return nil, utils.NewValidationError("amount", "above the presale maximum")
	}

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user.IsBanned() {
		return nil, utils.NewValidationError("user_id", "account is not allowed to purchase")
	}

	tokens := s.presaleConfig.TokensFor(req.Amount)
	processedAt := time.Now()
	qualifying := req.Amount >= s.mlmConfig.MinPurchaseAmount

	result, err := s.txRunner.WithTransaction(ctx, func(ctx context.Context) (interface{}, error) {
		txn := &models.Transaction{
			UserID:        req.UserID,
			Type:          models.TransactionTypeTokenPurchase,
			Status:        models.TransactionStatusCompleted,
			Amount:        req.Amount,
			TokenAmount:   tokens,
			TokenPrice:    s.presaleConfig.TokenPrice,
			Currency:      utils.DefaultCurrency,
			PaymentMethod: req.PaymentMethod,
			Reference:     req.Reference,
			IPAddress:     req.IPAddress,
			ProcessedAt:   &processedAt,
		}
		if err := s.transactionRepo.Create(ctx, txn); err != nil {
			return nil, err
		}

		if err := s.walletRepo.CreditTokens(ctx, req.UserID, tokens); err != nil {
			return nil, err
		}

		if qualifying {
			if err := s.userRepo.RecordQualifyingPurchase(ctx, req.UserID, req.Amount, processedAt); err != nil {
				return nil, err
			}
			if err := s.treeRepo.Activate(ctx, req.UserID, req.Amount, processedAt); err != nil {
				return nil, err
			}
		}

		return txn, nil
	})
	if err != nil {
		if utils.IsNotFound(err) || utils.IsConflict(err) || utils.IsValidation(err) {
			return nil, err
		}
		return nil, utils.NewTransactionAbortError("purchase_tokens", err)
	}

	txn := result.(*models.Transaction)
	purchase := &models.PurchaseResult{
		TransactionID:  txn.ID,
		TokensCredited: tokens,
	}

	s.logger.WithUserID(req.UserID).WithTransactionID(txn.ID).WithFields(map[string]interface{}{
		"event":      utils.EventTokenPurchased,
		"amount":     req.Amount,
		"tokens":     tokens,
		"qualifying": qualifying,
	}).Info("Token purchase settled")

	distribution, err := s.mlmService.DistributeCommissions(ctx, txn.ID)
	if err != nil {
		// The purchase is already settled; distribution failures are
		// recoverable by replaying DistributeCommissions for this
		// transaction.
		if !utils.IsConflict(err) {
			s.logger.WithTransactionID(txn.ID).WithError(err).Error("Commission distribution failed after settlement")
		}
		return purchase, nil
	}

	purchase.CommissionsCreated = distribution.CommissionsCreated
	purchase.CommissionTotal = distribution.TotalAmount

	return purchase, nil
}

func (s *tokenService) GetTransaction(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	return s.transactionRepo.GetByID(ctx, id)
}

func (s *tokenService) ListTransactions(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Transaction, int64, error) {
	return s.transactionRepo.ListByUser(ctx, userID, params)
}
