package services

import (
	"context"
	"io"
	"time"

	"wattschain/internal/config"
	"wattschain/internal/models"
	"wattschain/internal/utils"
	"wattschain/pkg/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes. They honor the same typed-error and
// compare-and-set contracts as the mongodb implementations so the services
// can be exercised without a database.

func newTestLogger() *logger.Logger {
	log, _ := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel("error"),
		Format: "text",
	})
	log.SetOutput(io.Discard)
	return log
}

func testMLMConfig() *config.MLMConfig {
	return &config.MLMConfig{
		MaxLevel:             5,
		CommissionRates:      []float64{10, 5, 3, 2, 1},
		MinPurchaseAmount:    100000,
		LockPeriodMonths:     12,
		MaxDailyReferrals:    10,
		MaxHourlyPurchases:   5,
		LargeAmountThreshold: 1000000,
		SharedIPThreshold:    3,
		MediumRiskThreshold:  0.6,
		UnlockSweepBatch:     500,
		UnlockSweepInterval:  time.Hour,
		TreeAuditInterval:    24 * time.Hour,
	}
}

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	return fn(ctx)
}

type fakeUserRepo struct {
	users map[primitive.ObjectID]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*models.User)}
}

func (f *fakeUserRepo) put(user *models.User) *models.User {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	f.users[user.ID] = user
	return user
}

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	f.put(user)
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok || user.DeletedAt != nil {
		return nil, utils.NewNotFoundError("user", id.Hex())
	}
	return user, nil
}

func (f *fakeUserRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]*models.User, error) {
	var users []*models.User
	for _, id := range ids {
		if user, ok := f.users[id]; ok && user.DeletedAt == nil {
			users = append(users, user)
		}
	}
	return users, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range f.users {
		if user.Email == email && user.DeletedAt == nil {
			return user, nil
		}
	}
	return nil, utils.NewNotFoundError("user", email)
}

func (f *fakeUserRepo) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	for _, user := range f.users {
		if user.ReferralCode == code && user.DeletedAt == nil {
			return user, nil
		}
	}
	return nil, utils.NewNotFoundError("user", code)
}

func (f *fakeUserRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	if _, ok := f.users[id]; !ok {
		return utils.NewNotFoundError("user", id.Hex())
	}
	return nil
}

func (f *fakeUserRepo) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	user, ok := f.users[id]
	return ok && user.DeletedAt == nil, nil
}

func (f *fakeUserRepo) RecordQualifyingPurchase(ctx context.Context, id primitive.ObjectID, amount float64, activatedAt time.Time) error {
	user, ok := f.users[id]
	if !ok {
		return utils.NewNotFoundError("user", id.Hex())
	}
	user.IsMLMEligible = true
	user.TotalPurchaseAmount += amount
	if user.MLMActivatedAt == nil {
		at := activatedAt
		user.MLMActivatedAt = &at
	}
	return nil
}

type fakeTreeRepo struct {
	nodes map[primitive.ObjectID]*models.TreeNode
}

func newFakeTreeRepo() *fakeTreeRepo {
	return &fakeTreeRepo{nodes: make(map[primitive.ObjectID]*models.TreeNode)}
}

func (f *fakeTreeRepo) Create(ctx context.Context, node *models.TreeNode) error {
	if _, ok := f.nodes[node.UserID]; ok {
		return utils.NewConflictError("tree node", "node already exists for user "+node.UserID.Hex())
	}
	node.ID = primitive.NewObjectID()
	if node.CreatedAt.IsZero() {
		node.CreatedAt = time.Now()
	}
	f.nodes[node.UserID] = node
	return nil
}

func (f *fakeTreeRepo) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.TreeNode, error) {
	node, ok := f.nodes[userID]
	if !ok {
		return nil, utils.NewNotFoundError("tree node", userID.Hex())
	}
	return node, nil
}

func (f *fakeTreeRepo) Exists(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	_, ok := f.nodes[userID]
	return ok, nil
}

func (f *fakeTreeRepo) RegisterDirectReferral(ctx context.Context, referrerID, childID primitive.ObjectID) error {
	node, ok := f.nodes[referrerID]
	if !ok {
		return utils.NewNotFoundError("tree node", referrerID.Hex())
	}
	node.DownlineMembers = append(node.DownlineMembers, childID)
	node.DirectReferrals++
	node.TotalDownlineCount++
	node.LevelCounts[0]++
	return nil
}

func (f *fakeTreeRepo) IncrementAncestorCounters(ctx context.Context, ancestorID primitive.ObjectID, relativeDepth int) error {
	node, ok := f.nodes[ancestorID]
	if !ok {
		return utils.NewNotFoundError("tree node", ancestorID.Hex())
	}
	node.TotalDownlineCount++
	if relativeDepth >= 1 && relativeDepth <= models.MaxTreeLevel {
		node.LevelCounts[relativeDepth-1]++
	}
	return nil
}

func (f *fakeTreeRepo) Activate(ctx context.Context, userID primitive.ObjectID, purchaseAmount float64, activatedAt time.Time) error {
	node, ok := f.nodes[userID]
	if !ok {
		return utils.NewNotFoundError("tree node", userID.Hex())
	}
	node.IsActive = true
	node.PersonalVolume += purchaseAmount
	if node.ActivatedAt == nil {
		at := activatedAt
		node.ActivatedAt = &at
	}
	return nil
}

func (f *fakeTreeRepo) IncrementTotalVolume(ctx context.Context, userID primitive.ObjectID, amount float64) error {
	node, ok := f.nodes[userID]
	if !ok {
		return utils.NewNotFoundError("tree node", userID.Hex())
	}
	node.TotalVolume += amount
	return nil
}

func (f *fakeTreeRepo) SetFraudStatus(ctx context.Context, userID primitive.ObjectID, suspicious bool, flags []models.FraudFlag, auditedAt time.Time) error {
	node, ok := f.nodes[userID]
	if !ok {
		return utils.NewNotFoundError("tree node", userID.Hex())
	}
	node.IsSuspicious = suspicious
	node.FraudFlags = flags
	at := auditedAt
	node.LastAuditDate = &at
	return nil
}

func (f *fakeTreeRepo) DemoteToRoot(ctx context.Context, userID primitive.ObjectID) error {
	node, ok := f.nodes[userID]
	if !ok {
		return utils.NewNotFoundError("tree node", userID.Hex())
	}
	node.ReferrerID = nil
	node.Level = 0
	node.UplineMembers = []primitive.ObjectID{}
	return nil
}

func (f *fakeTreeRepo) SetLevelCounts(ctx context.Context, userID primitive.ObjectID, counts [models.MaxTreeLevel]int64) error {
	node, ok := f.nodes[userID]
	if !ok {
		return utils.NewNotFoundError("tree node", userID.Hex())
	}
	node.LevelCounts = counts
	return nil
}

func (f *fakeTreeRepo) CountReferralsSince(ctx context.Context, referrerID primitive.ObjectID, since time.Time) (int64, error) {
	var count int64
	for _, node := range f.nodes {
		if node.ReferrerID != nil && *node.ReferrerID == referrerID && !node.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeTreeRepo) GetAll(ctx context.Context) ([]*models.TreeNode, error) {
	var nodes []*models.TreeNode
	for _, node := range f.nodes {
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (f *fakeTreeRepo) GetTreeStats(ctx context.Context) (*models.TreeStats, error) {
	stats := &models.TreeStats{
		LevelDistribution: make(map[int]int64),
		GeneratedAt:       time.Now(),
	}
	for _, node := range f.nodes {
		stats.TotalMembers++
		if node.IsActive {
			stats.ActiveMembers++
		}
		stats.TotalVolume += node.PersonalVolume
		stats.LevelDistribution[node.Level]++
		if node.Level > stats.MaxDepth {
			stats.MaxDepth = node.Level
		}
	}
	return stats, nil
}

type fakeCommissionRepo struct {
	commissions map[primitive.ObjectID]*models.Commission
	order       []primitive.ObjectID
}

func newFakeCommissionRepo() *fakeCommissionRepo {
	return &fakeCommissionRepo{commissions: make(map[primitive.ObjectID]*models.Commission)}
}

func (f *fakeCommissionRepo) Create(ctx context.Context, commission *models.Commission) error {
	commission.ID = primitive.NewObjectID()
	commission.CreatedAt = time.Now()
	f.commissions[commission.ID] = commission
	f.order = append(f.order, commission.ID)
	return nil
}

func (f *fakeCommissionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Commission, error) {
	commission, ok := f.commissions[id]
	if !ok {
		return nil, utils.NewNotFoundError("commission", id.Hex())
	}
	return commission, nil
}

func (f *fakeCommissionRepo) ListByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Commission, int64, error) {
	var out []*models.Commission
	for _, id := range f.order {
		if f.commissions[id].UserID == userID {
			out = append(out, f.commissions[id])
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeCommissionRepo) ExistsForTransaction(ctx context.Context, transactionID primitive.ObjectID) (bool, error) {
	for _, commission := range f.commissions {
		if commission.TransactionID == transactionID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCommissionRepo) FindExpiredLocked(ctx context.Context, asOf time.Time, limit int) ([]*models.Commission, error) {
	var out []*models.Commission
	for _, id := range f.order {
		commission := f.commissions[id]
		if commission.Status == models.CommissionStatusLocked && !commission.LockedUntil.After(asOf) {
			out = append(out, commission)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeCommissionRepo) UnlockIfLocked(ctx context.Context, id primitive.ObjectID, unlockedAt time.Time) (bool, error) {
	commission, ok := f.commissions[id]
	if !ok || commission.Status != models.CommissionStatusLocked {
		return false, nil
	}
	commission.Status = models.CommissionStatusUnlocked
	at := unlockedAt
	commission.UnlockedAt = &at
	return true, nil
}

func (f *fakeCommissionRepo) WithdrawIfUnlocked(ctx context.Context, id primitive.ObjectID, withdrawnAt time.Time) (bool, error) {
	commission, ok := f.commissions[id]
	if !ok || commission.Status != models.CommissionStatusUnlocked {
		return false, nil
	}
	commission.Status = models.CommissionStatusWithdrawn
	at := withdrawnAt
	commission.WithdrawnAt = &at
	return true, nil
}

func (f *fakeCommissionRepo) SumActiveByUser(ctx context.Context, userID primitive.ObjectID) (float64, error) {
	var total float64
	for _, commission := range f.commissions {
		if commission.UserID == userID && commission.Status != models.CommissionStatusCancelled {
			total += commission.Amount
		}
	}
	return total, nil
}

type fakeWalletRepo struct {
	wallets map[primitive.ObjectID]*models.Wallet
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{wallets: make(map[primitive.ObjectID]*models.Wallet)}
}

func (f *fakeWalletRepo) get(userID primitive.ObjectID) *models.Wallet {
	wallet, ok := f.wallets[userID]
	if !ok {
		wallet = &models.Wallet{
			ID:       primitive.NewObjectID(),
			UserID:   userID,
			Currency: utils.DefaultCurrency,
		}
		f.wallets[userID] = wallet
	}
	return wallet
}

func (f *fakeWalletRepo) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*models.Wallet, error) {
	wallet, ok := f.wallets[userID]
	if !ok {
		return nil, utils.NewNotFoundError("wallet", userID.Hex())
	}
	return wallet, nil
}

func (f *fakeWalletRepo) GetOrCreate(ctx context.Context, userID primitive.ObjectID) (*models.Wallet, error) {
	return f.get(userID), nil
}

func (f *fakeWalletRepo) CreditLockedCommission(ctx context.Context, userID primitive.ObjectID, amount float64) error {
	wallet := f.get(userID)
	wallet.LockedBalance += amount
	wallet.TotalCommissionsEarned += amount
	wallet.PendingCommissions += amount
	return nil
}

func (f *fakeWalletRepo) ReleaseLockedCommission(ctx context.Context, userID primitive.ObjectID, amount float64) error {
	wallet := f.get(userID)
	wallet.LockedBalance -= amount
	wallet.AvailableBalance += amount
	wallet.PendingCommissions -= amount
	return nil
}

func (f *fakeWalletRepo) DebitWithdrawal(ctx context.Context, userID primitive.ObjectID, amount float64) error {
	wallet := f.get(userID)
	wallet.AvailableBalance -= amount
	wallet.TotalCommissionsWithdrawn += amount
	return nil
}

func (f *fakeWalletRepo) CreditTokens(ctx context.Context, userID primitive.ObjectID, tokens float64) error {
	wallet := f.get(userID)
	wallet.TokenBalance += tokens
	return nil
}

type fakeTransactionRepo struct {
	transactions map[primitive.ObjectID]*models.Transaction
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{transactions: make(map[primitive.ObjectID]*models.Transaction)}
}

func (f *fakeTransactionRepo) Create(ctx context.Context, transaction *models.Transaction) error {
	transaction.ID = primitive.NewObjectID()
	transaction.CreatedAt = time.Now()
	f.transactions[transaction.ID] = transaction
	return nil
}

func (f *fakeTransactionRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Transaction, error) {
	transaction, ok := f.transactions[id]
	if !ok {
		return nil, utils.NewNotFoundError("transaction", id.Hex())
	}
	return transaction, nil
}

func (f *fakeTransactionRepo) ListByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Transaction, int64, error) {
	var out []*models.Transaction
	for _, transaction := range f.transactions {
		if transaction.UserID == userID {
			out = append(out, transaction)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeTransactionRepo) CountByUserSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (int64, error) {
	var count int64
	for _, transaction := range f.transactions {
		if transaction.UserID == userID &&
			transaction.Status == models.TransactionStatusCompleted &&
			!transaction.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeTransactionRepo) MaxAmountByUserSince(ctx context.Context, userID primitive.ObjectID, since time.Time) (float64, error) {
	var max float64
	for _, transaction := range f.transactions {
		if transaction.UserID == userID &&
			transaction.Status == models.TransactionStatusCompleted &&
			!transaction.CreatedAt.Before(since) &&
			transaction.Amount > max {
			max = transaction.Amount
		}
	}
	return max, nil
}

type fakeNotificationRepo struct {
	notifications []*models.Notification
}

func (f *fakeNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	notification.ID = primitive.NewObjectID()
	notification.CreatedAt = time.Now()
	f.notifications = append(f.notifications, notification)
	return nil
}

func (f *fakeNotificationRepo) ListByUser(ctx context.Context, userID primitive.ObjectID, params *utils.PaginationParams) ([]*models.Notification, int64, error) {
	var out []*models.Notification
	for _, notification := range f.notifications {
		if notification.UserID == userID {
			out = append(out, notification)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id primitive.ObjectID) error {
	for _, notification := range f.notifications {
		if notification.ID == id {
			notification.Status = models.NotificationStatusRead
			return nil
		}
	}
	return utils.NewNotFoundError("notification", id.Hex())
}
