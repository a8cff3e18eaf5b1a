package services

import (
	"context"
	"testing"
	"time"

	"wattschain/internal/models"
	"wattschain/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type mlmTestEnv struct {
	users        *fakeUserRepo
	tree         *fakeTreeRepo
	commissions  *fakeCommissionRepo
	wallets      *fakeWalletRepo
	transactions *fakeTransactionRepo
	service      MLMService
}

func newMLMTestEnv(t *testing.T) *mlmTestEnv {
	t.Helper()

	env := &mlmTestEnv{
		users:        newFakeUserRepo(),
		tree:         newFakeTreeRepo(),
		commissions:  newFakeCommissionRepo(),
		wallets:      newFakeWalletRepo(),
		transactions: newFakeTransactionRepo(),
	}
	env.service = NewMLMService(
		&fakeTxRunner{},
		env.tree,
		env.commissions,
		env.wallets,
		env.users,
		env.transactions,
		nil,
		nil,
		testMLMConfig(),
		newTestLogger(),
	)
	return env
}

func (env *mlmTestEnv) addMember(t *testing.T, code string, referralCode string) *models.User {
	t.Helper()

	user := env.users.put(&models.User{
		FirstName:    "Member",
		LastName:     code,
		Email:        code + "@example.com",
		Status:       models.UserStatusActive,
		ReferralCode: code,
	})

	_, err := env.service.InsertNode(context.Background(), user.ID, referralCode)
	require.NoError(t, err)
	return user
}

func (env *mlmTestEnv) activate(t *testing.T, userID primitive.ObjectID) {
	t.Helper()
	require.NoError(t, env.service.Activate(context.Background(), userID, 150000))
}

// buildChain creates a referral chain root -> a -> b -> ... and returns the
// members outermost first.
func (env *mlmTestEnv) buildChain(t *testing.T, length int) []*models.User {
	t.Helper()

	members := make([]*models.User, 0, length)
	parentCode := ""
	for i := 0; i < length; i++ {
		code := "CHAIN" + string(rune('A'+i))
		user := env.addMember(t, code, parentCode)
		env.activate(t, user.ID)
		members = append(members, user)
		parentCode = code
	}
	return members
}

func (env *mlmTestEnv) settlePurchase(t *testing.T, userID primitive.ObjectID, amount float64) *models.Transaction {
	t.Helper()

	now := time.Now()
	txn := &models.Transaction{
		UserID:      userID,
		Type:        models.TransactionTypeTokenPurchase,
		Status:      models.TransactionStatusCompleted,
		Amount:      amount,
		Currency:    utils.DefaultCurrency,
		ProcessedAt: &now,
	}
	require.NoError(t, env.transactions.Create(context.Background(), txn))
	return txn
}

func TestInsertNodeRoot(t *testing.T) {
	env := newMLMTestEnv(t)
	user := env.addMember(t, "ROOT1234", "")

	node, err := env.tree.GetByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Nil(t, node.ReferrerID)
	assert.Equal(t, 0, node.Level)
	assert.Empty(t, node.UplineMembers)
}

func TestInsertNodeUnderReferrer(t *testing.T) {
	env := newMLMTestEnv(t)
	root := env.addMember(t, "ROOT1234", "")
	child := env.addMember(t, "CHLD1234", "ROOT1234")

	childNode, err := env.tree.GetByUserID(context.Background(), child.ID)
	require.NoError(t, err)
	require.NotNil(t, childNode.ReferrerID)
	assert.Equal(t, root.ID, *childNode.ReferrerID)
	assert.Equal(t, 1, childNode.Level)
	assert.Equal(t, []primitive.ObjectID{root.ID}, childNode.UplineMembers)

	rootNode, err := env.tree.GetByUserID(context.Background(), root.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rootNode.DirectReferrals)
	assert.Equal(t, int64(1), rootNode.TotalDownlineCount)
	assert.Equal(t, int64(1), rootNode.LevelCounts[0])
	assert.Equal(t, []primitive.ObjectID{child.ID}, rootNode.DownlineMembers)
}

func TestInsertNodeUplineTruncation(t *testing.T) {
	env := newMLMTestEnv(t)
	members := env.buildChain(t, 7)

	deepest, err := env.tree.GetByUserID(context.Background(), members[6].ID)
	require.NoError(t, err)

	// Only the five nearest ancestors are carried, nearest first.
	require.Len(t, deepest.UplineMembers, models.MaxTreeLevel)
	assert.Equal(t, members[5].ID, deepest.UplineMembers[0])
	assert.Equal(t, members[1].ID, deepest.UplineMembers[4])

	// The root only counts descendants within the tracked depth window.
	rootNode, err := env.tree.GetByUserID(context.Background(), members[0].ID)
	require.NoError(t, err)
	assert.Equal(t, [models.MaxTreeLevel]int64{1, 1, 1, 1, 1}, rootNode.LevelCounts)
}

func TestInsertNodeDuplicateConflicts(t *testing.T) {
	env := newMLMTestEnv(t)
	user := env.addMember(t, "ROOT1234", "")

	_, err := env.service.InsertNode(context.Background(), user.ID, "")
	assert.True(t, utils.IsConflict(err))
}

func TestInsertNodeSelfReferral(t *testing.T) {
	env := newMLMTestEnv(t)
	user := env.users.put(&models.User{
		Email:        "self@example.com",
		Status:       models.UserStatusActive,
		ReferralCode: "SELF1234",
	})

	_, err := env.service.InsertNode(context.Background(), user.ID, "SELF1234")
	assert.True(t, utils.IsValidation(err))
}

func TestInsertNodeUnknownReferralCode(t *testing.T) {
	env := newMLMTestEnv(t)
	user := env.users.put(&models.User{
		Email:  "new@example.com",
		Status: models.UserStatusActive,
	})

	_, err := env.service.InsertNode(context.Background(), user.ID, "NOPE1234")
	assert.True(t, utils.IsValidation(err))
}

func TestActivateBelowMinimum(t *testing.T) {
	env := newMLMTestEnv(t)
	user := env.addMember(t, "ROOT1234", "")

	err := env.service.Activate(context.Background(), user.ID, 99999)
	assert.True(t, utils.IsValidation(err))
}

func TestActivateMarksEligibility(t *testing.T) {
	env := newMLMTestEnv(t)
	user := env.addMember(t, "ROOT1234", "")
	env.activate(t, user.ID)

	assert.True(t, user.IsMLMEligible)
	require.NotNil(t, user.MLMActivatedAt)
	first := *user.MLMActivatedAt

	// A second qualifying purchase accumulates volume but keeps the original
	// activation timestamp.
	env.activate(t, user.ID)
	assert.Equal(t, first, *user.MLMActivatedAt)
	assert.Equal(t, float64(300000), user.TotalPurchaseAmount)
}

func TestValidateReferralCode(t *testing.T) {
	env := newMLMTestEnv(t)
	user := env.addMember(t, "GOOD1234", "")

	validation, err := env.service.ValidateReferralCode(context.Background(), "GOOD1234")
	require.NoError(t, err)
	assert.True(t, validation.Valid)
	assert.Equal(t, user.ID, *validation.ReferrerID)

	validation, err = env.service.ValidateReferralCode(context.Background(), "MISSING1")
	require.NoError(t, err)
	assert.False(t, validation.Valid)

	user.Status = models.UserStatusBanned
	validation, err = env.service.ValidateReferralCode(context.Background(), "GOOD1234")
	require.NoError(t, err)
	assert.False(t, validation.Valid)
}

func TestDistributeCommissionsFullChain(t *testing.T) {
	env := newMLMTestEnv(t)
	members := env.buildChain(t, 6)
	purchaser := members[5]

	txn := env.settlePurchase(t, purchaser.ID, 200000)
	result, err := env.service.DistributeCommissions(context.Background(), txn.ID)
	require.NoError(t, err)

	assert.Equal(t, 5, result.CommissionsCreated)
	// 10% + 5% + 3% + 2% + 1% of 200000
	assert.InDelta(t, 42000, result.TotalAmount, 0.001)

	// Level 1 ancestor gets 10%, level 5 gets 1%.
	level1, _, err := env.service.ListCommissions(context.Background(), members[4].ID, nil)
	require.NoError(t, err)
	require.Len(t, level1, 1)
	assert.Equal(t, 1, level1[0].Level)
	assert.InDelta(t, 20000, level1[0].Amount, 0.001)
	assert.Equal(t, models.CommissionStatusLocked, level1[0].Status)

	level5, _, err := env.service.ListCommissions(context.Background(), members[0].ID, nil)
	require.NoError(t, err)
	require.Len(t, level5, 1)
	assert.Equal(t, 5, level5[0].Level)
	assert.InDelta(t, 2000, level5[0].Amount, 0.001)

	// Funds land locked, not available.
	wallet, err := env.wallets.GetByUserID(context.Background(), members[4].ID)
	require.NoError(t, err)
	assert.InDelta(t, 20000, wallet.LockedBalance, 0.001)
	assert.Zero(t, wallet.AvailableBalance)

	// The lock matures twelve calendar months after the grant.
	expected := level1[0].EarnedAt.AddDate(0, 12, 0)
	assert.Equal(t, expected, level1[0].LockedUntil)
}

func TestDistributeCommissionsSkipsIneligibleWithoutPromotion(t *testing.T) {
	env := newMLMTestEnv(t)
	members := env.buildChain(t, 4)
	purchaser := members[3]

	// The direct referrer loses eligibility; its slot is forfeited, the
	// deeper ancestors keep their own levels.
	members[2].IsMLMEligible = false

	txn := env.settlePurchase(t, purchaser.ID, 100000)
	result, err := env.service.DistributeCommissions(context.Background(), txn.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, result.CommissionsCreated)

	skipped, _, err := env.service.ListCommissions(context.Background(), members[2].ID, nil)
	require.NoError(t, err)
	assert.Empty(t, skipped)

	level2, _, err := env.service.ListCommissions(context.Background(), members[1].ID, nil)
	require.NoError(t, err)
	require.Len(t, level2, 1)
	assert.Equal(t, 2, level2[0].Level)
	assert.InDelta(t, 5000, level2[0].Amount, 0.001)
}

func TestDistributeCommissionsPaysFlaggedNodes(t *testing.T) {
	env := newMLMTestEnv(t)
	members := env.buildChain(t, 3)

	// A fraud verdict is advisory. The flagged ancestor keeps earning until
	// an operator suspends or bans the account.
	require.NoError(t, env.tree.SetFraudStatus(context.Background(), members[1].ID, true,
		[]models.FraudFlag{models.FraudFlagSharedIP}, time.Now()))

	txn := env.settlePurchase(t, members[2].ID, 100000)
	result, err := env.service.DistributeCommissions(context.Background(), txn.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, result.CommissionsCreated)

	flagged, _, err := env.service.ListCommissions(context.Background(), members[1].ID, nil)
	require.NoError(t, err)
	require.Len(t, flagged, 1)
	assert.Equal(t, 1, flagged[0].Level)
	assert.InDelta(t, 10000, flagged[0].Amount, 0.001)
}

func TestDistributeCommissionsBuyerWithoutTreeNode(t *testing.T) {
	env := newMLMTestEnv(t)

	// Registration tolerates a failed tree placement, so a buyer can settle
	// a purchase without ever having been placed in the forest.
	buyer := env.users.put(&models.User{
		FirstName:    "Lone",
		LastName:     "Buyer",
		Email:        "lone@example.com",
		Status:       models.UserStatusActive,
		ReferralCode: "LONE1234",
	})

	txn := env.settlePurchase(t, buyer.ID, 200000)
	result, err := env.service.DistributeCommissions(context.Background(), txn.ID)
	require.NoError(t, err)

	assert.Zero(t, result.CommissionsCreated)
	assert.Zero(t, result.TotalAmount)
}

func TestDistributeCommissionsIdempotent(t *testing.T) {
	env := newMLMTestEnv(t)
	members := env.buildChain(t, 2)

	txn := env.settlePurchase(t, members[1].ID, 100000)
	_, err := env.service.DistributeCommissions(context.Background(), txn.ID)
	require.NoError(t, err)

	_, err = env.service.DistributeCommissions(context.Background(), txn.ID)
	assert.True(t, utils.IsConflict(err))

	// Still exactly one grant for the referrer.
	commissions, _, err := env.service.ListCommissions(context.Background(), members[0].ID, nil)
	require.NoError(t, err)
	assert.Len(t, commissions, 1)
}

func TestDistributeCommissionsRejectsUnsettledTransaction(t *testing.T) {
	env := newMLMTestEnv(t)
	members := env.buildChain(t, 2)

	txn := &models.Transaction{
		UserID: members[1].ID,
		Type:   models.TransactionTypeTokenPurchase,
		Status: models.TransactionStatusPending,
		Amount: 100000,
	}
	require.NoError(t, env.transactions.Create(context.Background(), txn))

	_, err := env.service.DistributeCommissions(context.Background(), txn.ID)
	assert.True(t, utils.IsValidation(err))
}

func TestDistributeCommissionsRootPurchaserPaysNobody(t *testing.T) {
	env := newMLMTestEnv(t)
	root := env.addMember(t, "ROOT1234", "")
	env.activate(t, root.ID)

	txn := env.settlePurchase(t, root.ID, 100000)
	result, err := env.service.DistributeCommissions(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Zero(t, result.CommissionsCreated)
	assert.Zero(t, result.TotalAmount)
}

func TestUnlockExpiredCommissions(t *testing.T) {
	env := newMLMTestEnv(t)
	members := env.buildChain(t, 2)

	txn := env.settlePurchase(t, members[1].ID, 100000)
	_, err := env.service.DistributeCommissions(context.Background(), txn.ID)
	require.NoError(t, err)

	commissions, _, err := env.service.ListCommissions(context.Background(), members[0].ID, nil)
	require.NoError(t, err)
	require.Len(t, commissions, 1)

	// Not matured yet: the sweep must not touch it.
	result, err := env.service.UnlockExpiredCommissions(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.UnlockedCount)

	// Backdate the lock and sweep again.
	commissions[0].LockedUntil = time.Now().Add(-time.Hour)
	result, err = env.service.UnlockExpiredCommissions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.UnlockedCount)
	assert.InDelta(t, 10000, result.TotalAmount, 0.001)

	wallet, err := env.wallets.GetByUserID(context.Background(), members[0].ID)
	require.NoError(t, err)
	assert.Zero(t, wallet.LockedBalance)
	assert.InDelta(t, 10000, wallet.AvailableBalance, 0.001)

	// Running the sweep again is a no-op.
	result, err = env.service.UnlockExpiredCommissions(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.UnlockedCount)

	wallet, err = env.wallets.GetByUserID(context.Background(), members[0].ID)
	require.NoError(t, err)
	assert.InDelta(t, 10000, wallet.AvailableBalance, 0.001)
}

func TestWithdrawCommission(t *testing.T) {
	env := newMLMTestEnv(t)
	members := env.buildChain(t, 2)

	txn := env.settlePurchase(t, members[1].ID, 100000)
	_, err := env.service.DistributeCommissions(context.Background(), txn.ID)
	require.NoError(t, err)

	commissions, _, err := env.service.ListCommissions(context.Background(), members[0].ID, nil)
	require.NoError(t, err)
	commission := commissions[0]

	// Locked commissions cannot be withdrawn.
	_, err = env.service.WithdrawCommission(context.Background(), members[0].ID, commission.ID)
	assert.True(t, utils.IsConflict(err))

	commission.LockedUntil = time.Now().Add(-time.Hour)
	_, err = env.service.UnlockExpiredCommissions(context.Background())
	require.NoError(t, err)

	// Another member cannot withdraw it.
	_, err = env.service.WithdrawCommission(context.Background(), members[1].ID, commission.ID)
	assert.True(t, utils.IsValidation(err))

	withdrawal, err := env.service.WithdrawCommission(context.Background(), members[0].ID, commission.ID)
	require.NoError(t, err)
	assert.Equal(t, models.TransactionTypeCommissionWithdrawal, withdrawal.Type)
	assert.InDelta(t, 10000, withdrawal.Amount, 0.001)

	wallet, err := env.wallets.GetByUserID(context.Background(), members[0].ID)
	require.NoError(t, err)
	assert.Zero(t, wallet.AvailableBalance)
	assert.InDelta(t, 10000, wallet.TotalCommissionsWithdrawn, 0.001)

	// Double withdrawal is a conflict.
	_, err = env.service.WithdrawCommission(context.Background(), members[0].ID, commission.ID)
	assert.True(t, utils.IsConflict(err))
}

func TestGetTreeData(t *testing.T) {
	env := newMLMTestEnv(t)
	root := env.addMember(t, "ROOT1234", "")
	childA := env.addMember(t, "CHDA1234", "ROOT1234")
	_ = env.addMember(t, "CHDB1234", "ROOT1234")

	data, err := env.service.GetTreeData(context.Background(), root.ID)
	require.NoError(t, err)
	assert.Nil(t, data.Referrer)
	assert.Len(t, data.DirectDownline, 2)

	childData, err := env.service.GetTreeData(context.Background(), childA.ID)
	require.NoError(t, err)
	require.NotNil(t, childData.Referrer)
	assert.Equal(t, root.ID, childData.Referrer.UserID)
	assert.Equal(t, "ROOT1234", childData.Referrer.ReferralCode)
}

func TestGetAnalytics(t *testing.T) {
	env := newMLMTestEnv(t)
	members := env.buildChain(t, 3)
	_ = members

	stats, err := env.service.GetAnalytics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalMembers)
	assert.Equal(t, int64(3), stats.ActiveMembers)
	assert.Equal(t, 2, stats.MaxDepth)
}
