package services

import (
	"context"
	"testing"

	"wattschain/internal/config"
	"wattschain/internal/models"
	"wattschain/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPresaleConfig() *config.PresaleConfig {
	return &config.PresaleConfig{
		Round:       1,
		TokenPrice:  5,
		MinPurchase: 1000,
		MaxPurchase: 10000000,
	}
}

func newTokenService(env *mlmTestEnv) TokenService {
	return NewTokenService(
		&fakeTxRunner{},
		env.transactions,
		env.wallets,
		env.users,
		env.tree,
		env.service,
		testMLMConfig(),
		testPresaleConfig(),
		newTestLogger(),
	)
}

func TestPurchaseTokensQualifyingActivatesAndDistributes(t *testing.T) {
	env := newMLMTestEnv(t)
	referrer := env.addMember(t, "REFR1234", "")
	env.activate(t, referrer.ID)
	buyer := env.addMember(t, "BUYR1234", "REFR1234")

	tokens := newTokenService(env)
	result, err := tokens.PurchaseTokens(context.Background(), &PurchaseRequest{
		UserID: buyer.ID,
		Amount: 150000,
	})
	require.NoError(t, err)

	// 150000 / 5 per token
	assert.InDelta(t, 30000, result.TokensCredited, 0.001)
	assert.Equal(t, 1, result.CommissionsCreated)
	assert.InDelta(t, 15000, result.CommissionTotal, 0.001)

	// The buyer is activated by the qualifying purchase.
	assert.True(t, buyer.IsMLMEligible)
	node, err := env.tree.GetByUserID(context.Background(), buyer.ID)
	require.NoError(t, err)
	assert.True(t, node.IsActive)

	wallet, err := env.wallets.GetByUserID(context.Background(), buyer.ID)
	require.NoError(t, err)
	assert.InDelta(t, 30000, wallet.TokenBalance, 0.001)

	referrerWallet, err := env.wallets.GetByUserID(context.Background(), referrer.ID)
	require.NoError(t, err)
	assert.InDelta(t, 15000, referrerWallet.LockedBalance, 0.001)
}

func TestPurchaseTokensBelowQualifyingThreshold(t *testing.T) {
	env := newMLMTestEnv(t)
	referrer := env.addMember(t, "REFR1234", "")
	env.activate(t, referrer.ID)
	buyer := env.addMember(t, "BUYR1234", "REFR1234")

	tokens := newTokenService(env)
	result, err := tokens.PurchaseTokens(context.Background(), &PurchaseRequest{
		UserID: buyer.ID,
		Amount: 50000,
	})
	require.NoError(t, err)

	assert.InDelta(t, 10000, result.TokensCredited, 0.001)
	assert.False(t, buyer.IsMLMEligible)

	node, err := env.tree.GetByUserID(context.Background(), buyer.ID)
	require.NoError(t, err)
	assert.False(t, node.IsActive)
}

func TestPurchaseTokensValidatesBounds(t *testing.T) {
	env := newMLMTestEnv(t)
	buyer := env.addMember(t, "BUYR1234", "")

	tokens := newTokenService(env)
	_, err := tokens.PurchaseTokens(context.Background(), &PurchaseRequest{
		UserID: buyer.ID,
		Amount: 10,
	})
	assert.True(t, utils.IsValidation(err))

	_, err = tokens.PurchaseTokens(context.Background(), &PurchaseRequest{
		UserID: buyer.ID,
		Amount: 20000000,
	})
	assert.True(t, utils.IsValidation(err))
}

func TestPurchaseTokensBannedBuyer(t *testing.T) {
	env := newMLMTestEnv(t)
	buyer := env.addMember(t, "BUYR1234", "")
	buyer.Status = models.UserStatusBanned

	tokens := newTokenService(env)
	_, err := tokens.PurchaseTokens(context.Background(), &PurchaseRequest{
		UserID: buyer.ID,
		Amount: 5000,
	})
	assert.True(t, utils.IsValidation(err))
}
