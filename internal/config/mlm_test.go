package config

import (
	"os"
	"testing"
	"time"

	"wattschain/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validMLMConfig() *MLMConfig {
	return &MLMConfig{
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

func TestMLMConfigValidate(t *testing.T) {
	require.NoError(t, validMLMConfig().Validate())
}

func TestLoadMLMConfigDefaultRateTable(t *testing.T) {
	os.Unsetenv("MLM_COMMISSION_RATES")
	os.Unsetenv("MLM_MAX_LEVEL")

	cfg := loadMLMConfig()
	assert.Equal(t, []float64{10, 5, 3, 2, 1}, cfg.CommissionRates)
	require.NoError(t, cfg.Validate())
}

func TestMLMConfigValidateMissingRates(t *testing.T) {
	cfg := validMLMConfig()
	cfg.CommissionRates = nil

	err := cfg.Validate()
	assert.True(t, utils.IsConfiguration(err))
}

func TestMLMConfigValidateRateTableMismatch(t *testing.T) {
	cfg := validMLMConfig()
	cfg.CommissionRates = []float64{10, 5, 3}

	err := cfg.Validate()
	assert.True(t, utils.IsConfiguration(err))
}

func TestMLMConfigValidateRateOutOfRange(t *testing.T) {
	cfg := validMLMConfig()
	cfg.CommissionRates = []float64{10, 5, 3, 2, 150}

	err := cfg.Validate()
	assert.True(t, utils.IsConfiguration(err))
}

func TestMLMConfigValidateNonPositiveMinimum(t *testing.T) {
	cfg := validMLMConfig()
	cfg.MinPurchaseAmount = 0

	err := cfg.Validate()
	assert.True(t, utils.IsConfiguration(err))
}

func TestMLMConfigRateForLevel(t *testing.T) {
	cfg := validMLMConfig()

	rate, ok := cfg.RateForLevel(1)
	assert.True(t, ok)
	assert.Equal(t, float64(10), rate)

	rate, ok = cfg.RateForLevel(5)
	assert.True(t, ok)
	assert.Equal(t, float64(1), rate)

	_, ok = cfg.RateForLevel(6)
	assert.False(t, ok)
	_, ok = cfg.RateForLevel(0)
	assert.False(t, ok)
}
