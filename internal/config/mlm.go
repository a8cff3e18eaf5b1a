package config

import (
	"strconv"
	"strings"
	"time"

	"wattschain/internal/utils"
)

// MLMConfig carries every tunable of the commission engine. It is loaded
// once at startup and injected into the services; nothing reads settings
// lazily at call time.
type MLMConfig struct {
	MaxLevel             int           `yaml:"max_level"`
	CommissionRates      []float64     `yaml:"commission_rates"` // percent per level, index 0 = level 1
	MinPurchaseAmount    float64       `yaml:"min_purchase_amount"`
	LockPeriodMonths     int           `yaml:"lock_period_months"`
	MaxDailyReferrals    int64         `yaml:"max_daily_referrals"`
	MaxHourlyPurchases   int64         `yaml:"max_hourly_purchases"`
	LargeAmountThreshold float64       `yaml:"large_amount_threshold"`
	SharedIPThreshold    int           `yaml:"shared_ip_threshold"`
	MediumRiskThreshold  float64       `yaml:"medium_risk_threshold"`
	UnlockSweepBatch     int           `yaml:"unlock_sweep_batch"`
	UnlockSweepInterval  time.Duration `yaml:"unlock_sweep_interval"`
	TreeAuditInterval    time.Duration `yaml:"tree_audit_interval"`
}

func loadMLMConfig() *MLMConfig {
	return &MLMConfig{
		MaxLevel:             getEnvAsInt("MLM_MAX_LEVEL", utils.MaxMLMLevel),
		CommissionRates:      getEnvAsFloatSlice("MLM_COMMISSION_RATES", []float64{10, 5, 3, 2, 1}),
		MinPurchaseAmount:    getEnvAsFloat64("MLM_MIN_PURCHASE_AMOUNT", utils.MinPurchaseAmount),
		LockPeriodMonths:     getEnvAsInt("MLM_LOCK_PERIOD_MONTHS", utils.CommissionLockMonths),
		MaxDailyReferrals:    int64(getEnvAsInt("MLM_MAX_DAILY_REFERRALS", utils.MaxDailyReferrals)),
		MaxHourlyPurchases:   int64(getEnvAsInt("MLM_MAX_HOURLY_PURCHASES", utils.MaxHourlyPurchases)),
		LargeAmountThreshold: getEnvAsFloat64("MLM_LARGE_AMOUNT_THRESHOLD", utils.LargeAmountThreshold),
		SharedIPThreshold:    getEnvAsInt("MLM_SHARED_IP_THRESHOLD", utils.SharedIPThreshold),
		MediumRiskThreshold:  getEnvAsFloat64("MLM_MEDIUM_RISK_THRESHOLD", utils.FraudMediumThreshold),
		UnlockSweepBatch:     getEnvAsInt("MLM_UNLOCK_SWEEP_BATCH", utils.UnlockSweepBatchSize),
		UnlockSweepInterval:  getEnvAsDuration("MLM_UNLOCK_SWEEP_INTERVAL", utils.UnlockSweepInterval),
		TreeAuditInterval:    getEnvAsDuration("MLM_TREE_AUDIT_INTERVAL", utils.TreeAuditInterval),
	}
}

// Validate rejects a config the engine cannot safely run with. The rate
// table must cover exactly MaxLevel levels.
func (c *MLMConfig) Validate() error {
	if c.MaxLevel < 1 {
		return utils.NewConfigurationError("mlm.max_level", "must be at least 1")
	}
	if len(c.CommissionRates) == 0 {
		return utils.NewConfigurationError("mlm.commission_rates", "rate table is missing")
	}
	if len(c.CommissionRates) != c.MaxLevel {
		return utils.NewConfigurationError("mlm.commission_rates", "rate table does not cover every level")
	}
	for i, rate := range c.CommissionRates {
		if rate < 0 || rate > 100 {
			return utils.NewConfigurationError("mlm.commission_rates", "rate out of range at level "+strconv.Itoa(i+1))
		}
	}
	if c.MinPurchaseAmount <= 0 {
		return utils.NewConfigurationError("mlm.min_purchase_amount", "must be positive")
	}
	if c.LockPeriodMonths < 0 {
		return utils.NewConfigurationError("mlm.lock_period_months", "must not be negative")
	}
	return nil
}

// RateForLevel returns the configured percentage for a 1-indexed level.
func (c *MLMConfig) RateForLevel(level int) (float64, bool) {
	if level < 1 || level > len(c.CommissionRates) {
		return 0, false
	}
	return c.CommissionRates[level-1], true
}

func getEnvAsFloatSlice(key string, defaultValue []float64) []float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	parts := strings.Split(raw, ",")
	values := make([]float64, 0, len(parts))
	for _, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return defaultValue
		}
		values = append(values, value)
	}
	return values
}
