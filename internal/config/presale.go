package config

// PresaleConfig prices the token for the current presale round. Round
// management lives with the admin tooling; the engine only needs the active
// price and bonus.
type PresaleConfig struct {
	Round        int     `yaml:"round"`
	TokenPrice   float64 `yaml:"token_price"` // currency units per token
	BonusPercent float64 `yaml:"bonus_percent"`
	MinPurchase  float64 `yaml:"min_purchase"`
	MaxPurchase  float64 `yaml:"max_purchase"`
}

func loadPresaleConfig() *PresaleConfig {
	return &PresaleConfig{
		Round:        getEnvAsInt("PRESALE_ROUND", 1),
		TokenPrice:   getEnvAsFloat64("PRESALE_TOKEN_PRICE", 5.0),
		BonusPercent: getEnvAsFloat64("PRESALE_BONUS_PERCENT", 0),
		MinPurchase:  getEnvAsFloat64("PRESALE_MIN_PURCHASE", 1000),
		MaxPurchase:  getEnvAsFloat64("PRESALE_MAX_PURCHASE", 10000000),
	}
}

// TokensFor converts a settled purchase amount into tokens, bonus included.
func (c *PresaleConfig) TokensFor(amount float64) float64 {
	if c.TokenPrice <= 0 {
		return 0
	}
	tokens := amount / c.TokenPrice
	return tokens * (1 + c.BonusPercent/100)
}
