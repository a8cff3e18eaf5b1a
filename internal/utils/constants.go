package utils

import "time"

// Application Constants
const (
	AppName    = "WattsChain"
	AppVersion = "1.0.0"

	// Default values
	DefaultLanguage = "en"
	DefaultCurrency = "KES"
	DefaultTimeZone = "Africa/Nairobi"

	// Pagination
	DefaultPageSize = 20
	MaxPageSize     = 100
	MinPageSize     = 1

	// Authentication
	JWTAccessTokenTTL  = 24 * time.Hour
	JWTRefreshTokenTTL = 7 * 24 * time.Hour
	PasswordMinLength  = 8

	// MLM Constants
	MaxMLMLevel           = 5
	MinPurchaseAmount     = 100000.0 // qualifying purchase threshold, currency minor units
	CommissionLockMonths  = 12
	ReferralCodeLength    = 8
	MaxDailyReferrals     = 10
	MaxHourlyPurchases    = 5
	LargeAmountThreshold  = 1000000.0
	SharedIPThreshold     = 3
	FraudMediumThreshold  = 0.6
	FraudHighThreshold    = 0.8
	UnlockSweepBatchSize  = 500
	UnlockSweepInterval   = 1 * time.Hour
	TreeAuditInterval     = 24 * time.Hour

	// Fraud score weights
	FraudWeightReferralVelocity = 0.4
	FraudWeightPurchaseVelocity = 0.3
	FraudWeightLargeTransaction = 0.2
	FraudWeightSharedIP         = 0.5

	// Notification
	NotificationTimeout = 30 * time.Second

	// Rate Limiting
	DefaultRateLimit = 100
	LoginRateLimit   = 5
)

// HTTP Status Messages
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusFailed  = "failed"
)

// Error Messages
const (
	ErrInvalidCredentials = "invalid credentials"
	ErrUserNotFound       = "user not found"
	ErrUserExists         = "user already exists"
	ErrInvalidToken       = "invalid token"
	ErrTokenExpired       = "token expired"
	ErrInvalidInput       = "invalid input"
	ErrInternalServer     = "internal server error"
	ErrUnauthorized       = "unauthorized"
	ErrForbidden          = "forbidden"
	ErrNotFound           = "not found"
	ErrConflict           = "conflict"
	ErrValidationFailed   = "validation failed"
	ErrInvalidReferral    = "invalid referral code"
	ErrBelowMinimum       = "amount below minimum purchase"
)

// Cache Keys
const (
	CacheUserPrefix         = "user:"
	CacheReferralCodePrefix = "referral_code:"
	CacheTreeStatsKey       = "mlm:tree_stats"
	CacheRateLimitPrefix    = "rate_limit:"
	CacheSessionPrefix      = "session:"
)

// Event Types
const (
	EventUserRegistered      = "user_registered"
	EventTokenPurchased      = "token_purchased"
	EventCommissionEarned    = "commission_earned"
	EventCommissionUnlocked  = "commission_unlocked"
	EventCommissionWithdrawn = "commission_withdrawn"
	EventFraudFlagged        = "fraud_flagged"
	EventTreeRepaired        = "tree_repaired"
)
