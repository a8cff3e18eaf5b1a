package utils

import (
	"crypto/rand"
	"math/big"
)

const (
	letterBytes  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numberBytes  = "0123456789"
	alphanumeric = letterBytes + numberBytes
	// Referral codes avoid lowercase so they survive case-insensitive
	// entry, and skip 0/O, 1/I/L which read alike on printed invites.
	referralCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

func GenerateRandomString(length int) string {
	return generateRandom(length, alphanumeric)
}

func GenerateRandomNumericString(length int) string {
	return generateRandom(length, numberBytes)
}

// GenerateReferralCode produces an 8-character invite code. Uniqueness is
// enforced by the users collection index, not here.
func GenerateReferralCode() string {
	return generateRandom(ReferralCodeLength, referralCharset)
}

func generateRandom(length int, charset string) string {
	result := make([]byte, length)
	charsetLength := big.NewInt(int64(len(charset)))

	for i := range result {
		num, _ := rand.Int(rand.Reader, charsetLength)
		result[i] = charset[num.Int64()]
	}

	return string(result)
}
