package utils

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorMatching(t *testing.T) {
	assert.True(t, IsNotFound(NewNotFoundError("user", "abc")))
	assert.True(t, IsConflict(NewConflictError("commission", "already distributed")))
	assert.True(t, IsValidation(NewValidationError("amount", "below minimum")))
	assert.True(t, IsConfiguration(NewConfigurationError("mlm.max_level", "must be at least 1")))

	assert.False(t, IsNotFound(errors.New("plain")))
	assert.False(t, IsConflict(NewNotFoundError("user", "abc")))
}

func TestTypedErrorsSurviveWrapping(t *testing.T) {
	wrapped := fmt.Errorf("loading referrer: %w", NewNotFoundError("user", "abc"))
	assert.True(t, IsNotFound(wrapped))
}

func TestTransactionAbortUnwraps(t *testing.T) {
	cause := errors.New("write conflict")
	err := NewTransactionAbortError("distribute_commissions", cause)

	assert.True(t, IsTransactionAbort(err))
	assert.ErrorIs(t, err, cause)
}

func TestGenerateReferralCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code := GenerateReferralCode()
		assert.Len(t, code, ReferralCodeLength)
		for _, r := range code {
			assert.NotContains(t, "0O1IL", string(r))
		}
		seen[code] = true
	}
	// Collisions across 100 draws from a 31^8 space would be a broken RNG.
	assert.Greater(t, len(seen), 95)
}
