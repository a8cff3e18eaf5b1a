package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildUpline(t *testing.T) {
	ids := make([]primitive.ObjectID, 7)
	for i := range ids {
		ids[i] = primitive.NewObjectID()
	}

	t.Run("root referrer", func(t *testing.T) {
		referrer := &TreeNode{UserID: ids[0]}
		assert.Equal(t, []primitive.ObjectID{ids[0]}, BuildUpline(referrer))
	})

	t.Run("short chain", func(t *testing.T) {
		referrer := &TreeNode{
			UserID:        ids[2],
			UplineMembers: []primitive.ObjectID{ids[1], ids[0]},
		}
		assert.Equal(t, []primitive.ObjectID{ids[2], ids[1], ids[0]}, BuildUpline(referrer))
	})

	t.Run("truncates at max depth", func(t *testing.T) {
		referrer := &TreeNode{
			UserID:        ids[6],
			UplineMembers: []primitive.ObjectID{ids[5], ids[4], ids[3], ids[2], ids[1]},
		}
		upline := BuildUpline(referrer)
		assert.Len(t, upline, MaxTreeLevel)
		assert.Equal(t, []primitive.ObjectID{ids[6], ids[5], ids[4], ids[3], ids[2]}, upline)
	})
}

func TestChildLevel(t *testing.T) {
	assert.Equal(t, 1, ChildLevel(0))
	assert.Equal(t, 5, ChildLevel(4))
	assert.Equal(t, 5, ChildLevel(5))
	assert.Equal(t, 5, ChildLevel(9))
}

func TestCommissionAmount(t *testing.T) {
	assert.InDelta(t, 10000, CommissionAmount(100000, 10), 0.001)
	assert.InDelta(t, 1000, CommissionAmount(100000, 1), 0.001)
	assert.Zero(t, CommissionAmount(0, 10))
}

func TestUserCanReceiveCommissions(t *testing.T) {
	user := &User{Status: UserStatusActive, IsMLMEligible: true}
	assert.True(t, user.CanReceiveCommissions())

	banned := &User{Status: UserStatusBanned, IsMLMEligible: true}
	assert.False(t, banned.CanReceiveCommissions())
	assert.True(t, banned.IsBanned())

	notEligible := &User{Status: UserStatusActive}
	assert.False(t, notEligible.CanReceiveCommissions())
}
