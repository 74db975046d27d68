package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierTransitions(t *testing.T) {
	next, ok := TierSTM.Next()
	require.True(t, ok)
	assert.Equal(t, TierITM, next)

	next, ok = TierITM.Next()
	require.True(t, ok)
	assert.Equal(t, TierLTM, next)

	_, ok = TierLTM.Next()
	assert.False(t, ok, "ltm is terminal")
}

func TestCanPromoteTo(t *testing.T) {
	assert.True(t, TierSTM.CanPromoteTo(TierITM))
	assert.True(t, TierITM.CanPromoteTo(TierLTM))

	assert.False(t, TierSTM.CanPromoteTo(TierLTM), "no tier skipping")
	assert.False(t, TierITM.CanPromoteTo(TierSTM), "no demotion")
	assert.False(t, TierLTM.CanPromoteTo(TierLTM))
	assert.False(t, TierSTM.CanPromoteTo("archive"))
	assert.False(t, Tier("archive").CanPromoteTo(TierITM))
}

func validMemory() Memory {
	return Memory{
		ID:           "01HZX5A4N3E8",
		OwnerID:      "11111111-1111-1111-1111-111111111111",
		Kind:         KindLesson,
		InputContext: "vault tokens expire after 24h",
		Outcome:      OutcomeNeutral,
		PolicyValid:  true,
		Tier:         TierSTM,
		CreatedAt:    time.Now().UTC(),
	}
}

func TestValidate(t *testing.T) {
	m := validMemory()
	assert.NoError(t, m.Validate())

	t.Run("owner required", func(t *testing.T) {
		m := validMemory()
		m.OwnerID = ""
		assert.Error(t, m.Validate())
	})

	t.Run("kind is a closed enum", func(t *testing.T) {
		m := validMemory()
		m.Kind = "dream"
		assert.Error(t, m.Validate())
	})

	t.Run("outcome is a closed enum", func(t *testing.T) {
		m := validMemory()
		m.Outcome = "maybe"
		assert.Error(t, m.Validate())
	})

	t.Run("content required", func(t *testing.T) {
		m := validMemory()
		m.InputContext = ""
		assert.Error(t, m.Validate())
	})

	t.Run("emotional weight range", func(t *testing.T) {
		m := validMemory()
		for _, w := range []float64{-1, -0.5, 0, 1} {
			m.EmotionalWeight = &w
			assert.NoError(t, m.Validate(), "weight %v", w)
		}
		for _, w := range []float64{-1.01, 1.01} {
			m.EmotionalWeight = &w
			assert.Error(t, m.Validate(), "weight %v", w)
		}
	})

	t.Run("confidence range", func(t *testing.T) {
		m := validMemory()
		for _, c := range []float64{0, 0.5, 1} {
			m.ConfidenceScore = &c
			assert.NoError(t, m.Validate(), "confidence %v", c)
		}
		for _, c := range []float64{-0.01, 1.01} {
			m.ConfidenceScore = &c
			assert.Error(t, m.Validate(), "confidence %v", c)
		}
	})
}

func TestExpired(t *testing.T) {
	now := time.Now().UTC()

	m := validMemory()
	assert.False(t, m.Expired(now), "no expiry set")

	past := now.Add(-time.Minute)
	m.ExpiresAt = &past
	assert.True(t, m.Expired(now))

	future := now.Add(time.Minute)
	m.ExpiresAt = &future
	assert.False(t, m.Expired(now))

	m.ExpiredAt = &past
	assert.True(t, m.Expired(now), "the soft flag wins regardless of ttl")
}

func TestPromotable(t *testing.T) {
	now := time.Now().UTC()

	m := validMemory()
	assert.True(t, m.Promotable(now))

	m.PolicyValid = false
	assert.False(t, m.Promotable(now))

	m = validMemory()
	past := now.Add(-time.Minute)
	m.ExpiresAt = &past
	assert.False(t, m.Promotable(now))

	m = validMemory()
	m.Tier = TierLTM
	assert.False(t, m.Promotable(now), "nothing above ltm")
}
