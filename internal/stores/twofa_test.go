package stores

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeworks/authgate/internal/models"
)

func TestTwoFAStore_TempCode(t *testing.T) {
	s := NewTwoFAStore()

	s.SetTempCode("user1", "BASE32SECRET", 5*time.Minute)

	code, err := s.TempCode("user1")
	require.NoError(t, err)
	assert.Equal(t, "BASE32SECRET", code)
}

func TestTwoFAStore_TempCode_MissingOrExpired(t *testing.T) {
	s := NewTwoFAStore()

	_, err := s.TempCode("user1")
	assert.ErrorIs(t, err, models.ErrSetupExpired)

	s.SetTempCode("user1", "BASE32SECRET", -1*time.Second)
	_, err = s.TempCode("user1")
	assert.ErrorIs(t, err, models.ErrSetupExpired)
}

func TestTwoFAStore_DisableGating(t *testing.T) {
	s := NewTwoFAStore()

	// No prior OTP validation: no grant.
	assert.ErrorIs(t, s.CheckDisable("user1"), models.ErrDisableNotAllowed)

	s.GrantDisable("user1", 5*time.Minute)
	assert.NoError(t, s.CheckDisable("user1"))

	// Grant is cleared with the rest of the state on consumption.
	s.Delete("user1")
	assert.ErrorIs(t, s.CheckDisable("user1"), models.ErrDisableNotAllowed)
}

func TestTwoFAStore_DisableWindowExpires(t *testing.T) {
	s := NewTwoFAStore()

	s.GrantDisable("user1", -1*time.Second)
	assert.ErrorIs(t, s.CheckDisable("user1"), models.ErrDisableWindowExpired)

	// Expired grant is dropped; a retry is indistinguishable from no grant.
	assert.ErrorIs(t, s.CheckDisable("user1"), models.ErrDisableNotAllowed)
}

func TestTwoFAStore_Challenge(t *testing.T) {
	s := NewTwoFAStore()

	_, err := s.Challenge("user1")
	assert.ErrorIs(t, err, models.ErrChallengeExpired)

	s.SetChallenge("user1", "challenge-value", 5*time.Minute)
	ch, err := s.Challenge("user1")
	require.NoError(t, err)
	assert.Equal(t, "challenge-value", ch)

	// A new challenge replaces the old one.
	s.SetChallenge("user1", "newer-challenge", 5*time.Minute)
	ch, err = s.Challenge("user1")
	require.NoError(t, err)
	assert.Equal(t, "newer-challenge", ch)
}

func TestTwoFAStore_Challenge_Expired(t *testing.T) {
	s := NewTwoFAStore()

	s.SetChallenge("user1", "challenge-value", -1*time.Second)
	_, err := s.Challenge("user1")
	assert.ErrorIs(t, err, models.ErrChallengeExpired)
}

func TestTwoFAStore_StateIsPerPrincipal(t *testing.T) {
	s := NewTwoFAStore()

	s.SetTempCode("user1", "SECRET1", 5*time.Minute)
	s.SetTempCode("user2", "SECRET2", 5*time.Minute)
	s.Delete("user1")

	_, err := s.TempCode("user1")
	assert.ErrorIs(t, err, models.ErrSetupExpired)

	code, err := s.TempCode("user2")
	require.NoError(t, err)
	assert.Equal(t, "SECRET2", code)
}

func TestTwoFAStore_Sweep(t *testing.T) {
	s := NewTwoFAStore()

	s.SetTempCode("stale", "SECRET", -1*time.Second)
	s.SetTempCode("fresh", "SECRET", 5*time.Minute)
	s.GrantDisable("mixed", -1*time.Second)
	s.SetChallenge("mixed", "challenge", 5*time.Minute)

	removed := s.Sweep()
	assert.Equal(t, 1, removed)

	// "mixed" still holds a live challenge, so it survives the sweep.
	_, err := s.Challenge("mixed")
	assert.NoError(t, err)
	assert.ErrorIs(t, s.CheckDisable("mixed"), models.ErrDisableNotAllowed)

	_, err = s.TempCode("fresh")
	assert.NoError(t, err)
}
