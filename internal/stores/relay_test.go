package stores

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeworks/authgate/internal/models"
)

func TestRelayStore_IssueAndPeek(t *testing.T) {
	s := NewRelayStore(10 * time.Minute)

	token := s.Issue("verifier-abc", "github")
	require.NotEmpty(t, token)

	state, err := s.Peek(token)
	require.NoError(t, err)
	assert.Equal(t, "verifier-abc", state.CodeVerifier)
	assert.Equal(t, "github", state.Provider)
}

func TestRelayStore_Unknown(t *testing.T) {
	s := NewRelayStore(10 * time.Minute)

	_, err := s.Peek("no-such-token")
	assert.ErrorIs(t, err, models.ErrOAuthStateInvalid)
}

func TestRelayStore_Expired(t *testing.T) {
	s := NewRelayStore(-1 * time.Second)

	token := s.Issue("verifier-abc", "github")

	_, err := s.Peek(token)
	assert.ErrorIs(t, err, models.ErrOAuthStateExpired)

	_, err = s.Peek(token)
	assert.ErrorIs(t, err, models.ErrOAuthStateInvalid)
}

func TestRelayStore_DeleteIsFinal(t *testing.T) {
	s := NewRelayStore(10 * time.Minute)

	token := s.Issue("verifier-abc", "github")
	s.Delete(token)

	_, err := s.Peek(token)
	assert.ErrorIs(t, err, models.ErrOAuthStateInvalid)
}
