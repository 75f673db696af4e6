package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeworks/authgate/internal/models"
)

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer token_abc")

	token, err := BearerToken(req)

	require.NoError(t, err)
	assert.Equal(t, "token_abc", token)
}

func TestBearerToken_Missing(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)

	_, err := BearerToken(req)

	assert.Equal(t, models.ErrNoToken, err)
}

func TestBearerToken_WrongScheme(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

	_, err := BearerToken(req)

	assert.Equal(t, models.ErrNoToken, err)
}

func TestBearerToken_EmptyToken(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer ")

	_, err := BearerToken(req)

	assert.Equal(t, models.ErrNoToken, err)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  "user123",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("store-side-secret"))
	require.NoError(t, err)
	return signed
}

func TestTokenExpired_PastExp(t *testing.T) {
	assert.True(t, TokenExpired(signedToken(t, time.Now().Add(-1*time.Minute))))
}

func TestTokenExpired_FutureExp(t *testing.T) {
	assert.False(t, TokenExpired(signedToken(t, time.Now().Add(1*time.Hour))))
}

func TestTokenExpired_UnparseableDefersToStore(t *testing.T) {
	// Not locally rejectable; the store gets the final say.
	assert.False(t, TokenExpired("not-a-jwt"))
}

func TestTokenExpired_NoExpClaim(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": "user123"})
	signed, err := token.SignedString([]byte("store-side-secret"))
	require.NoError(t, err)

	assert.False(t, TokenExpired(signed))
}
