package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeworks/authgate/internal/identity"
	"github.com/forgeworks/authgate/internal/models"
)

// stubStore implements identity.Store with only AuthRefresh configurable;
// the middleware never touches the other operations.
type stubStore struct {
	authRefreshFunc func(ctx context.Context, token string) (*identity.Auth, error)
}

func (s *stubStore) AuthWithPassword(ctx context.Context, email, password string) (*identity.Auth, error) {
	return nil, identity.ErrRejected
}

func (s *stubStore) AuthRefresh(ctx context.Context, token string) (*identity.Auth, error) {
	if s.authRefreshFunc != nil {
		return s.authRefreshFunc(ctx, token)
	}
	return nil, identity.ErrRejected
}

func (s *stubStore) RequestOTP(ctx context.Context, email string) (string, error) {
	return "", identity.ErrRejected
}

func (s *stubStore) AuthWithOTP(ctx context.Context, otpID, otp string) (*identity.Auth, error) {
	return nil, identity.ErrRejected
}

func (s *stubStore) ListOAuthProviders(ctx context.Context) ([]identity.OAuthProvider, error) {
	return nil, nil
}

func (s *stubStore) AuthWithOAuthCode(ctx context.Context, provider, code, codeVerifier, redirectURL string) (*identity.Auth, error) {
	return nil, identity.ErrRejected
}

func (s *stubStore) UpdateRecord(ctx context.Context, token, recordID string, fields map[string]any) error {
	return nil
}

func (s *stubStore) CountUsers(ctx context.Context) (int, error) { return 0, nil }

func (s *stubStore) CreateUser(ctx context.Context, params identity.CreateUserParams) error {
	return nil
}

func TestRequireAuth_InjectsPrincipal(t *testing.T) {
	store := &stubStore{
		authRefreshFunc: func(ctx context.Context, token string) (*identity.Auth, error) {
			assert.Equal(t, "token_abc", token)
			return &identity.Auth{
				Token:  "token_fresh",
				Record: &models.Record{ID: "user123", Email: "user@example.com"},
			}, nil
		},
	}

	var principal *Principal
	handler := RequireAuth(store, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal = PrincipalFromContext(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer token_abc")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, principal)
	assert.Equal(t, "user123", principal.Record.ID)
	// The presented token, not the refreshed one: the envelope protocol keys
	// off what the client holds.
	assert.Equal(t, "token_abc", principal.Token)
}

func TestRequireAuth_NoToken(t *testing.T) {
	handler := RequireAuth(&stubStore{}, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run without a token")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_RejectedToken(t *testing.T) {
	store := &stubStore{
		authRefreshFunc: func(ctx context.Context, token string) (*identity.Auth, error) {
			return nil, identity.ErrRejected
		},
	}

	handler := RequireAuth(store, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run with a rejected token")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer token_dead")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_UpstreamFailure(t *testing.T) {
	store := &stubStore{
		authRefreshFunc: func(ctx context.Context, token string) (*identity.Auth, error) {
			return nil, errors.New("connection refused")
		},
	}

	handler := RequireAuth(store, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run when the store is unreachable")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer token_abc")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestPrincipalFromContext_Absent(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	assert.Nil(t, PrincipalFromContext(req))
}
