package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forgeworks/authgate/internal/identity"
	"github.com/forgeworks/authgate/internal/models"
	"github.com/forgeworks/authgate/internal/stores"
)

func newOAuthService(store identity.Store, relays *stores.RelayStore, bridges *stores.BridgeStore) *OAuthService {
	return NewOAuthService(store, relays, bridges, slog.Default(), testAudit())
}

func testProviders() []identity.OAuthProvider {
	return []identity.OAuthProvider{
		{
			Name:                "github",
			DisplayName:         "GitHub",
			AuthURL:             "https://github.com/login/oauth/authorize?client_id=abc",
			CodeVerifier:        "verifier_github",
			CodeChallenge:       "challenge_github",
			CodeChallengeMethod: "S256",
		},
		{
			Name:         "google",
			DisplayName:  "Google",
			AuthURL:      "https://accounts.google.com/o/oauth2/auth?client_id=def",
			CodeVerifier: "verifier_google",
		},
	}
}

func TestOAuthService_ListProviders(t *testing.T) {
	store := &MockStore{
		ListOAuthProvidersFunc: func(ctx context.Context) ([]identity.OAuthProvider, error) {
			return testProviders(), nil
		},
	}

	svc := newOAuthService(store, stores.NewRelayStore(10*time.Minute), stores.NewBridgeStore(5*time.Minute))

	names, err := svc.ListProviders(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"github", "google"}, names)
}

func TestOAuthService_GetEndpoint_ParksVerifier(t *testing.T) {
	store := &MockStore{
		ListOAuthProvidersFunc: func(ctx context.Context) ([]identity.OAuthProvider, error) {
			return testProviders(), nil
		},
	}

	relays := stores.NewRelayStore(10 * time.Minute)
	svc := newOAuthService(store, relays, stores.NewBridgeStore(5*time.Minute))

	endpoint, err := svc.GetEndpoint(context.Background(), "github")

	require.NoError(t, err)
	assert.Equal(t, "https://github.com/login/oauth/authorize?client_id=abc", endpoint.AuthURL)
	require.NotEmpty(t, endpoint.Relay)

	// The verifier never appears in the endpoint; it is parked server-side.
	state, err := relays.Peek(endpoint.Relay)
	require.NoError(t, err)
	assert.Equal(t, "verifier_github", state.CodeVerifier)
	assert.Equal(t, "github", state.Provider)
}

func TestOAuthService_GetEndpoint_UnknownProvider(t *testing.T) {
	store := &MockStore{
		ListOAuthProvidersFunc: func(ctx context.Context) ([]identity.OAuthProvider, error) {
			return testProviders(), nil
		},
	}

	svc := newOAuthService(store, stores.NewRelayStore(10*time.Minute), stores.NewBridgeStore(5*time.Minute))

	_, err := svc.GetEndpoint(context.Background(), "gitlab")

	assert.Equal(t, models.ErrInvalidProvider, err)
}

func TestOAuthService_Verify_Success(t *testing.T) {
	store := &MockStore{
		ListOAuthProvidersFunc: func(ctx context.Context) ([]identity.OAuthProvider, error) {
			return testProviders(), nil
		},
		AuthWithOAuthCodeFunc: func(ctx context.Context, provider, code, codeVerifier, redirectURL string) (*identity.Auth, error) {
			assert.Equal(t, "github", provider)
			assert.Equal(t, "auth_code_1", code)
			assert.Equal(t, "verifier_github", codeVerifier)
			assert.Equal(t, "https://app.example.com/auth", redirectURL)
			return &identity.Auth{Token: "token_oauth", Record: NewTestRecord("user123", "user@example.com")}, nil
		},
	}

	relays := stores.NewRelayStore(10 * time.Minute)
	svc := newOAuthService(store, relays, stores.NewBridgeStore(5*time.Minute))

	endpoint, err := svc.GetEndpoint(context.Background(), "github")
	require.NoError(t, err)

	result, err := svc.Verify(context.Background(), "github", "auth_code_1", endpoint.Relay, "https://app.example.com")

	require.NoError(t, err)
	assert.Equal(t, "success", result.State)
	assert.Equal(t, "token_oauth", result.Session)

	// Relay tokens are one-time use.
	_, err = relays.Peek(endpoint.Relay)
	assert.Equal(t, models.ErrOAuthStateInvalid, err)
}

func TestOAuthService_Verify_UnknownRelayToken(t *testing.T) {
	svc := newOAuthService(&MockStore{}, stores.NewRelayStore(10*time.Minute), stores.NewBridgeStore(5*time.Minute))

	_, err := svc.Verify(context.Background(), "github", "auth_code_1", "nonexistent", "https://app.example.com")

	assert.Equal(t, models.ErrOAuthStateInvalid, err)
}

func TestOAuthService_Verify_ExpiredRelay(t *testing.T) {
	relays := stores.NewRelayStore(-1 * time.Second)
	token := relays.Issue("verifier_github", "github")

	svc := newOAuthService(&MockStore{}, relays, stores.NewBridgeStore(5*time.Minute))

	_, err := svc.Verify(context.Background(), "github", "auth_code_1", token, "https://app.example.com")

	assert.Equal(t, models.ErrOAuthStateExpired, err)
}

func TestOAuthService_Verify_ProviderMismatch_KeepsRelay(t *testing.T) {
	relays := stores.NewRelayStore(10 * time.Minute)
	token := relays.Issue("verifier_github", "github")

	svc := newOAuthService(&MockStore{}, relays, stores.NewBridgeStore(5*time.Minute))

	_, err := svc.Verify(context.Background(), "google", "auth_code_1", token, "https://app.example.com")
	assert.Equal(t, models.ErrProviderMismatch, err)

	// The parked flow was not the one presented, so it stays usable.
	_, err = relays.Peek(token)
	assert.NoError(t, err)
}

func TestOAuthService_Verify_ExchangeRejected(t *testing.T) {
	store := &MockStore{
		AuthWithOAuthCodeFunc: func(ctx context.Context, provider, code, codeVerifier, redirectURL string) (*identity.Auth, error) {
			return nil, identity.ErrRejected
		},
	}

	relays := stores.NewRelayStore(10 * time.Minute)
	token := relays.Issue("verifier_github", "github")

	svc := newOAuthService(store, relays, stores.NewBridgeStore(5*time.Minute))

	_, err := svc.Verify(context.Background(), "github", "bad_code", token, "https://app.example.com")
	assert.Equal(t, models.ErrInvalidCredentials, err)

	// Deleted before the exchange: the code cannot be replayed through it.
	_, err = relays.Peek(token)
	assert.Equal(t, models.ErrOAuthStateInvalid, err)
}

func TestOAuthService_Verify_UpstreamFailure(t *testing.T) {
	store := &MockStore{
		AuthWithOAuthCodeFunc: func(ctx context.Context, provider, code, codeVerifier, redirectURL string) (*identity.Auth, error) {
			return nil, errors.New("connection refused")
		},
	}

	relays := stores.NewRelayStore(10 * time.Minute)
	token := relays.Issue("verifier_github", "github")

	svc := newOAuthService(store, relays, stores.NewBridgeStore(5*time.Minute))

	_, err := svc.Verify(context.Background(), "github", "auth_code_1", token, "https://app.example.com")

	assert.Equal(t, models.ErrUpstream, err)
}

func TestOAuthService_Verify_2FARequired(t *testing.T) {
	store := &MockStore{
		AuthWithOAuthCodeFunc: func(ctx context.Context, provider, code, codeVerifier, redirectURL string) (*identity.Auth, error) {
			return &identity.Auth{Token: "token_oauth", Record: NewTestRecordWith2FA("user123", "user@example.com", "sealed")}, nil
		},
	}

	relays := stores.NewRelayStore(10 * time.Minute)
	bridges := stores.NewBridgeStore(5 * time.Minute)
	token := relays.Issue("verifier_github", "github")

	svc := newOAuthService(store, relays, bridges)

	result, err := svc.Verify(context.Background(), "github", "auth_code_1", token, "https://app.example.com")

	require.NoError(t, err)
	assert.Equal(t, "2fa_required", result.State)
	require.NotEmpty(t, result.TID)
	assert.Empty(t, result.Session)

	bridge, err := bridges.Get(result.TID)
	require.NoError(t, err)
	assert.Equal(t, "token_oauth", bridge.Token)
}
