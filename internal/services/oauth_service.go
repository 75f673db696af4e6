package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/forgeworks/authgate/internal/identity"
	"github.com/forgeworks/authgate/internal/models"
	"github.com/forgeworks/authgate/internal/stores"
	pkglogger "github.com/forgeworks/authgate/pkg/logger"
)

// OAuthEndpoint is what a client needs to start a provider redirect: the
// provider's authorization URL and the relay token that will recover the
// PKCE verifier on the way back.
type OAuthEndpoint struct {
	AuthURL string `json:"authUrl"`
	Relay   string `json:"relay"`
}

// OAuthService relays OAuth2 + PKCE flows through the identity store. The
// code verifier never reaches the browser: it is parked server-side under a
// relay token between the redirect out and the callback in.
type OAuthService struct {
	store   identity.Store
	relays  *stores.RelayStore
	bridges *stores.BridgeStore
	logger  *slog.Logger
	audit   *pkglogger.AuditLogger
}

// NewOAuthService creates an OAuth relay.
func NewOAuthService(store identity.Store, relays *stores.RelayStore, bridges *stores.BridgeStore, logger *slog.Logger, audit *pkglogger.AuditLogger) *OAuthService {
	return &OAuthService{
		store:   store,
		relays:  relays,
		bridges: bridges,
		logger:  logger,
		audit:   audit,
	}
}

// ListProviders returns the names of the providers the identity store has
// configured.
func (s *OAuthService) ListProviders(ctx context.Context) ([]string, error) {
	providers, err := s.store.ListOAuthProviders(ctx)
	if err != nil {
		s.logger.Error("failed to list OAuth providers", slog.Any("error", err))
		return nil, models.ErrUpstream
	}

	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name)
	}
	return names, nil
}

// GetEndpoint prepares a redirect for the named provider. The store mints
// the PKCE pair; the verifier is parked in the relay store and only the
// authorization URL and relay token leave the server.
func (s *OAuthService) GetEndpoint(ctx context.Context, provider string) (*OAuthEndpoint, error) {
	providers, err := s.store.ListOAuthProviders(ctx)
	if err != nil {
		s.logger.Error("failed to list OAuth providers", slog.Any("error", err))
		return nil, models.ErrUpstream
	}

	for _, p := range providers {
		if p.Name == provider {
			relay := s.relays.Issue(p.CodeVerifier, p.Name)
			return &OAuthEndpoint{AuthURL: p.AuthURL, Relay: relay}, nil
		}
	}

	return nil, models.ErrInvalidProvider
}

// Verify completes the callback leg: the relay token recovers the parked
// verifier, the authorization code is exchanged through the store, and the
// result flows into the same 2FA gate as a password login. The relay entry
// is deleted before the exchange so a code can never be replayed through it;
// a provider mismatch keeps the entry, since the stored flow was not the one
// presented.
func (s *OAuthService) Verify(ctx context.Context, provider, code, relay, origin string) (*LoginResult, error) {
	state, err := s.relays.Peek(relay)
	if err != nil {
		return nil, err
	}

	if state.Provider != provider {
		return nil, models.ErrProviderMismatch
	}

	s.relays.Delete(relay)

	res, err := s.store.AuthWithOAuthCode(ctx, provider, code, state.CodeVerifier, origin+"/auth")
	if err != nil {
		if errors.Is(err, identity.ErrRejected) {
			s.audit.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "oauth_login_failed",
				FailureReason: "code_exchange_rejected",
				Success:       false,
			})
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("OAuth code exchange failed", slog.Any("error", err))
		return nil, models.ErrUpstream
	}

	record := res.Record

	if record.TwoFAEnabled {
		tid := s.bridges.Issue(res.Token)
		s.logger.Info("second factor required", slog.String("principal_id", record.ID))
		return &LoginResult{State: "2fa_required", TID: tid}, nil
	}

	s.audit.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:   "oauth_login_success",
		PrincipalID: record.ID,
		Success:     true,
	})

	return &LoginResult{State: "success", Session: res.Token, Record: record.Sanitized()}, nil
}
