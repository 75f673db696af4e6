package services

import (
	"context"
	"log/slog"

	"github.com/forgeworks/authgate/internal/auth"
	"github.com/forgeworks/authgate/internal/identity"
	"github.com/forgeworks/authgate/internal/models"
	pkglogger "github.com/forgeworks/authgate/pkg/logger"
)

// MockStore implements identity.Store for testing
type MockStore struct {
	AuthWithPasswordFunc   func(ctx context.Context, email, password string) (*identity.Auth, error)
	AuthRefreshFunc        func(ctx context.Context, token string) (*identity.Auth, error)
	RequestOTPFunc         func(ctx context.Context, email string) (string, error)
	AuthWithOTPFunc        func(ctx context.Context, otpID, otp string) (*identity.Auth, error)
	ListOAuthProvidersFunc func(ctx context.Context) ([]identity.OAuthProvider, error)
	AuthWithOAuthCodeFunc  func(ctx context.Context, provider, code, codeVerifier, redirectURL string) (*identity.Auth, error)
	UpdateRecordFunc       func(ctx context.Context, token, recordID string, fields map[string]any) error
	CountUsersFunc         func(ctx context.Context) (int, error)
	CreateUserFunc         func(ctx context.Context, params identity.CreateUserParams) error
}

func (m *MockStore) AuthWithPassword(ctx context.Context, email, password string) (*identity.Auth, error) {
	if m.AuthWithPasswordFunc != nil {
		return m.AuthWithPasswordFunc(ctx, email, password)
	}
	return nil, identity.ErrRejected
}

func (m *MockStore) AuthRefresh(ctx context.Context, token string) (*identity.Auth, error) {
	if m.AuthRefreshFunc != nil {
		return m.AuthRefreshFunc(ctx, token)
	}
	return nil, identity.ErrRejected
}

func (m *MockStore) RequestOTP(ctx context.Context, email string) (string, error) {
	if m.RequestOTPFunc != nil {
		return m.RequestOTPFunc(ctx, email)
	}
	return "otp_id_test", nil
}

func (m *MockStore) AuthWithOTP(ctx context.Context, otpID, otp string) (*identity.Auth, error) {
	if m.AuthWithOTPFunc != nil {
		return m.AuthWithOTPFunc(ctx, otpID, otp)
	}
	return nil, identity.ErrRejected
}

func (m *MockStore) ListOAuthProviders(ctx context.Context) ([]identity.OAuthProvider, error) {
	if m.ListOAuthProvidersFunc != nil {
		return m.ListOAuthProvidersFunc(ctx)
	}
	return []identity.OAuthProvider{}, nil
}

func (m *MockStore) AuthWithOAuthCode(ctx context.Context, provider, code, codeVerifier, redirectURL string) (*identity.Auth, error) {
	if m.AuthWithOAuthCodeFunc != nil {
		return m.AuthWithOAuthCodeFunc(ctx, provider, code, codeVerifier, redirectURL)
	}
	return nil, identity.ErrRejected
}

func (m *MockStore) UpdateRecord(ctx context.Context, token, recordID string, fields map[string]any) error {
	if m.UpdateRecordFunc != nil {
		return m.UpdateRecordFunc(ctx, token, recordID, fields)
	}
	return nil
}

func (m *MockStore) CountUsers(ctx context.Context) (int, error) {
	if m.CountUsersFunc != nil {
		return m.CountUsersFunc(ctx)
	}
	return 0, nil
}

func (m *MockStore) CreateUser(ctx context.Context, params identity.CreateUserParams) error {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, params)
	}
	return nil
}

// NewTestRecord creates a record with preferences already set so the backfill
// side effect stays out of tests that don't exercise it.
func NewTestRecord(id, email string) *models.Record {
	return &models.Record{
		ID:                     id,
		Email:                  email,
		Username:               "tester",
		Name:                   "Test User",
		Verified:               true,
		Theme:                  "system",
		Language:               "en",
		FontScale:              1.0,
		BorderRadiusMultiplier: 1.0,
	}
}

// NewTestRecordWith2FA creates a record with a committed, wrapped 2FA secret.
func NewTestRecordWith2FA(id, email, wrappedSecret string) *models.Record {
	record := NewTestRecord(id, email)
	record.TwoFASecret = wrappedSecret
	record.TwoFAEnabled = true
	return record
}

// NewTestPrincipal wraps a record in an authenticated principal.
func NewTestPrincipal(token string, record *models.Record) *auth.Principal {
	return &auth.Principal{Token: token, Record: record}
}

func testAudit() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(slog.Default())
}
