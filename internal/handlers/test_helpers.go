package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/forgeworks/authgate/internal/auth"
	"github.com/forgeworks/authgate/internal/models"
	"github.com/forgeworks/authgate/internal/services"
	pkghttp "github.com/forgeworks/authgate/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithPrincipal injects an authenticated principal into the request context
func WithPrincipal(req *http.Request, token string, record *models.Record) *http.Request {
	principal := &auth.Principal{Token: token, Record: record}
	return req.WithContext(auth.ContextWithPrincipal(req.Context(), principal))
}

// AssertSuccessResponse checks status code and decodes the data field
func AssertSuccessResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &envelope)
	assert.NoError(t, err, "Failed to decode response JSON")
	assert.Equal(t, "success", envelope.Status)

	if target != nil {
		err = json.Unmarshal(envelope.Data, target)
		assert.NoError(t, err, "Failed to decode response data")
	}
}

// AssertErrorResponse checks status code and the caller-facing error message
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedMessage string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, expectedMessage, resp.Message)
}

// MockLoginService implements LoginServiceInterface for testing
type MockLoginService struct {
	LoginFunc              func(ctx context.Context, email, password string) (*services.LoginResult, error)
	VerifyFunc             func(ctx context.Context, tid, otp, otpType string) (*services.LoginResult, error)
	RequestEmailOTPFunc    func(ctx context.Context, tid, email string) error
	VerifySessionTokenFunc func(ctx context.Context, token string) (bool, error)
	GetUserDataFunc        func(ctx context.Context, principal *auth.Principal) *models.Record
	UsersExistFunc         func(ctx context.Context) (bool, error)
	CreateFirstUserFunc    func(ctx context.Context, email, username, name, password string) error
}

func (m *MockLoginService) Login(ctx context.Context, email, password string) (*services.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockLoginService) Verify(ctx context.Context, tid, otp, otpType string) (*services.LoginResult, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, tid, otp, otpType)
	}
	return nil, models.ErrInvalidTokenID
}

func (m *MockLoginService) RequestEmailOTP(ctx context.Context, tid, email string) error {
	if m.RequestEmailOTPFunc != nil {
		return m.RequestEmailOTPFunc(ctx, tid, email)
	}
	return nil
}

func (m *MockLoginService) VerifySessionToken(ctx context.Context, token string) (bool, error) {
	if m.VerifySessionTokenFunc != nil {
		return m.VerifySessionTokenFunc(ctx, token)
	}
	return false, nil
}

func (m *MockLoginService) GetUserData(ctx context.Context, principal *auth.Principal) *models.Record {
	if m.GetUserDataFunc != nil {
		return m.GetUserDataFunc(ctx, principal)
	}
	return principal.Record.Sanitized()
}

func (m *MockLoginService) UsersExist(ctx context.Context) (bool, error) {
	if m.UsersExistFunc != nil {
		return m.UsersExistFunc(ctx)
	}
	return false, nil
}

func (m *MockLoginService) CreateFirstUser(ctx context.Context, email, username, name, password string) error {
	if m.CreateFirstUserFunc != nil {
		return m.CreateFirstUserFunc(ctx, email, username, name, password)
	}
	return nil
}

// MockTwoFAService implements TwoFAServiceInterface for testing
type MockTwoFAService struct {
	RequestChallengeFunc          func(principal *auth.Principal) string
	GenerateAuthenticatorLinkFunc func(principal *auth.Principal, format string) (string, error)
	VerifyAndEnableFunc           func(ctx context.Context, principal *auth.Principal, sealedOTP string) error
	DisableFunc                   func(ctx context.Context, principal *auth.Principal) error
	GenerateOTPFunc               func(ctx context.Context, principal *auth.Principal) (string, error)
	ValidateOTPFunc               func(ctx context.Context, principal *auth.Principal, otpID, otp string) (bool, error)
}

func (m *MockTwoFAService) RequestChallenge(principal *auth.Principal) string {
	if m.RequestChallengeFunc != nil {
		return m.RequestChallengeFunc(principal)
	}
	return "challenge_test"
}

func (m *MockTwoFAService) GenerateAuthenticatorLink(principal *auth.Principal, format string) (string, error) {
	if m.GenerateAuthenticatorLinkFunc != nil {
		return m.GenerateAuthenticatorLinkFunc(principal, format)
	}
	return "sealed_link_test", nil
}

func (m *MockTwoFAService) VerifyAndEnable(ctx context.Context, principal *auth.Principal, sealedOTP string) error {
	if m.VerifyAndEnableFunc != nil {
		return m.VerifyAndEnableFunc(ctx, principal, sealedOTP)
	}
	return nil
}

func (m *MockTwoFAService) Disable(ctx context.Context, principal *auth.Principal) error {
	if m.DisableFunc != nil {
		return m.DisableFunc(ctx, principal)
	}
	return nil
}

func (m *MockTwoFAService) GenerateOTP(ctx context.Context, principal *auth.Principal) (string, error) {
	if m.GenerateOTPFunc != nil {
		return m.GenerateOTPFunc(ctx, principal)
	}
	return "otp_id_test", nil
}

func (m *MockTwoFAService) ValidateOTP(ctx context.Context, principal *auth.Principal, otpID, otp string) (bool, error) {
	if m.ValidateOTPFunc != nil {
		return m.ValidateOTPFunc(ctx, principal, otpID, otp)
	}
	return false, nil
}

// MockOAuthService implements OAuthServiceInterface for testing
type MockOAuthService struct {
	ListProvidersFunc func(ctx context.Context) ([]string, error)
	GetEndpointFunc   func(ctx context.Context, provider string) (*services.OAuthEndpoint, error)
	VerifyFunc        func(ctx context.Context, provider, code, relay, origin string) (*services.LoginResult, error)
}

func (m *MockOAuthService) ListProviders(ctx context.Context) ([]string, error) {
	if m.ListProvidersFunc != nil {
		return m.ListProvidersFunc(ctx)
	}
	return []string{}, nil
}

func (m *MockOAuthService) GetEndpoint(ctx context.Context, provider string) (*services.OAuthEndpoint, error) {
	if m.GetEndpointFunc != nil {
		return m.GetEndpointFunc(ctx, provider)
	}
	return nil, models.ErrInvalidProvider
}

func (m *MockOAuthService) Verify(ctx context.Context, provider, code, relay, origin string) (*services.LoginResult, error) {
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, provider, code, relay, origin)
	}
	return nil, models.ErrOAuthStateInvalid
}

// NewTestRecord creates a record with every preference field populated
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
