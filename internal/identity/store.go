// Package identity defines the external identity store collaborator: the
// record store that owns durable accounts, issues primary-auth tokens, sends
// email OTPs, and brokers OAuth code exchanges. Everything durable lives
// there; this service only orchestrates.
package identity

import (
	"context"
	"errors"

	"github.com/forgeworks/authgate/internal/models"
)

// ErrRejected is returned when the store explicitly refused an operation
// (bad credentials, unknown record, invalid OTP). Anything else coming out of
// a Store call is a transport or server failure and should surface as a
// generic upstream error.
var ErrRejected = errors.New("identity store rejected the request")

// Auth is the result of any store operation that authenticates a principal.
type Auth struct {
	Token  string
	Record *models.Record
}

// OAuthProvider is one provider entry from the store's auth-methods listing.
// The CodeVerifier never leaves this process.
type OAuthProvider struct {
	Name                string `json:"name"`
	DisplayName         string `json:"displayName"`
	AuthURL             string `json:"authURL"`
	State               string `json:"state"`
	CodeVerifier        string `json:"codeVerifier"`
	CodeChallenge       string `json:"codeChallenge"`
	CodeChallengeMethod string `json:"codeChallengeMethod"`
}

// CreateUserParams holds the fields for first-user bootstrap.
type CreateUserParams struct {
	Email    string
	Username string
	Name     string
	Password string
}

// Store is the identity store contract this subsystem depends on.
type Store interface {
	// AuthWithPassword checks primary credentials and returns a bearer token
	// plus the principal record (including the 2FA fields).
	AuthWithPassword(ctx context.Context, email, password string) (*Auth, error)

	// AuthRefresh re-validates a bearer token and returns a fresh token and
	// record. Used both for session verification and for re-authentication
	// after a second factor succeeds.
	AuthRefresh(ctx context.Context, token string) (*Auth, error)

	// RequestOTP asks the store to issue and email a one-time code, returning
	// the correlation id needed to verify it later.
	RequestOTP(ctx context.Context, email string) (otpID string, err error)

	// AuthWithOTP verifies a store-issued one-time code.
	AuthWithOTP(ctx context.Context, otpID, otp string) (*Auth, error)

	// ListOAuthProviders enumerates the configured OAuth providers with their
	// authorization metadata, including a fresh PKCE verifier per call.
	ListOAuthProviders(ctx context.Context) ([]OAuthProvider, error)

	// AuthWithOAuthCode exchanges an authorization code using the stored PKCE
	// verifier.
	AuthWithOAuthCode(ctx context.Context, provider, code, codeVerifier, redirectURL string) (*Auth, error)

	// UpdateRecord patches fields on a principal record using the caller's
	// own bearer token.
	UpdateRecord(ctx context.Context, token, recordID string, fields map[string]any) error

	// CountUsers reports how many accounts exist. Requires store admin
	// credentials; used only by the bootstrap path.
	CountUsers(ctx context.Context) (int, error)

	// CreateUser creates a verified account. Requires store admin
	// credentials; used only by the bootstrap path.
	CreateUser(ctx context.Context, params CreateUserParams) error
}
