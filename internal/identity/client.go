package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/forgeworks/authgate/internal/models"
)

// Client talks to a record-store HTTP API (PocketBase wire format).
type Client struct {
	baseURL       string
	adminEmail    string
	adminPassword string
	http          *http.Client
	logger        *slog.Logger
}

// NewClient creates a store client. adminEmail/adminPassword may be empty if
// the bootstrap operations are not needed.
func NewClient(baseURL, adminEmail, adminPassword string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:       baseURL,
		adminEmail:    adminEmail,
		adminPassword: adminPassword,
		http:          &http.Client{Timeout: timeout},
		logger:        logger,
	}
}

// recordPayload is the store's wire shape for a principal record. It is
// deliberately separate from models.Record: secret-bearing fields unmarshal
// here but models.Record never serializes them back out.
type recordPayload struct {
	ID                     string  `json:"id"`
	Email                  string  `json:"email"`
	Username               string  `json:"username"`
	Name                   string  `json:"name"`
	Avatar                 string  `json:"avatar"`
	Verified               bool    `json:"verified"`
	Theme                  string  `json:"theme"`
	Language               string  `json:"language"`
	FontScale              float64 `json:"fontScale"`
	BorderRadiusMultiplier float64 `json:"borderRadiusMultiplier"`
	TwoFASecret            string  `json:"twoFASecret"`
}

func (p *recordPayload) toModel() *models.Record {
	return &models.Record{
		ID:                     p.ID,
		Email:                  p.Email,
		Username:               p.Username,
		Name:                   p.Name,
		Avatar:                 p.Avatar,
		Verified:               p.Verified,
		Theme:                  p.Theme,
		Language:               p.Language,
		FontScale:              p.FontScale,
		BorderRadiusMultiplier: p.BorderRadiusMultiplier,
		TwoFASecret:            p.TwoFASecret,
		TwoFAEnabled:           p.TwoFASecret != "",
	}
}

type authPayload struct {
	Token  string        `json:"token"`
	Record recordPayload `json:"record"`
}

func (p *authPayload) toAuth() *Auth {
	return &Auth{Token: p.Token, Record: p.Record.toModel()}
}

// AuthWithPassword checks primary credentials against the store.
func (c *Client) AuthWithPassword(ctx context.Context, email, password string) (*Auth, error) {
	var out authPayload
	err := c.do(ctx, http.MethodPost, "/api/collections/users/auth-with-password", "",
		map[string]any{"identity": email, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	return out.toAuth(), nil
}

// AuthRefresh re-validates a bearer token.
func (c *Client) AuthRefresh(ctx context.Context, token string) (*Auth, error) {
	var out authPayload
	err := c.do(ctx, http.MethodPost, "/api/collections/users/auth-refresh", token, nil, &out)
	if err != nil {
		return nil, err
	}
	return out.toAuth(), nil
}

// RequestOTP asks the store to issue an email OTP.
func (c *Client) RequestOTP(ctx context.Context, email string) (string, error) {
	var out struct {
		OTPID string `json:"otpId"`
	}
	err := c.do(ctx, http.MethodPost, "/api/collections/users/request-otp", "",
		map[string]any{"email": email}, &out)
	if err != nil {
		return "", err
	}
	return out.OTPID, nil
}

// AuthWithOTP verifies a store-issued OTP by its correlation id.
func (c *Client) AuthWithOTP(ctx context.Context, otpID, otp string) (*Auth, error) {
	var out authPayload
	err := c.do(ctx, http.MethodPost, "/api/collections/users/auth-with-otp", "",
		map[string]any{"otpId": otpID, "password": otp}, &out)
	if err != nil {
		return nil, err
	}
	return out.toAuth(), nil
}

// ListOAuthProviders fetches provider metadata from the auth-methods listing.
func (c *Client) ListOAuthProviders(ctx context.Context) ([]OAuthProvider, error) {
	var out struct {
		OAuth2 struct {
			Enabled   bool            `json:"enabled"`
			Providers []OAuthProvider `json:"providers"`
		} `json:"oauth2"`
	}
	err := c.do(ctx, http.MethodGet, "/api/collections/users/auth-methods", "", nil, &out)
	if err != nil {
		return nil, err
	}
	return out.OAuth2.Providers, nil
}

// AuthWithOAuthCode exchanges an authorization code via the store.
func (c *Client) AuthWithOAuthCode(ctx context.Context, provider, code, codeVerifier, redirectURL string) (*Auth, error) {
	var out authPayload
	err := c.do(ctx, http.MethodPost, "/api/collections/users/auth-with-oauth2", "",
		map[string]any{
			"provider":     provider,
			"code":         code,
			"codeVerifier": codeVerifier,
			"redirectURL":  redirectURL,
			"createData":   map[string]any{"emailVisibility": false},
		}, &out)
	if err != nil {
		return nil, err
	}
	return out.toAuth(), nil
}

// UpdateRecord patches a principal record with the caller's own token.
func (c *Client) UpdateRecord(ctx context.Context, token, recordID string, fields map[string]any) error {
	path := "/api/collections/users/records/" + url.PathEscape(recordID)
	return c.do(ctx, http.MethodPatch, path, token, fields, nil)
}

// CountUsers reports the total number of accounts via the admin API.
func (c *Client) CountUsers(ctx context.Context) (int, error) {
	adminToken, err := c.adminAuth(ctx)
	if err != nil {
		return 0, err
	}

	var out struct {
		TotalItems int `json:"totalItems"`
	}
	err = c.do(ctx, http.MethodGet, "/api/collections/users/records?perPage=1", adminToken, nil, &out)
	if err != nil {
		return 0, err
	}
	return out.TotalItems, nil
}

// CreateUser creates a verified account via the admin API.
func (c *Client) CreateUser(ctx context.Context, params CreateUserParams) error {
	adminToken, err := c.adminAuth(ctx)
	if err != nil {
		return err
	}

	return c.do(ctx, http.MethodPost, "/api/collections/users/records", adminToken, map[string]any{
		"email":           params.Email,
		"username":        params.Username,
		"name":            params.Name,
		"password":        params.Password,
		"passwordConfirm": params.Password,
		"verified":        true,
	}, nil)
}

func (c *Client) adminAuth(ctx context.Context) (string, error) {
	if c.adminEmail == "" || c.adminPassword == "" {
		return "", fmt.Errorf("store admin credentials not configured: %w", models.ErrServerConfig)
	}

	var out struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/collections/_superusers/auth-with-password", "",
		map[string]any{"identity": c.adminEmail, "password": c.adminPassword}, &out)
	if err != nil {
		return "", err
	}
	return out.Token, nil
}

// do performs one request against the store and decodes the response.
// 4xx responses map to ErrRejected; everything else unexpected is a plain
// wrapped error so callers can treat it as an upstream failure.
func (c *Client) do(ctx context.Context, method, path, token string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("identity store request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		var storeErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&storeErr)
		c.logger.Warn("identity store rejected request",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("store_message", storeErr.Message))
		return fmt.Errorf("%w: %s", ErrRejected, storeErr.Message)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("identity store returned status %d for %s", resp.StatusCode, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode store response: %w", err)
		}
	}

	return nil
}
