package auth

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

// TOTPManager handles TOTP secret generation and code validation for the
// app-based second factor.
type TOTPManager struct {
	issuer string
}

// NewTOTPManager creates a new TOTP manager. The issuer appears in the
// authenticator app next to the account email.
func NewTOTPManager(issuer string) *TOTPManager {
	return &TOTPManager{issuer: issuer}
}

// GenerateSecret creates a fresh base32 TOTP secret named after the
// principal's email.
func (tm *TOTPManager) GenerateSecret(email string) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      tm.issuer,
		AccountName: email,
		SecretSize:  32,
		Period:      30,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	return key.Secret(), nil
}

// ProvisioningURI builds the otpauth URI an authenticator app enrolls from.
func (tm *TOTPManager) ProvisioningURI(email, secret string) string {
	return fmt.Sprintf("otpauth://totp/%s?secret=%s&issuer=%s",
		url.PathEscape(email), secret, url.QueryEscape(tm.issuer))
}

// Validate checks a 6-digit code against a base32 secret.
// Allows ±1 time step for clock drift.
func (tm *TOTPManager) Validate(code, secret string) bool {
	valid, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return valid
}

// QRCodeDataURL renders a provisioning URI as a PNG data URL for clients that
// prefer a ready-made image over rendering the URI themselves.
func (tm *TOTPManager) QRCodeDataURL(uri string) (string, error) {
	qr, err := qrcode.New(uri, qrcode.Highest)
	if err != nil {
		return "", fmt.Errorf("failed to create QR code: %w", err)
	}

	png, err := qr.PNG(200)
	if err != nil {
		return "", fmt.Errorf("failed to encode QR code: %w", err)
	}

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
