package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTOTPManager_GenerateSecret(t *testing.T) {
	tm := NewTOTPManager("LifeForge.")

	secret, err := tm.GenerateSecret("user@example.com")

	require.NoError(t, err)
	assert.NotEmpty(t, secret)

	// Fresh secret per call.
	second, err := tm.GenerateSecret("user@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, secret, second)
}

func TestTOTPManager_ProvisioningURI(t *testing.T) {
	tm := NewTOTPManager("LifeForge.")

	uri := tm.ProvisioningURI("user@example.com", "SECRET123")

	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/"))
	assert.Contains(t, uri, "secret=SECRET123")
	assert.Contains(t, uri, "issuer=LifeForge.")
}

func TestTOTPManager_Validate(t *testing.T) {
	tm := NewTOTPManager("LifeForge.")

	secret, err := tm.GenerateSecret("user@example.com")
	require.NoError(t, err)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	assert.True(t, tm.Validate(code, secret))
	assert.False(t, tm.Validate("000000", secret))
	assert.False(t, tm.Validate(code, "WRONGSECRET234567"))
	assert.False(t, tm.Validate("not-a-code", secret))
}

func TestTOTPManager_ValidateAllowsClockDrift(t *testing.T) {
	tm := NewTOTPManager("LifeForge.")

	secret, err := tm.GenerateSecret("user@example.com")
	require.NoError(t, err)

	// One step behind is inside the allowed skew.
	code, err := totp.GenerateCode(secret, time.Now().Add(-30*time.Second))
	require.NoError(t, err)

	assert.True(t, tm.Validate(code, secret))
}

func TestTOTPManager_QRCodeDataURL(t *testing.T) {
	tm := NewTOTPManager("LifeForge.")

	uri := tm.ProvisioningURI("user@example.com", "JBSWY3DPEHPK3PXP")
	dataURL, err := tm.QRCodeDataURL(uri)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dataURL, "data:image/png;base64,"))
}
