package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("IDENTITY_STORE_URL", "http://localhost:8090")
	t.Setenv("MASTER_KEY", "a-sufficiently-long-master-key")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "http://localhost:8090", cfg.Identity.URL)
	assert.Equal(t, "LifeForge.", cfg.Auth.Issuer)
	assert.Equal(t, 5*time.Minute, cfg.Auth.BridgeTTL)
	assert.Equal(t, 10*time.Minute, cfg.Auth.RelayTTL)
	assert.Contains(t, cfg.Server.AllowedOrigins, "http://localhost:5173")
}

func TestLoad_MissingStoreURL(t *testing.T) {
	t.Setenv("IDENTITY_STORE_URL", "")
	t.Setenv("MASTER_KEY", "a-sufficiently-long-master-key")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "IDENTITY_STORE_URL")
}

func TestLoad_MissingMasterKey(t *testing.T) {
	t.Setenv("IDENTITY_STORE_URL", "http://localhost:8090")
	t.Setenv("MASTER_KEY", "")

	_, err := Load()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "MASTER_KEY")
}

func TestLoad_TrimsStoreURLSlash(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("IDENTITY_STORE_URL", "http://localhost:8090/")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8090", cfg.Identity.URL)
}

func TestLoad_DurationOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("BRIDGE_TTL", "90s")
	t.Setenv("TWOFA_SETUP_TTL", "not-a-duration")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Auth.BridgeTTL)
	// Unparseable values fall back to the default.
	assert.Equal(t, 5*time.Minute, cfg.Auth.SetupTTL)
}

func TestValidateMasterKey_TooShortForProduction(t *testing.T) {
	err := validateMasterKey("only-20-chars-long!!", "production")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32")
}

func TestValidateMasterKey_TooShortForDevelopment(t *testing.T) {
	err := validateMasterKey("changeme", "development")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 16")
}

func TestLoad_ProductionOriginsFromEnv(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("MASTER_KEY", "a-32-byte-minimum-production-key")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.Server.AllowedOrigins)
}
