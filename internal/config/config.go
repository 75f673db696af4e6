package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Identity IdentityConfig
	Auth     AuthConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type IdentityConfig struct {
	URL           string
	AdminEmail    string
	AdminPassword string
	Timeout       time.Duration
}

type AuthConfig struct {
	MasterKey     string
	Issuer        string
	BridgeTTL     time.Duration
	SetupTTL      time.Duration
	DisableTTL    time.Duration
	ChallengeTTL  time.Duration
	RelayTTL      time.Duration
	SweepInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	storeURL := getEnv("IDENTITY_STORE_URL", "")
	if storeURL == "" {
		return nil, fmt.Errorf("IDENTITY_STORE_URL is required")
	}

	masterKey := getEnv("MASTER_KEY", "")
	if masterKey == "" {
		return nil, fmt.Errorf("MASTER_KEY is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			AllowedOrigins: parseAllowedOrigins(env),
		},
		Identity: IdentityConfig{
			URL:           strings.TrimRight(storeURL, "/"),
			AdminEmail:    getEnv("IDENTITY_STORE_ADMIN_EMAIL", ""),
			AdminPassword: getEnv("IDENTITY_STORE_ADMIN_PASSWORD", ""),
			Timeout:       getEnvAsDuration("IDENTITY_STORE_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			MasterKey:     masterKey,
			Issuer:        getEnv("TOTP_ISSUER", "LifeForge."),
			BridgeTTL:     getEnvAsDuration("BRIDGE_TTL", 5*time.Minute),
			SetupTTL:      getEnvAsDuration("TWOFA_SETUP_TTL", 5*time.Minute),
			DisableTTL:    getEnvAsDuration("TWOFA_DISABLE_TTL", 5*time.Minute),
			ChallengeTTL:  getEnvAsDuration("TWOFA_CHALLENGE_TTL", 5*time.Minute),
			RelayTTL:      getEnvAsDuration("OAUTH_RELAY_TTL", 10*time.Minute),
			SweepInterval: getEnvAsDuration("STATE_SWEEP_INTERVAL", 10*time.Minute),
		},
	}

	if err := validateMasterKey(masterKey, env); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateMasterKey enforces minimum strength for the secret that wraps
// every committed 2FA secret. Failing fast here beats silently storing
// weakly protected secrets.
func validateMasterKey(key, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(key) < minLength {
		return fmt.Errorf("MASTER_KEY must be at least %d characters in %s environment (got %d)",
			minLength, env, len(key))
	}

	weakKeys := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	keyLower := strings.ToLower(key)
	for _, weak := range weakKeys {
		if keyLower == weak {
			return fmt.Errorf("MASTER_KEY cannot be a common weak value")
		}
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func parseAllowedOrigins(env string) []string {
	if env == "production" {
		originsStr := getEnv("ALLOWED_ORIGINS", "")
		if originsStr == "" {
			return []string{}
		}
		origins := strings.Split(originsStr, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		return origins
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:5173",
		"http://localhost:8080",
		"http://127.0.0.1:3000",
		"http://127.0.0.1:5173",
		"http://127.0.0.1:8080",
	}
}
