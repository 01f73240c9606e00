package service

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AuthProviderClerk  = "clerk"
	AuthProviderCookie = "cookie"
)

type Config struct {
	Environment string
	Port        string
	BaseURL     string
	DBPath      string

	Auth struct {
		Provider string
	}

	Clerk struct {
		SecretKey      string
		PublishableKey string
	}

	Session struct {
		Secret string
		MaxAge time.Duration
	}
}

// LoadConfig reads configuration from the environment, loading a .env file
// first when one is present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8000"),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8000"),
		DBPath:      getEnv("DB_PATH", "./db/hfdm.db"),
	}

	// Clerk
	config.Clerk.SecretKey = getEnv("CLERK_SECRET_KEY", "")
	config.Clerk.PublishableKey = getEnv("CLERK_PUBLISHABLE_KEY", "")

	// Auth provider defaults to Clerk only when it is configured
	defaultProvider := AuthProviderCookie
	if config.Clerk.SecretKey != "" {
		defaultProvider = AuthProviderClerk
	}
	config.Auth.Provider = strings.ToLower(getEnv("AUTH_PROVIDER", defaultProvider))

	// Session cookie
	config.Session.Secret = getEnv("SESSION_SECRET", "")
	maxAge, err := time.ParseDuration(getEnv("SESSION_MAX_AGE", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_MAX_AGE: %w", err)
	}
	config.Session.MaxAge = maxAge

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that the selected auth provider has what it needs.
func (c *Config) Validate() error {
	switch c.Auth.Provider {
	case AuthProviderClerk:
		if c.Clerk.SecretKey == "" {
			return fmt.Errorf("CLERK_SECRET_KEY is required when AUTH_PROVIDER=clerk")
		}
		if c.Clerk.PublishableKey == "" {
			return fmt.Errorf("CLERK_PUBLISHABLE_KEY is required when AUTH_PROVIDER=clerk")
		}
	case AuthProviderCookie:
		// Cookie sign-in takes an email with no proof of identity.
		if c.IsProduction() {
			return fmt.Errorf("AUTH_PROVIDER=cookie is not allowed in production, configure Clerk")
		}
		if c.Session.Secret != "" && len(c.Session.Secret) < 64 {
			return fmt.Errorf("SESSION_SECRET must be at least 64 characters, got %d", len(c.Session.Secret))
		}
		if c.Session.MaxAge <= 0 {
			return fmt.Errorf("SESSION_MAX_AGE must be positive")
		}
	default:
		return fmt.Errorf("unknown AUTH_PROVIDER %q (want %q or %q)", c.Auth.Provider, AuthProviderClerk, AuthProviderCookie)
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SecureCookies reports whether cookies should carry the Secure flag.
func (c *Config) SecureCookies() bool {
	return c.IsProduction() || strings.HasPrefix(c.BaseURL, "https://")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
