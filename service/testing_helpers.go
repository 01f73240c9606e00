package service

import (
	"testing"
	"time"

	"github.com/hfdm/hfdm/storage"
	"github.com/labstack/echo/v4"
)

// testSecret is a 64-byte secret for testing
const testSecret = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// testConfig returns a cookie-provider config suitable for tests
func testConfig() *Config {
	cfg := &Config{
		Environment: "test",
		Port:        "8080",
		BaseURL:     "http://localhost:8080",
	}
	cfg.Auth.Provider = AuthProviderCookie
	cfg.Session.Secret = testSecret
	cfg.Session.MaxAge = time.Hour
	return cfg
}

// setupTestService creates a service backed by an in-memory database
func setupTestService(t *testing.T, cfg *Config) *Service {
	t.Helper()

	store, cleanup, err := storage.NewTestStorage()
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(cleanup)

	svc, err := New(store, cfg)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	t.Cleanup(svc.Close)

	return svc
}

// setupTestEcho creates an Echo instance with routes registered
func setupTestEcho(t *testing.T) (*echo.Echo, *Service) {
	t.Helper()

	e := echo.New()
	svc := setupTestService(t, testConfig())
	svc.RegisterRoutes(e)

	return e, svc
}

// setupClerkEcho registers routes for a Clerk-configured service
func setupClerkEcho(t *testing.T, cfg *Config) *echo.Echo {
	t.Helper()

	e := echo.New()
	svc := setupTestService(t, cfg)
	svc.RegisterRoutes(e)
	return e
}
