package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/gorilla/securecookie"
	"github.com/hfdm/hfdm/internal/handlers"
	"github.com/hfdm/hfdm/internal/landing"
	"github.com/hfdm/hfdm/internal/session"
	"github.com/hfdm/hfdm/storage"
	"github.com/labstack/echo/v4"
)

type Service struct {
	storage        *storage.Storage
	config         *Config
	provider       session.Provider
	landingHandler *handlers.LandingHandler
	authHandler    *handlers.AuthHandler
	closers        []func()
}

func New(storage *storage.Storage, config *Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	secure := config.SecureCookies()
	svc := &Service{
		storage: storage,
		config:  config,
	}

	switch config.Auth.Provider {
	case AuthProviderClerk:
		clerk.SetKey(config.Clerk.SecretKey)

		clerkProvider := session.NewClerkProvider(session.ClerkOptions{
			Users:  storage,
			Secure: secure,
		})
		svc.provider = clerkProvider
		svc.authHandler = handlers.NewClerkAuthHandler(config.Clerk.PublishableKey, clerkProvider, secure)
		svc.closers = append(svc.closers, clerkProvider.Close)

	case AuthProviderCookie:
		secret := config.Session.Secret
		if secret == "" {
			// Sessions will not survive a restart.
			slog.Warn("SESSION_SECRET not set, using an ephemeral session key")
			secret = string(securecookie.GenerateRandomKey(64))
		}

		cookieProvider, err := session.NewCookieProvider(secret, config.Session.MaxAge, secure, storage.Queries)
		if err != nil {
			return nil, fmt.Errorf("failed to create cookie session provider: %w", err)
		}
		svc.provider = cookieProvider
		svc.authHandler = handlers.NewCookieAuthHandler(cookieProvider, storage, secure)

	default:
		return nil, fmt.Errorf("unknown auth provider %q", config.Auth.Provider)
	}

	svc.landingHandler = handlers.NewLandingHandler(svc.provider, secure)

	slog.Info("session provider configured", "provider", config.Auth.Provider)
	return svc, nil
}

// Close releases background resources held by the session provider.
func (s *Service) Close() {
	for _, fn := range s.closers {
		fn()
	}
}

func (s *Service) RegisterRoutes(e *echo.Echo) {
	// Static files
	e.Static("/public", "public")

	// Health check
	e.GET("/health", s.handleHealth)

	// Landing page behind the session gate
	e.Match([]string{http.MethodGet, http.MethodHead}, "/", s.landingHandler.HandleLanding)

	// Auth routes
	e.GET(landing.SignInPath, s.authHandler.HandleSignIn)
	if s.authHandler.AcceptsForm() {
		e.POST(landing.SignInPath, s.authHandler.HandleSignInSubmit)
	}
	e.GET("/signout", s.authHandler.HandleSignOut)
}

func (s *Service) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := s.storage.Ping(ctx); err != nil {
		slog.Error("health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status":      "unavailable",
			"environment": s.config.Environment,
			"database":    "unreachable",
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status":      "ok",
		"environment": s.config.Environment,
		"database":    "connected",
	})
}
