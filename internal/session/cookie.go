package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/hfdm/hfdm/storage/db"
)

const defaultCookieName = "hfdm_session"

// cookiePayload is what gets signed and encrypted into the session cookie.
// Only the local user id is kept; the user itself is loaded per request.
type cookiePayload struct {
	ID        uuid.UUID
	UserID    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// UserLoader reads stored users by local id.
type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (db.User, error)
}

// CookieProvider keeps the session in a signed, encrypted cookie. It backs
// local development.
type CookieProvider struct {
	codec  *securecookie.SecureCookie
	users  UserLoader
	name   string
	maxAge time.Duration
	secure bool
	now    func() time.Time
}

// NewCookieProvider builds a provider from a secret of at least 64 bytes: the
// first 32 sign the cookie and the next 32 encrypt it.
func NewCookieProvider(secret string, maxAge time.Duration, secure bool, users UserLoader) (*CookieProvider, error) {
	if users == nil {
		return nil, fmt.Errorf("cookie sessions need a user loader")
	}
	if len(secret) < 64 {
		return nil, fmt.Errorf("session secret must be at least 64 characters, got %d", len(secret))
	}

	codec := securecookie.New([]byte(secret)[:32], []byte(secret)[32:64])
	if maxAge > 0 {
		codec.MaxAge(int(maxAge.Seconds()))
	}

	return &CookieProvider{
		codec:  codec,
		users:  users,
		name:   defaultCookieName,
		maxAge: maxAge,
		secure: secure,
		now:    time.Now,
	}, nil
}

func (p *CookieProvider) Current(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(p.name)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}

	var payload cookiePayload
	if err := p.codec.Decode(p.name, cookie.Value, &payload); err != nil {
		slog.Debug("session cookie rejected", "path", r.URL.Path, "error", err)
		return nil, nil
	}

	if !p.now().Before(payload.ExpiresAt) {
		return nil, nil
	}

	stored, err := p.users.GetUserByID(ctx, payload.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		slog.Debug("session user no longer exists", "user_id", payload.UserID)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session user %s: %w", payload.UserID, err)
	}

	u := userFromStored(stored)
	return &Session{User: &u, ExpiresAt: payload.ExpiresAt}, nil
}

// Set issues a fresh session cookie for the stored user userID.
func (p *CookieProvider) Set(w http.ResponseWriter, userID string) error {
	if userID == "" {
		return fmt.Errorf("cannot issue session without a user id")
	}

	now := p.now()
	payload := cookiePayload{
		ID:        uuid.New(),
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(p.maxAge),
	}

	encoded, err := p.codec.Encode(p.name, payload)
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     p.name,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(p.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   p.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

func (p *CookieProvider) Clear(w http.ResponseWriter) {
	expireCookie(w, p.name, p.secure)
}
