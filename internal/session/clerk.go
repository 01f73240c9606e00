package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/clerk/clerk-sdk-go/v2/jwks"
	"github.com/clerk/clerk-sdk-go/v2/jwt"
	"github.com/clerk/clerk-sdk-go/v2/user"
	"github.com/hfdm/hfdm/storage"
	"github.com/hfdm/hfdm/storage/db"
	"golang.org/x/sync/singleflight"
)

// UserSyncer mirrors provider identities into local storage.
type UserSyncer interface {
	SyncUser(ctx context.Context, p storage.UserProfile) (*db.User, error)
}

// ClerkOptions configures a ClerkProvider. Zero values fall back to the Clerk
// SDK's default backend, which must be configured with clerk.SetKey.
type ClerkOptions struct {
	FetchKeys func(ctx context.Context) (*clerk.JSONWebKeySet, error)
	GetUser   func(ctx context.Context, id string) (*clerk.User, error)
	Users     UserSyncer

	CacheTTL      time.Duration
	KeyRefresh    time.Duration
	LookupTimeout time.Duration
	Secure        bool
}

// ClerkProvider verifies Clerk session JWTs and resolves the signed-in user.
//
// Tokens that fail to parse, carry an unknown key id, or fail signature and
// claim checks count as no session. Failing to reach Clerk for the signing
// keys or the user record is a provider error.
type ClerkProvider struct {
	keys          *signingKeys
	getUser       func(ctx context.Context, id string) (*clerk.User, error)
	users         UserSyncer
	cache         *userCache
	group         singleflight.Group
	lookupTimeout time.Duration
	secure        bool
}

func NewClerkProvider(opts ClerkOptions) *ClerkProvider {
	fetchKeys := opts.FetchKeys
	if fetchKeys == nil {
		fetchKeys = func(ctx context.Context) (*clerk.JSONWebKeySet, error) {
			return jwks.Get(ctx, &jwks.GetParams{})
		}
	}
	getUser := opts.GetUser
	if getUser == nil {
		getUser = user.Get
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	refresh := opts.KeyRefresh
	if refresh <= 0 {
		refresh = time.Minute
	}
	timeout := opts.LookupTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ClerkProvider{
		keys:          newSigningKeys(fetchKeys, refresh, timeout),
		getUser:       getUser,
		users:         opts.Users,
		cache:         newUserCache(ttl),
		lookupTimeout: timeout,
		secure:        opts.Secure,
	}
}

func (p *ClerkProvider) Current(ctx context.Context, r *http.Request) (*Session, error) {
	token := extractSessionToken(r)
	if token == "" {
		return nil, nil
	}

	claims, err := p.verify(ctx, token)
	if err != nil {
		return nil, err
	}
	if claims == nil || claims.Subject == "" {
		return nil, nil
	}

	u, err := p.lookupUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	s := &Session{User: &u}
	if claims.Expiry != nil {
		s.ExpiresAt = time.Unix(*claims.Expiry, 0)
	}
	return s, nil
}

// verify returns (nil, nil) for any token that is not a valid Clerk session.
// Only a failure to load the signing keys is returned as an error.
func (p *ClerkProvider) verify(ctx context.Context, token string) (*clerk.SessionClaims, error) {
	decoded, err := jwt.Decode(ctx, &jwt.DecodeParams{Token: token})
	if err != nil {
		slog.Debug("clerk token malformed", "error", err)
		return nil, nil
	}
	if decoded.KeyID == "" {
		return nil, nil
	}

	key, err := p.keys.Key(ctx, decoded.KeyID)
	if err != nil {
		return nil, err
	}
	if key == nil {
		slog.Debug("clerk token signed with unknown key", "kid", decoded.KeyID)
		return nil, nil
	}

	claims, err := jwt.Verify(ctx, &jwt.VerifyParams{Token: token, JWK: key})
	if err != nil {
		slog.Debug("clerk token rejected", "error", err)
		return nil, nil
	}
	return claims, nil
}

// lookupUser resolves a Clerk subject, collapsing concurrent lookups for the
// same subject into one API call. The shared lookup runs detached from any
// single caller's cancellation.
func (p *ClerkProvider) lookupUser(ctx context.Context, subject string) (User, error) {
	if u, ok := p.cache.Get(subject); ok {
		return u, nil
	}

	ch := p.group.DoChan(subject, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.lookupTimeout)
		defer cancel()

		cu, err := p.getUser(ctx, subject)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch clerk user %s: %w", subject, err)
		}

		u := userFromClerk(cu)
		if p.users != nil {
			stored, err := p.users.SyncUser(ctx, storage.UserProfile{
				ExternalID: u.ExternalID,
				Email:      u.Email,
				FullName:   u.Name,
				ImageURL:   u.ImageURL,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to sync clerk user %s: %w", subject, err)
			}
			u.ID = stored.ID
		}

		p.cache.Set(subject, u)
		return u, nil
	})

	select {
	case <-ctx.Done():
		return User{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return User{}, res.Err
		}
		return res.Val.(User), nil
	}
}

// Invalidate drops a cached user, e.g. after a profile change webhook.
func (p *ClerkProvider) Invalidate(subject string) {
	p.cache.Delete(subject)
}

// Clear expires every cookie the Clerk frontend may have set.
func (p *ClerkProvider) Clear(w http.ResponseWriter) {
	for _, name := range clerkCookies {
		expireCookie(w, name, p.secure)
	}
}

func (p *ClerkProvider) Close() {
	p.cache.Stop()
}

func userFromClerk(cu *clerk.User) User {
	email := primaryEmail(cu)
	u := User{
		ID:         cu.ID,
		ExternalID: cu.ID,
		Email:      email,
		Name: FullName(
			stringValue(cu.FirstName),
			stringValue(cu.LastName),
			stringValue(cu.Username),
			email,
		),
		ImageURL: stringValue(cu.ImageURL),
	}
	return u
}

func primaryEmail(cu *clerk.User) string {
	if len(cu.EmailAddresses) == 0 {
		return ""
	}

	primaryID := stringValue(cu.PrimaryEmailAddressID)
	for _, e := range cu.EmailAddresses {
		if e != nil && e.ID == primaryID {
			return e.EmailAddress
		}
	}

	if cu.EmailAddresses[0] == nil {
		return ""
	}
	return cu.EmailAddresses[0].EmailAddress
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
