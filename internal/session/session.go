// Package session resolves the authenticated user behind a request.
//
// A Provider answers one question per request: who, if anyone, is signed in.
// Missing, malformed, or expired credentials are reported as a nil Session,
// never as an error. Errors are reserved for the provider itself failing.
package session

import (
	"context"
	"net/http"
	"time"

	"github.com/hfdm/hfdm/storage/db"
)

// User is the identity attached to a session.
type User struct {
	ID         string
	ExternalID string
	Email      string
	Name       string
	ImageURL   string
}

func userFromStored(u db.User) User {
	return User{
		ID:         u.ID,
		ExternalID: u.ExternalID,
		Email:      u.Email,
		Name:       u.FullName,
		ImageURL:   u.ImageUrl.String,
	}
}

// Session is the per-request authentication state.
type Session struct {
	User      *User
	ExpiresAt time.Time
}

// Authenticated reports whether s carries a user identity. It is safe to call
// on a nil Session.
func (s *Session) Authenticated() bool {
	return s != nil && s.User != nil && s.User.ID != ""
}

// UserID returns the user id, or "" when unauthenticated.
func (s *Session) UserID() string {
	if !s.Authenticated() {
		return ""
	}
	return s.User.ID
}

// Provider looks up the session for an incoming request.
type Provider interface {
	Current(ctx context.Context, r *http.Request) (*Session, error)
}

// Clearer is implemented by providers that keep credentials in cookies.
type Clearer interface {
	Clear(w http.ResponseWriter)
}

// FullName picks the best display name from the parts a provider knows about.
func FullName(firstName, lastName, username, email string) string {
	switch {
	case firstName != "" && lastName != "":
		return firstName + " " + lastName
	case firstName != "":
		return firstName
	case lastName != "":
		return lastName
	case username != "":
		return username
	case email != "":
		return email
	}
	return "User"
}
