// Package landing decides what the landing page shows for a session.
package landing

import (
	"github.com/a-h/templ"
	"github.com/hfdm/hfdm/internal/session"
	"github.com/hfdm/hfdm/views/home"
)

const (
	SignInPath    = "/signin"
	DashboardPath = "/dashboard"
)

// Kind is the outcome of a landing request.
type Kind int

const (
	Redirect Kind = iota + 1
	Render
)

func (k Kind) String() string {
	switch k {
	case Redirect:
		return "redirect"
	case Render:
		return "render"
	}
	return "unknown"
}

// Outcome is either a redirect (Path set) or a rendered page (Page set).
type Outcome struct {
	Kind Kind
	Path string
	Page templ.Component
}

// Decide maps a session to an outcome. A nil session, or one without a user
// identity, redirects to sign-in.
func Decide(s *session.Session) Outcome {
	if !s.Authenticated() {
		return Outcome{Kind: Redirect, Path: SignInPath}
	}
	return Outcome{Kind: Render, Page: home.Landing(DashboardPath)}
}
