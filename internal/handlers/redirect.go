package handlers

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/hfdm/hfdm/internal/landing"
	"github.com/labstack/echo/v4"
)

const returnToCookieName = "hfdm_return_to"

// Auth pages never make sense as a post-sign-in destination.
var authPaths = map[string]bool{
	landing.SignInPath: true,
	"/signout":         true,
}

// returnTo remembers where an unauthenticated visitor was headed, so sign-in
// can send them back there.
type returnTo struct {
	secure bool
}

// localTarget returns target as a same-origin request URI. The value is also
// safe to store unescaped in a cookie.
func localTarget(target string) (string, bool) {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return "", false
	}
	for _, r := range target {
		if r <= ' ' || r >= 0x7f || strings.ContainsRune(`"\;,`, r) {
			return "", false
		}
	}

	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" || u.Opaque != "" {
		return "", false
	}
	if authPaths[path.Clean(u.Path)] {
		return "", false
	}

	return u.RequestURI(), true
}

func (r returnTo) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     returnToCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}

func (r returnTo) remember(c echo.Context, target string) {
	if local, ok := localTarget(target); ok {
		c.SetCookie(r.cookie(local, 300))
	}
}

func (r returnTo) forget(c echo.Context) {
	c.SetCookie(r.cookie("", -1))
}

// pop reads and clears the remembered target, falling back to "/".
func (r returnTo) pop(c echo.Context) string {
	cookie, err := c.Cookie(returnToCookieName)
	if err != nil || cookie.Value == "" {
		return "/"
	}
	r.forget(c)

	if local, ok := localTarget(cookie.Value); ok {
		return local
	}
	return "/"
}
