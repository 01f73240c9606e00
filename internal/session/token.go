package session

import (
	"net/http"
	"strings"
)

// clerkCookies are the cookies the Clerk frontend SDK may set.
var clerkCookies = []string{"__session", "__clerk_db_jwt", "__client_uat", "__client"}

// extractSessionToken looks for a Clerk session token in the Clerk-Session
// header, a bearer Authorization header, then the __session cookie.
func extractSessionToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get("Clerk-Session")); token != "" {
		return token
	}

	if auth := strings.TrimSpace(r.Header.Get("Authorization")); auth != "" {
		if len(auth) > 7 && strings.EqualFold(auth[:7], "Bearer ") {
			return strings.TrimSpace(auth[7:])
		}
		return auth
	}

	if cookie, err := r.Cookie("__session"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return ""
}

func expireCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
