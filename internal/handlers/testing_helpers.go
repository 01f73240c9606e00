package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

// NewTestContext creates a new Echo context for testing
func NewTestContext(method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()

	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)

	return c, rec
}

// NewFormContext creates an Echo context for a urlencoded form POST
func NewFormContext(path string, form url.Values, cookies ...*http.Cookie) (echo.Context, *httptest.ResponseRecorder) {
	c, rec := NewTestContext(http.MethodPost, path, strings.NewReader(form.Encode()))
	c.Request().Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	for _, cookie := range cookies {
		c.Request().AddCookie(cookie)
	}
	return c, rec
}

// CookieNamed returns the Set-Cookie entry with the given name, or nil.
func CookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}
