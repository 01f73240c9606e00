package service

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hfdm/hfdm/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPublicRoutes tests that public routes exist and are accessible
func TestPublicRoutes(t *testing.T) {
	e, _ := setupTestEcho(t)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"Health check", "GET", "/health", http.StatusOK},
		{"Sign-in page", "GET", "/signin", http.StatusOK},
		{"Sign-out", "GET", "/signout", http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code,
				"Route %s %s should return %d, got %d",
				tt.method, tt.path, tt.wantStatus, rec.Code)
		})
	}
}

// TestLandingRedirectsWithoutSession covers the unauthenticated branch end to end
func TestLandingRedirectsWithoutSession(t *testing.T) {
	e, _ := setupTestEcho(t)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/signin", rec.Header().Get("Location"))
	assert.Empty(t, rec.Body.String())
}

// TestSignInThenLanding walks through the cookie sign-in flow
func TestSignInThenLanding(t *testing.T) {
	e, _ := setupTestEcho(t)

	form := url.Values{"email": {"dietitian@example.com"}, "name": {"Dana"}}
	req := httptest.NewRequest("POST", "/signin", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "hfdm_session" {
			sessionCookie = c
		}
	}
	require.NotNil(t, sessionCookie)

	req = httptest.NewRequest("GET", "/", nil)
	req.AddCookie(sessionCookie)
	rec = httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "H F D M")
	assert.Contains(t, body, "Revolutionizing Hospital Food Management")
	assert.Contains(t, body, `href="/dashboard"`)
	for _, label := range []string{"Customized Diets", "Efficient Management", "Tracked Deliveries", "Real-time Updates"} {
		assert.Equal(t, 1, strings.Count(body, label), "feature %q", label)
	}
}

// TestHealthResponse checks the health payload
func TestHealthResponse(t *testing.T) {
	e, _ := setupTestEcho(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "connected", body["database"])
}

// TestDashboardNotServed verifies the dashboard is only a link target
func TestDashboardNotServed(t *testing.T) {
	e, _ := setupTestEcho(t)

	tests := []struct {
		name   string
		method string
		path   string
	}{
		{"Dashboard", "GET", "/dashboard"},
		{"Random path", "GET", "/this-route-does-not-exist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()

			e.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusNotFound, rec.Code,
				"Route %s %s should return 404", tt.method, tt.path)
		})
	}
}

// TestClerkModeRoutes checks that the form POST is not registered under Clerk
func TestClerkModeRoutes(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Provider = AuthProviderClerk
	cfg.Clerk.SecretKey = "sk_test_123"
	cfg.Clerk.PublishableKey = "pk_test_123"

	e := setupClerkEcho(t, cfg)

	req := httptest.NewRequest("GET", "/signin", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-clerk-publishable-key="pk_test_123"`)

	req = httptest.NewRequest("POST", "/signin", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	// No token means no Clerk call and a plain redirect.
	req = httptest.NewRequest("GET", "/", nil)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/signin", rec.Header().Get("Location"))
}

// TestLandingAnswersHead checks that HEAD / goes through the same gate as GET
func TestLandingAnswersHead(t *testing.T) {
	e, _ := setupTestEcho(t)

	req := httptest.NewRequest(http.MethodHead, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "/signin", rec.Header().Get("Location"))
}

// TestNewRejectsCookieSignInInProduction keeps form sign-in out of production
func TestNewRejectsCookieSignInInProduction(t *testing.T) {
	store, cleanup, err := storage.NewTestStorage()
	require.NoError(t, err)
	t.Cleanup(cleanup)

	cfg := testConfig()
	cfg.Environment = "production"

	svc, err := New(store, cfg)
	assert.ErrorContains(t, err, "not allowed in production")
	assert.Nil(t, svc)
}
