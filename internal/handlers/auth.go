package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/hfdm/hfdm/internal/landing"
	"github.com/hfdm/hfdm/internal/session"
	"github.com/hfdm/hfdm/storage/db"
	"github.com/hfdm/hfdm/views/auth"
	"github.com/labstack/echo/v4"
)

// UserStore finds or records users signing in through the cookie provider.
type UserStore interface {
	FindOrCreateUserByEmail(ctx context.Context, email, fullName string) (*db.User, error)
}

// AuthHandler serves the sign-in and sign-out routes for whichever session
// provider is configured.
type AuthHandler struct {
	publishableKey string
	clearer        session.Clearer
	cookies        *session.CookieProvider
	users          UserStore
	validate       *validator.Validate
	returnTo       returnTo
}

// NewClerkAuthHandler mounts Clerk's hosted components on the sign-in page.
func NewClerkAuthHandler(publishableKey string, clerk session.Clearer, secure bool) *AuthHandler {
	return &AuthHandler{
		publishableKey: publishableKey,
		clearer:        clerk,
		validate:       validator.New(),
		returnTo:       returnTo{secure: secure},
	}
}

// NewCookieAuthHandler signs users in with an email form and a signed cookie.
func NewCookieAuthHandler(cookies *session.CookieProvider, users UserStore, secure bool) *AuthHandler {
	return &AuthHandler{
		clearer:  cookies,
		cookies:  cookies,
		users:    users,
		validate: validator.New(),
		returnTo: returnTo{secure: secure},
	}
}

// AcceptsForm reports whether POST /signin is served.
func (h *AuthHandler) AcceptsForm() bool {
	return h.cookies != nil
}

type signInRequest struct {
	Email string `form:"email" validate:"required,email,max=254"`
	Name  string `form:"name" validate:"max=120"`
}

// HandleSignIn renders the sign-in page
func (h *AuthHandler) HandleSignIn(c echo.Context) error {
	if h.publishableKey != "" {
		redirectURL := h.returnTo.pop(c)
		slog.Info("rendering clerk sign-in page", "redirect_url", redirectURL)
		return Render(c, http.StatusOK, auth.SignIn(auth.SignInData{
			PublishableKey: h.publishableKey,
			RedirectURL:    redirectURL,
		}))
	}

	return Render(c, http.StatusOK, auth.SignIn(auth.SignInData{FormAction: landing.SignInPath}))
}

// HandleSignInSubmit validates the form, records the user and issues the
// session cookie.
func (h *AuthHandler) HandleSignInSubmit(c echo.Context) error {
	if !h.AcceptsForm() {
		return echo.NewHTTPError(http.StatusNotFound)
	}

	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	if err := h.validate.Struct(&req); err != nil {
		slog.Debug("sign-in form rejected", "error", err)
		return Render(c, http.StatusBadRequest, auth.SignIn(auth.SignInData{
			FormAction: landing.SignInPath,
			Email:      req.Email,
			Name:       req.Name,
			Error:      "Please enter a valid email address.",
		}))
	}

	ctx := c.Request().Context()
	dbUser, err := h.users.FindOrCreateUserByEmail(ctx, req.Email, session.FullName(req.Name, "", "", req.Email))
	if err != nil {
		slog.Error("failed to record signed-in user", "error", err, "email", req.Email)
		return echo.NewHTTPError(http.StatusInternalServerError, "sign-in failed").SetInternal(err)
	}

	if err := h.cookies.Set(c.Response(), dbUser.ID); err != nil {
		slog.Error("failed to issue session cookie", "error", err, "user_id", dbUser.ID)
		return echo.NewHTTPError(http.StatusInternalServerError, "sign-in failed").SetInternal(err)
	}

	slog.Info("user signed in", "user_id", dbUser.ID)
	return c.Redirect(http.StatusSeeOther, h.returnTo.pop(c))
}

// HandleSignOut clears session cookies. With Clerk the browser SDK also has to
// sign out, so a small page does that before returning to sign-in.
func (h *AuthHandler) HandleSignOut(c echo.Context) error {
	if h.clearer != nil {
		h.clearer.Clear(c.Response())
	}
	h.returnTo.forget(c)

	if h.publishableKey != "" {
		return Render(c, http.StatusOK, auth.SignOut(h.publishableKey, landing.SignInPath))
	}
	return c.Redirect(http.StatusSeeOther, landing.SignInPath)
}
