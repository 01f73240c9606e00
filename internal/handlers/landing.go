package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/hfdm/hfdm/internal/landing"
	"github.com/hfdm/hfdm/internal/session"
	"github.com/labstack/echo/v4"
)

// LandingHandler serves the landing page behind the session gate.
type LandingHandler struct {
	provider session.Provider
	returnTo returnTo
}

func NewLandingHandler(provider session.Provider, secure bool) *LandingHandler {
	return &LandingHandler{provider: provider, returnTo: returnTo{secure: secure}}
}

// HandleLanding redirects to sign-in without a session and renders the
// landing page otherwise. Provider failures surface as a 500.
func (h *LandingHandler) HandleLanding(c echo.Context) error {
	req := c.Request()

	sess, err := h.provider.Current(req.Context(), req)
	if err != nil {
		slog.Error("session lookup failed", "path", req.URL.Path, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "session lookup failed").
			SetInternal(fmt.Errorf("landing session lookup: %w", err))
	}

	out := landing.Decide(sess)
	switch out.Kind {
	case landing.Redirect:
		slog.Debug("landing redirect", "path", req.URL.Path, "to", out.Path)
		h.returnTo.remember(c, req.URL.RequestURI())
		return c.Redirect(http.StatusTemporaryRedirect, out.Path)
	case landing.Render:
		slog.Debug("landing render", "path", req.URL.Path, "user_id", sess.UserID())
		return Render(c, http.StatusOK, out.Page)
	}

	return fmt.Errorf("unhandled landing outcome %s", out.Kind)
}
