package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/opsdesk/console-access/internal/api/metrics"
	"github.com/opsdesk/console-access/internal/api/middleware"
	"github.com/opsdesk/console-access/internal/core/domain"
	"github.com/opsdesk/console-access/internal/core/ports"
)

// CookieConfig describes the session cookie set on login.
type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	auth          ports.AuthService
	collaborators ports.CollaboratorService
	cookie        CookieConfig
}

func NewAuthHandler(auth ports.AuthService, collaborators ports.CollaboratorService, cookie CookieConfig) *AuthHandler {
	if cookie.Name == "" {
		cookie.Name = "session_token"
	}
	return &AuthHandler{auth: auth, collaborators: collaborators, cookie: cookie}
}

// Login authenticates a credential and starts a session.
//
// @Summary      Login
// @Description  Returns a session token and sets it as an HttpOnly cookie.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Router       /v1/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.auth.Login(c.Request().Context(), req.Identifier, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		} else {
			metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		}
		return err
	}
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()

	h.setCookie(c, res.Token, res.ExpiresAt)

	cred := res.Credential
	managed := cred.ManagedCollaboratorIDs
	if managed == nil {
		managed = []string{}
	}
	return c.JSON(http.StatusOK, loginResponse{
		Token:                  res.Token,
		SubjectID:              cred.ID,
		Role:                   cred.Role.String(),
		LinkedCollaboratorID:   cred.LinkedCollaboratorID,
		ManagedCollaboratorIDs: managed,
		ExpiresAt:              res.ExpiresAt,
	})
}

// Verify checks a session token from the cookie or bearer header.
//
// @Summary      Verify a session token
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  verifyResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/auth/verify [get]
func (h *AuthHandler) Verify(c echo.Context) error {
	token := middleware.TokenFromRequest(c.Request(), h.cookie.Name)
	if token == "" {
		return domain.ErrTokenMissing
	}

	p, err := h.auth.Verify(c.Request().Context(), token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, verifyResponse{SubjectID: p.SubjectID, Role: p.Role.String()})
}

// Logout clears the session cookie. Tokens are stateless and stay valid
// until they expire.
//
// @Summary      Logout
// @Tags         auth
// @Success      204
// @Router       /v1/auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.NoContent(http.StatusNoContent)
}

// Me returns the caller's identity and visible collaborator ids.
//
// @Summary      Current identity
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  errorResponse
// @Router       /v1/auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	scope, err := h.collaborators.Scope(c.Request().Context(), id)
	if err != nil {
		return err
	}

	managed := id.ManagedCollaboratorIDs
	if managed == nil {
		managed = []string{}
	}
	return c.JSON(http.StatusOK, meResponse{
		SubjectID:              id.SubjectID,
		Role:                   id.Role.String(),
		LinkedCollaboratorID:   id.LinkedCollaboratorID,
		ManagedCollaboratorIDs: managed,
		VisibleCollaboratorIDs: scope.IDs(),
	})
}

func (h *AuthHandler) setCookie(c echo.Context, token string, expiresAt time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

const loginPage = `<!doctype html>
<title>Sign in</title>
<form id="login">
  <input name="identifier" autocomplete="username" required>
  <input name="password" type="password" autocomplete="current-password" required>
  <button>Sign in</button>
</form>
<script>
document.getElementById("login").addEventListener("submit", async (ev) => {
  ev.preventDefault();
  const f = new FormData(ev.target);
  const res = await fetch("/v1/auth/login", {
    method: "POST",
    headers: {"Content-Type": "application/json"},
    body: JSON.stringify({identifier: f.get("identifier"), password: f.get("password")}),
  });
  if (res.ok) {
    const next = new URLSearchParams(location.search).get("next");
    location.assign(next && next.startsWith("/") && !next.startsWith("//") ? next : "/");
  }
});
</script>`

// LoginPage serves the sign-in form the gate redirects browsers to.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	return c.HTML(http.StatusOK, loginPage)
}
