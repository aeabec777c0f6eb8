package middleware

import (
	"context"
	"errors"
	"html"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/opsdesk/console-access/internal/api/metrics"
	"github.com/opsdesk/console-access/internal/core/domain"
)

const accessDenied = "access denied"

// IdentityResolver turns a session token into the caller's current identity.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, token string) (domain.Identity, error)
}

// PublicRoute is an allow-listed route. An empty Method matches any method.
type PublicRoute struct {
	Method string
	Path   string
}

type GateConfig struct {
	Resolver IdentityResolver
	Logger   zerolog.Logger

	// PublicRoutes match exact, already-clean paths.
	PublicRoutes []PublicRoute
	// PublicPrefixes match any clean path below them, e.g. "/swagger/".
	PublicPrefixes []string
	// APIPrefixes select the JSON rejection; other paths are redirected.
	APIPrefixes []string
	LoginPath   string
	CookieName  string
}

// DefaultPublicRoutes is the allow-list for the console.
var DefaultPublicRoutes = []PublicRoute{
	{Method: http.MethodPost, Path: "/v1/auth/login"},
	{Method: http.MethodGet, Path: "/v1/auth/verify"},
	{Method: http.MethodPost, Path: "/v1/auth/logout"},
	{Path: "/login"},
	{Path: "/health"},
	{Path: "/health/ready"},
}

// Gate rejects every request outside the allow-list that does not carry a
// valid session token, and attaches the resolved identity to the request
// context for everything it forwards.
func Gate(cfg GateConfig) echo.MiddlewareFunc {
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "session_token"
	}
	if cfg.APIPrefixes == nil {
		cfg.APIPrefixes = []string{"/v1/", "/api/"}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if cfg.isPublic(req.Method, req.URL.Path) {
				metrics.GateDecisionsTotal.WithLabelValues("public").Inc()
				return next(c)
			}

			token := TokenFromRequest(req, cfg.CookieName)
			if token == "" {
				metrics.GateDecisionsTotal.WithLabelValues("missing_token").Inc()
				return cfg.reject(c)
			}

			id, err := cfg.Resolver.ResolveIdentity(req.Context(), token)
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrTokenInvalid), errors.Is(err, domain.ErrTokenMissing):
				metrics.GateDecisionsTotal.WithLabelValues("invalid_token").Inc()
				return cfg.reject(c)
			default:
				metrics.GateDecisionsTotal.WithLabelValues("error").Inc()
				cfg.Logger.Error().Err(err).Str("path", req.URL.Path).Msg("gate: identity lookup failed")
				return err
			}

			metrics.GateDecisionsTotal.WithLabelValues("allowed").Inc()
			c.SetRequest(req.WithContext(domain.WithIdentity(req.Context(), id)))
			return next(c)
		}
	}
}

func (cfg GateConfig) isPublic(method, p string) bool {
	if p == "" || path.Clean(p) != p {
		return false
	}
	for _, r := range cfg.PublicRoutes {
		if r.Path == p && (r.Method == "" || r.Method == method) {
			return true
		}
	}
	for _, prefix := range cfg.PublicPrefixes {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func (cfg GateConfig) wantsJSON(r *http.Request) bool {
	for _, prefix := range cfg.APIPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMEApplicationJSON)
}

func (cfg GateConfig) reject(c echo.Context) error {
	req := c.Request()
	if cfg.wantsJSON(req) {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": accessDenied})
	}

	target := cfg.LoginPath + "?next=" + url.QueryEscape(req.URL.RequestURI())
	c.Response().Header().Set(echo.HeaderLocation, target)
	return c.HTML(http.StatusUnauthorized,
		`<!doctype html><title>Sign in</title><p>Please <a href="`+html.EscapeString(target)+`">sign in</a>.</p>`)
}

// TokenFromRequest returns the session token, preferring the cookie over an
// Authorization: Bearer header.
func TokenFromRequest(r *http.Request, cookieName string) string {
	if ck, err := r.Cookie(cookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	parts := strings.SplitN(r.Header.Get(echo.HeaderAuthorization), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}
