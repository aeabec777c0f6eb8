package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/opsdesk/console-access/internal/core/domain"
)

type stubResolver struct {
	identities map[string]domain.Identity
	err        error
	calls      []string
}

func (s *stubResolver) ResolveIdentity(_ context.Context, token string) (domain.Identity, error) {
	s.calls = append(s.calls, token)
	if s.err != nil {
		return domain.Identity{}, s.err
	}
	id, ok := s.identities[token]
	if !ok {
		return domain.Identity{}, domain.ErrTokenInvalid
	}
	return id, nil
}

func newGate(r *stubResolver) echo.MiddlewareFunc {
	return Gate(GateConfig{
		Resolver:       r,
		Logger:         zerolog.Nop(),
		PublicRoutes:   DefaultPublicRoutes,
		PublicPrefixes: []string{"/swagger/"},
	})
}

// serve runs the gate in front of a handler that echoes the attached subject.
func serve(t *testing.T, r *stubResolver, req *http.Request) (*httptest.ResponseRecorder, *domain.Identity) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen *domain.Identity
	h := newGate(r)(func(c echo.Context) error {
		if id, ok := domain.IdentityFromContext(c.Request().Context()); ok {
			seen = &id
		}
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec, seen
}

func TestGate_PublicRoutes(t *testing.T) {
	r := &stubResolver{}
	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/v1/auth/login"},
		{http.MethodGet, "/v1/auth/verify"},
		{http.MethodGet, "/health"},
		{http.MethodGet, "/login"},
		{http.MethodGet, "/swagger/index.html"},
	} {
		rec, seen := serve(t, r, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("%s %s: expected 200, got %d", tc.method, tc.path, rec.Code)
		}
		if seen != nil {
			t.Fatalf("%s %s: public route must not carry an identity", tc.method, tc.path)
		}
	}
	if len(r.calls) != 0 {
		t.Fatalf("public routes must not resolve tokens")
	}
}

func TestGate_DefaultDeny(t *testing.T) {
	r := &stubResolver{}
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/v1/auth/login"},
		{http.MethodGet, "/v1/accounts"},
		{http.MethodGet, "/health/../v1/accounts"},
		{http.MethodGet, "/health/"},
		{http.MethodGet, "/swagger"},
	} {
		req := httptest.NewRequest(tc.method, "/", nil)
		req.URL.Path = tc.path
		req.Header.Set(echo.HeaderAccept, echo.MIMEApplicationJSON)
		rec, _ := serve(t, r, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", tc.method, tc.path, rec.Code)
		}
	}
}

func TestGate_BrowserRedirect(t *testing.T) {
	rec, _ := serve(t, &stubResolver{}, httptest.NewRequest(http.MethodGet, "/dashboard?tab=2", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderLocation); got != "/login?next=%2Fdashboard%3Ftab%3D2" {
		t.Fatalf("unexpected location %q", got)
	}
}

func TestGate_AttachesIdentity(t *testing.T) {
	r := &stubResolver{identities: map[string]domain.Identity{
		"good": {SubjectID: "u1", Role: domain.RoleManager, ManagedCollaboratorIDs: []string{"c1"}},
	}}
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer good")

	rec, seen := serve(t, r, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if seen == nil || seen.SubjectID != "u1" || seen.Role != domain.RoleManager {
		t.Fatalf("identity not attached: %+v", seen)
	}
}

func TestGate_InvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer forged")

	rec, seen := serve(t, &stubResolver{}, req)
	if rec.Code != http.StatusUnauthorized || seen != nil {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
}

func TestGate_StorageFailureIsNotUnauthorized(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/me", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer good")

	rec, _ := serve(t, &stubResolver{err: errors.New("db down")}, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestTokenFromRequest_CookieWins(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer from-header")
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "from-cookie"})

	if got := TokenFromRequest(req, "session_token"); got != "from-cookie" {
		t.Fatalf("expected cookie token, got %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Token abc")
	if got := TokenFromRequest(req, "session_token"); got != "" {
		t.Fatalf("non-bearer scheme must be ignored, got %q", got)
	}
}
