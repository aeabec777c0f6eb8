package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/opsdesk/console-access/internal/core/domain"
	"github.com/opsdesk/console-access/internal/core/ports"
)

type stubAuthService struct {
	loginFn   func(ctx context.Context, identifier, password string) (*ports.LoginResult, error)
	verifyFn  func(ctx context.Context, token string) (domain.Principal, error)
	resolveFn func(ctx context.Context, token string) (domain.Identity, error)
}

func (s *stubAuthService) Login(ctx context.Context, identifier, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, identifier, password)
}

func (s *stubAuthService) Verify(ctx context.Context, token string) (domain.Principal, error) {
	return s.verifyFn(ctx, token)
}

func (s *stubAuthService) ResolveIdentity(ctx context.Context, token string) (domain.Identity, error) {
	return s.resolveFn(ctx, token)
}

type stubCollaboratorService struct {
	listFn  func(ctx context.Context, id domain.Identity, in ports.ListCollaboratorsInput) ([]*domain.Collaborator, error)
	getFn   func(ctx context.Context, id domain.Identity, collaboratorID string) (*domain.Collaborator, error)
	scopeFn func(ctx context.Context, id domain.Identity) (domain.CollaboratorSet, error)
}

func (s *stubCollaboratorService) List(ctx context.Context, id domain.Identity, in ports.ListCollaboratorsInput) ([]*domain.Collaborator, error) {
	return s.listFn(ctx, id, in)
}

func (s *stubCollaboratorService) Get(ctx context.Context, id domain.Identity, collaboratorID string) (*domain.Collaborator, error) {
	return s.getFn(ctx, id, collaboratorID)
}

func (s *stubCollaboratorService) Scope(ctx context.Context, id domain.Identity) (domain.CollaboratorSet, error) {
	return s.scopeFn(ctx, id)
}

type stubAccountService struct {
	createFn  func(ctx context.Context, in ports.CreateAccountInput) (*domain.Credential, error)
	getFn     func(ctx context.Context, id string) (*domain.Credential, error)
	listFn    func(ctx context.Context) ([]*domain.Credential, error)
	updateFn  func(ctx context.Context, id string, in ports.UpdateAccountInput) (*domain.Credential, error)
	deleteFn  func(ctx context.Context, id string) error
	migrateFn func(ctx context.Context) (ports.MigrationReport, error)
}

func (s *stubAccountService) Create(ctx context.Context, in ports.CreateAccountInput) (*domain.Credential, error) {
	return s.createFn(ctx, in)
}

func (s *stubAccountService) Get(ctx context.Context, id string) (*domain.Credential, error) {
	return s.getFn(ctx, id)
}

func (s *stubAccountService) List(ctx context.Context) ([]*domain.Credential, error) {
	return s.listFn(ctx)
}

func (s *stubAccountService) Update(ctx context.Context, id string, in ports.UpdateAccountInput) (*domain.Credential, error) {
	return s.updateFn(ctx, id, in)
}

func (s *stubAccountService) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}

func (s *stubAccountService) MigrateLegacyPasswords(ctx context.Context) (ports.MigrationReport, error) {
	return s.migrateFn(ctx)
}

// newContext builds an echo context with the validator wired and an
// optional gate identity attached.
func newContext(method, target, body string, id *domain.Identity) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if id != nil {
		req = req.WithContext(domain.WithIdentity(req.Context(), *id))
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// statusOf returns the status echo would answer for err.
func statusOf(err error) int {
	if he, ok := err.(*echo.HTTPError); ok {
		return he.Code
	}
	return 0
}
