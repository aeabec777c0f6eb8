package ports

import (
	"context"
	"time"

	"github.com/opsdesk/console-access/internal/core/domain"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token      string
	ExpiresAt  time.Time
	Credential *domain.Credential
}

type AuthService interface {
	Login(ctx context.Context, identifier, password string) (*LoginResult, error)
	Verify(ctx context.Context, token string) (domain.Principal, error)
	ResolveIdentity(ctx context.Context, token string) (domain.Identity, error)
}
