package ports

import (
	"context"
	"time"

	"github.com/opsdesk/console-access/internal/core/domain"
)

// PasswordHasher turns plaintext passwords into stored forms and checks them.
type PasswordHasher interface {
	Hash(plain string) string
	Verify(plain, stored string) bool
}

// TokenIssuer issues and verifies signed session tokens.
type TokenIssuer interface {
	Issue(subjectID string, role domain.Role) (token string, expiresAt time.Time, err error)
	Verify(token string) (domain.Principal, error)
}

// AdminGuard serializes operations that read the admin count and then act on it.
// The returned release func must be called exactly once.
type AdminGuard interface {
	Acquire(ctx context.Context) (release func(), err error)
}
