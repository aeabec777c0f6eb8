package ports

import (
	"context"

	"github.com/opsdesk/console-access/internal/core/domain"
)

// CredentialChange is a partial update applied to one credential as a single
// atomic write. Nil fields are left untouched; Connect and Disconnect are the
// managed-set diff computed by the caller.
type CredentialChange struct {
	ID                   string
	Identifier           *string
	PasswordHash         *string
	Role                 *domain.Role
	LinkedCollaboratorID *string
	Connect              []string
	Disconnect           []string
}

// Empty reports whether the change touches nothing.
func (c CredentialChange) Empty() bool {
	return c.Identifier == nil && c.PasswordHash == nil && c.Role == nil &&
		c.LinkedCollaboratorID == nil && len(c.Connect) == 0 && len(c.Disconnect) == 0
}

// CredentialRepository persists console credentials together with their
// linked collaborator and managed set.
type CredentialRepository interface {
	Create(ctx context.Context, cred *domain.Credential) (*domain.Credential, error)
	FindByID(ctx context.Context, id string) (*domain.Credential, error)
	FindByIdentifier(ctx context.Context, identifier string) (*domain.Credential, error)
	List(ctx context.Context) ([]*domain.Credential, error)
	CountByRole(ctx context.Context, role domain.Role) (int64, error)
	Update(ctx context.Context, change CredentialChange) (*domain.Credential, error)
	Delete(ctx context.Context, id string) error
	// SwapPasswordHash replaces the stored hash only if it still equals expected.
	SwapPasswordHash(ctx context.Context, id, expected, next string) (bool, error)
}
