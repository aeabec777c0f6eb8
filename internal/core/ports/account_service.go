package ports

import (
	"context"

	"github.com/opsdesk/console-access/internal/core/domain"
)

// CreateAccountInput carries the fields for a new credential.
type CreateAccountInput struct {
	Identifier             string
	Password               string
	Role                   domain.Role
	LinkedCollaboratorID   string
	ManagedCollaboratorIDs []string
}

// UpdateAccountInput is a partial update; nil fields are unchanged.
// An empty LinkedCollaboratorID unlinks the credential.
type UpdateAccountInput struct {
	Identifier             *string
	Password               *string
	Role                   *domain.Role
	LinkedCollaboratorID   *string
	ManagedCollaboratorIDs *[]string
}

type AccountService interface {
	Create(ctx context.Context, in CreateAccountInput) (*domain.Credential, error)
	Get(ctx context.Context, id string) (*domain.Credential, error)
	List(ctx context.Context) ([]*domain.Credential, error)
	Update(ctx context.Context, id string, in UpdateAccountInput) (*domain.Credential, error)
	Delete(ctx context.Context, id string) error
	MigrateLegacyPasswords(ctx context.Context) (MigrationReport, error)
}
