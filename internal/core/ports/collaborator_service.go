package ports

import (
	"context"

	"github.com/opsdesk/console-access/internal/core/domain"
)

// ListCollaboratorsInput holds the optional filters applied inside the
// caller's visibility scope.
type ListCollaboratorsInput struct {
	Company string
	Search  string
}

type CollaboratorService interface {
	List(ctx context.Context, id domain.Identity, in ListCollaboratorsInput) ([]*domain.Collaborator, error)
	Get(ctx context.Context, id domain.Identity, collaboratorID string) (*domain.Collaborator, error)
	Scope(ctx context.Context, id domain.Identity) (domain.CollaboratorSet, error)
}
