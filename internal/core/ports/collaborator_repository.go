package ports

import (
	"context"

	"github.com/opsdesk/console-access/internal/core/domain"
)

// CollaboratorFilter narrows a collaborator listing. IDs is the visibility
// scope and is always applied first; an empty IDs slice matches nothing.
type CollaboratorFilter struct {
	IDs     []string
	Company string
	Search  string
}

// CollaboratorRepository is the read-only view of collaborator records.
type CollaboratorRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Collaborator, error)
	ListIDs(ctx context.Context) ([]string, error)
	// FilterExisting returns the subset of ids that exist.
	FilterExisting(ctx context.Context, ids []string) ([]string, error)
	List(ctx context.Context, filter CollaboratorFilter) ([]*domain.Collaborator, error)
}
