package service

import (
	"context"
	"fmt"

	"github.com/opsdesk/console-access/internal/core/domain"
	"github.com/opsdesk/console-access/internal/core/ports"
)

// Scope computes the collaborator ids visible to id.
//
//	admin        -> every id in all
//	manager      -> linked (if any) plus the managed set
//	collaborator -> linked, or nothing when unlinked
//
// Any other role sees nothing. allCollaboratorIDs is only read for admins.
func Scope(id domain.Identity, allCollaboratorIDs []string) domain.CollaboratorSet {
	switch id.Role {
	case domain.RoleAdmin:
		return domain.NewCollaboratorSet(allCollaboratorIDs...)
	case domain.RoleManager:
		set := domain.NewCollaboratorSet(id.ManagedCollaboratorIDs...)
		set.Add(id.LinkedCollaboratorID)
		return set
	case domain.RoleCollaborator:
		return domain.NewCollaboratorSet(id.LinkedCollaboratorID)
	default:
		return domain.NewCollaboratorSet()
	}
}

// VisibilityResolver applies Scope using the collaborator store for admins.
type VisibilityResolver struct {
	collaborators ports.CollaboratorRepository
}

func NewVisibilityResolver(collaborators ports.CollaboratorRepository) *VisibilityResolver {
	return &VisibilityResolver{collaborators: collaborators}
}

// Resolve returns the set of collaborator ids id may see.
func (r *VisibilityResolver) Resolve(ctx context.Context, id domain.Identity) (domain.CollaboratorSet, error) {
	var all []string
	if id.Role == domain.RoleAdmin {
		ids, err := r.collaborators.ListIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve visibility: %w", err)
		}
		all = ids
	}
	return Scope(id, all), nil
}

// CanSee reports whether collaboratorID is inside id's scope.
func (r *VisibilityResolver) CanSee(ctx context.Context, id domain.Identity, collaboratorID string) (bool, error) {
	if collaboratorID == "" {
		return false, nil
	}
	if id.Role != domain.RoleAdmin {
		return Scope(id, nil).Contains(collaboratorID), nil
	}
	scope, err := r.Resolve(ctx, id)
	if err != nil {
		return false, err
	}
	return scope.Contains(collaboratorID), nil
}
