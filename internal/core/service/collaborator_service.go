package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/opsdesk/console-access/internal/core/domain"
	"github.com/opsdesk/console-access/internal/core/ports"
)

// CollaboratorService serves collaborator reads filtered by the caller's scope.
type CollaboratorService struct {
	repo     ports.CollaboratorRepository
	resolver *VisibilityResolver
}

func NewCollaboratorService(repo ports.CollaboratorRepository, resolver *VisibilityResolver) *CollaboratorService {
	return &CollaboratorService{repo: repo, resolver: resolver}
}

// Scope returns the caller's visible collaborator ids.
func (s *CollaboratorService) Scope(ctx context.Context, id domain.Identity) (domain.CollaboratorSet, error) {
	return s.resolver.Resolve(ctx, id)
}

// List returns the collaborators inside the caller's scope that match in.
// The scope is applied before any other filter.
func (s *CollaboratorService) List(ctx context.Context, id domain.Identity, in ports.ListCollaboratorsInput) ([]*domain.Collaborator, error) {
	scope, err := s.resolver.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if scope.Len() == 0 {
		return []*domain.Collaborator{}, nil
	}

	out, err := s.repo.List(ctx, ports.CollaboratorFilter{
		IDs:     scope.IDs(),
		Company: strings.TrimSpace(in.Company),
		Search:  strings.TrimSpace(in.Search),
	})
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}
	return out, nil
}

// Get returns one collaborator. Out-of-scope ids are reported as not found.
func (s *CollaboratorService) Get(ctx context.Context, id domain.Identity, collaboratorID string) (*domain.Collaborator, error) {
	ok, err := s.resolver.CanSee(ctx, id, collaboratorID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return s.repo.FindByID(ctx, collaboratorID)
}
