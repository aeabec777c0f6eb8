// Package memory is an in-process credential and collaborator store used for
// local development and end-to-end tests.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opsdesk/console-access/internal/core/domain"
	"github.com/opsdesk/console-access/internal/core/ports"
)

// Store implements ports.CredentialRepository; Collaborators exposes the
// collaborator side.
// Each method holds the lock for its whole duration, so every write is atomic.
type Store struct {
	mu            sync.RWMutex
	credentials   map[string]*domain.Credential
	byIdentifier  map[string]string
	collaborators map[string]*domain.Collaborator
	now           func() time.Time
}

func NewStore() *Store {
	return &Store{
		credentials:   make(map[string]*domain.Credential),
		byIdentifier:  make(map[string]string),
		collaborators: make(map[string]*domain.Collaborator),
		now:           time.Now,
	}
}

// PutCollaborators inserts or replaces collaborator records.
func (s *Store) PutCollaborators(items ...domain.Collaborator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range items {
		s.collaborators[c.ID] = &c
	}
}

func clone(c *domain.Credential) *domain.Credential {
	out := *c
	out.ManagedCollaboratorIDs = slices.Clone(c.ManagedCollaboratorIDs)
	if out.ManagedCollaboratorIDs == nil {
		out.ManagedCollaboratorIDs = []string{}
	}
	return &out
}

// ---------------------------------------------------------------------------
// Credentials
// ---------------------------------------------------------------------------

func (s *Store) Create(_ context.Context, cred *domain.Credential) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byIdentifier[cred.Identifier]; taken {
		return nil, domain.ErrDuplicateIdentifier
	}

	c := clone(cred)
	c.ID = uuid.NewString()
	c.ManagedCollaboratorIDs = domain.NormalizeIDs(c.ManagedCollaboratorIDs)
	s.credentials[c.ID] = c
	s.byIdentifier[c.Identifier] = c.ID
	return clone(c), nil
}

func (s *Store) FindByID(_ context.Context, id string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(c), nil
}

func (s *Store) FindByIdentifier(_ context.Context, identifier string) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byIdentifier[identifier]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(s.credentials[id]), nil
}

func (s *Store) List(_ context.Context) ([]*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.Credential, 0, len(s.credentials))
	for _, c := range s.credentials {
		out = append(out, clone(c))
	}
	slices.SortFunc(out, func(a, b *domain.Credential) int { return cmp.Compare(a.Identifier, b.Identifier) })
	return out, nil
}

func (s *Store) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, c := range s.credentials {
		if c.Role == role {
			n++
		}
	}
	return n, nil
}

// Update applies the change atomically. Removing the last admin through a
// role change is refused here as well as in the service.
func (s *Store) Update(_ context.Context, ch ports.CredentialChange) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.credentials[ch.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	next := clone(cur)

	if ch.Identifier != nil && *ch.Identifier != cur.Identifier {
		if _, taken := s.byIdentifier[*ch.Identifier]; taken {
			return nil, domain.ErrDuplicateIdentifier
		}
		next.Identifier = *ch.Identifier
	}
	if ch.PasswordHash != nil {
		next.PasswordHash = *ch.PasswordHash
	}
	if ch.Role != nil {
		if cur.Role == domain.RoleAdmin && *ch.Role != domain.RoleAdmin && s.countLocked(domain.RoleAdmin) <= 1 {
			return nil, domain.ErrLastAdmin
		}
		next.Role = *ch.Role
	}
	if ch.LinkedCollaboratorID != nil {
		next.LinkedCollaboratorID = *ch.LinkedCollaboratorID
	}
	if len(ch.Connect) > 0 || len(ch.Disconnect) > 0 {
		set := domain.NewCollaboratorSet(next.ManagedCollaboratorIDs...)
		for _, id := range ch.Disconnect {
			delete(set, id)
		}
		for _, id := range ch.Connect {
			set.Add(id)
		}
		next.ManagedCollaboratorIDs = set.IDs()
	}
	next.UpdatedAt = s.now().UTC()

	delete(s.byIdentifier, cur.Identifier)
	s.byIdentifier[next.Identifier] = next.ID
	s.credentials[next.ID] = next
	return clone(next), nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[id]
	if !ok {
		return domain.ErrNotFound
	}
	if c.Role == domain.RoleAdmin && s.countLocked(domain.RoleAdmin) <= 1 {
		return domain.ErrLastAdmin
	}
	delete(s.byIdentifier, c.Identifier)
	delete(s.credentials, id)
	return nil
}

func (s *Store) SwapPasswordHash(_ context.Context, id, expected, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credentials[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if c.PasswordHash != expected {
		return false, nil
	}
	c.PasswordHash = next
	c.UpdatedAt = s.now().UTC()
	return true, nil
}

func (s *Store) countLocked(role domain.Role) int {
	var n int
	for _, c := range s.credentials {
		if c.Role == role {
			n++
		}
	}
	return n
}

// ---------------------------------------------------------------------------
// Collaborators
// ---------------------------------------------------------------------------

// Collaborators exposes the collaborator side of the store.
func (s *Store) Collaborators() *CollaboratorStore {
	return &CollaboratorStore{s: s}
}

// CollaboratorStore implements ports.CollaboratorRepository. Its FindByID and
// List do not collide with the credential methods on Store.
type CollaboratorStore struct {
	s *Store
}

func (c *CollaboratorStore) FindByID(_ context.Context, id string) (*domain.Collaborator, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	item, ok := c.s.collaborators[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *item
	return &out, nil
}

func (c *CollaboratorStore) ListIDs(_ context.Context) ([]string, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	ids := make([]string, 0, len(c.s.collaborators))
	for id := range c.s.collaborators {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (c *CollaboratorStore) FilterExisting(_ context.Context, ids []string) ([]string, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := c.s.collaborators[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (c *CollaboratorStore) List(_ context.Context, f ports.CollaboratorFilter) ([]*domain.Collaborator, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()

	search := strings.ToLower(f.Search)
	out := make([]*domain.Collaborator, 0, len(f.IDs))
	for _, id := range domain.NormalizeIDs(f.IDs) {
		item, ok := c.s.collaborators[id]
		if !ok {
			continue
		}
		if f.Company != "" && !strings.EqualFold(item.Company, f.Company) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(item.Name), search) {
			continue
		}
		cp := *item
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *domain.Collaborator) int { return cmp.Compare(a.Name, b.Name) })
	return out, nil
}

var (
	_ ports.CredentialRepository   = (*Store)(nil)
	_ ports.CollaboratorRepository = (*CollaboratorStore)(nil)
)
