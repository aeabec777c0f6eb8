package service

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/opsdesk/console-access/internal/core/domain"
	"github.com/opsdesk/console-access/internal/core/ports"
	"github.com/opsdesk/console-access/pkg/password"
)

// testHasher keeps PBKDF2 cheap in unit tests.
var testHasher = password.New(1_000)

// ---------------------------------------------------------------------------
// Credential repository stub
// ---------------------------------------------------------------------------

type stubCredentialRepo struct {
	mu      sync.Mutex
	creds   map[string]*domain.Credential
	seq     int
	updates int
	findErr error
}

func newStubCredentialRepo() *stubCredentialRepo {
	return &stubCredentialRepo{creds: make(map[string]*domain.Credential)}
}

func cloneCredential(c *domain.Credential) *domain.Credential {
	if c == nil {
		return nil
	}
	clone := *c
	clone.ManagedCollaboratorIDs = slices.Clone(c.ManagedCollaboratorIDs)
	return &clone
}

// put stores c as-is, bypassing the service. Useful for legacy fixtures.
func (r *stubCredentialRepo) put(c *domain.Credential) *domain.Credential {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		r.seq++
		c.ID = fmt.Sprintf("cred-%d", r.seq)
	}
	r.creds[c.ID] = cloneCredential(c)
	return cloneCredential(c)
}

func (r *stubCredentialRepo) snapshot() map[string]domain.Credential {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]domain.Credential, len(r.creds))
	for id, c := range r.creds {
		out[id] = *cloneCredential(c)
	}
	return out
}

func (r *stubCredentialRepo) Create(_ context.Context, c *domain.Credential) (*domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.creds {
		if existing.Identifier == c.Identifier {
			return nil, domain.ErrDuplicateIdentifier
		}
	}
	r.seq++
	created := cloneCredential(c)
	created.ID = fmt.Sprintf("cred-%d", r.seq)
	r.creds[created.ID] = created
	return cloneCredential(created), nil
}

func (r *stubCredentialRepo) FindByID(_ context.Context, id string) (*domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	c, ok := r.creds[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneCredential(c), nil
}

func (r *stubCredentialRepo) FindByIdentifier(_ context.Context, identifier string) (*domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	for _, c := range r.creds {
		if c.Identifier == identifier {
			return cloneCredential(c), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *stubCredentialRepo) List(_ context.Context) ([]*domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Credential, 0, len(r.creds))
	for _, c := range r.creds {
		out = append(out, cloneCredential(c))
	}
	slices.SortFunc(out, func(a, b *domain.Credential) int {
		if a.Identifier < b.Identifier {
			return -1
		}
		if a.Identifier > b.Identifier {
			return 1
		}
		return 0
	})
	return out, nil
}

func (r *stubCredentialRepo) CountByRole(_ context.Context, role domain.Role) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.creds {
		if c.Role == role {
			n++
		}
	}
	return n, nil
}

func (r *stubCredentialRepo) Update(_ context.Context, ch ports.CredentialChange) (*domain.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creds[ch.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	r.updates++
	if ch.Identifier != nil {
		c.Identifier = *ch.Identifier
	}
	if ch.PasswordHash != nil {
		c.PasswordHash = *ch.PasswordHash
	}
	if ch.Role != nil {
		c.Role = *ch.Role
	}
	if ch.LinkedCollaboratorID != nil {
		c.LinkedCollaboratorID = *ch.LinkedCollaboratorID
	}
	set := domain.NewCollaboratorSet(c.ManagedCollaboratorIDs...)
	for _, id := range ch.Disconnect {
		delete(set, id)
	}
	for _, id := range ch.Connect {
		set.Add(id)
	}
	c.ManagedCollaboratorIDs = set.IDs()
	return cloneCredential(c), nil
}

func (r *stubCredentialRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.creds[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.creds, id)
	return nil
}

func (r *stubCredentialRepo) SwapPasswordHash(_ context.Context, id, expected, next string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.creds[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if c.PasswordHash != expected {
		return false, nil
	}
	c.PasswordHash = next
	return true, nil
}

// ---------------------------------------------------------------------------
// Collaborator repository stub
// ---------------------------------------------------------------------------

type stubCollaboratorRepo struct {
	items     map[string]*domain.Collaborator
	listCalls []ports.CollaboratorFilter
	idsCalls  int
	listErr   error
}

func newStubCollaboratorRepo(items ...*domain.Collaborator) *stubCollaboratorRepo {
	r := &stubCollaboratorRepo{items: make(map[string]*domain.Collaborator)}
	for _, it := range items {
		r.items[it.ID] = it
	}
	return r
}

func (r *stubCollaboratorRepo) FindByID(_ context.Context, id string) (*domain.Collaborator, error) {
	c, ok := r.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (r *stubCollaboratorRepo) ListIDs(_ context.Context) ([]string, error) {
	r.idsCalls++
	if r.listErr != nil {
		return nil, r.listErr
	}
	ids := make([]string, 0, len(r.items))
	for id := range r.items {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (r *stubCollaboratorRepo) FilterExisting(_ context.Context, ids []string) ([]string, error) {
	var out []string
	for _, id := range ids {
		if _, ok := r.items[id]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (r *stubCollaboratorRepo) List(_ context.Context, f ports.CollaboratorFilter) ([]*domain.Collaborator, error) {
	r.listCalls = append(r.listCalls, f)
	var out []*domain.Collaborator
	for _, id := range f.IDs {
		c, ok := r.items[id]
		if !ok {
			continue
		}
		if f.Company != "" && c.Company != f.Company {
			continue
		}
		clone := *c
		out = append(out, &clone)
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Admin guard stub
// ---------------------------------------------------------------------------

type mutexGuard struct {
	mu       sync.Mutex
	acquired int
}

func (g *mutexGuard) Acquire(_ context.Context) (func(), error) {
	g.mu.Lock()
	g.acquired++
	return g.mu.Unlock, nil
}
