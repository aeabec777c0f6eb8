package domain

import (
	"fmt"
	"slices"
	"time"
)

// Role is the access tier of a credential.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleManager      Role = "manager"
	RoleCollaborator Role = "collaborator"
)

// Roles lists every valid role, most privileged first.
var Roles = []Role{RoleAdmin, RoleManager, RoleCollaborator}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return slices.Contains(Roles, r)
}

func (r Role) String() string { return string(r) }

// Credential is a login account for the console.
type Credential struct {
	ID                     string    `json:"id"`
	Identifier             string    `json:"identifier"`
	PasswordHash           string    `json:"-"`
	Role                   Role      `json:"role"`
	LinkedCollaboratorID   string    `json:"linked_collaborator_id,omitempty"`
	ManagedCollaboratorIDs []string  `json:"managed_collaborator_ids"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// CheckInvariants validates the role-dependent shape of a credential:
//   - the role must be known;
//   - a collaborator must be linked to a collaborator record;
//   - only managers may carry a managed set.
func (c *Credential) CheckInvariants() error {
	if !c.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidAccount, c.Role)
	}
	if c.Role == RoleCollaborator && c.LinkedCollaboratorID == "" {
		return fmt.Errorf("%w: collaborator role requires a linked collaborator", ErrInvalidAccount)
	}
	if c.Role != RoleManager && len(c.ManagedCollaboratorIDs) > 0 {
		return fmt.Errorf("%w: only managers can manage collaborators", ErrInvalidAccount)
	}
	return nil
}

// Identity returns the request identity derived from the stored credential.
func (c *Credential) Identity() Identity {
	return Identity{
		SubjectID:              c.ID,
		Role:                   c.Role,
		LinkedCollaboratorID:   c.LinkedCollaboratorID,
		ManagedCollaboratorIDs: slices.Clone(c.ManagedCollaboratorIDs),
	}
}

// NormalizeIDs drops empty entries and duplicates and sorts the result.
// It never returns nil.
func NormalizeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
