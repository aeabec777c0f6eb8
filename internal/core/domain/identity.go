package domain

import "context"

// Identity is the verified caller attached to a request by the gate.
// Handlers must read it from the request context and never from client input.
type Identity struct {
	SubjectID              string   `json:"subject_id"`
	Role                   Role     `json:"role"`
	LinkedCollaboratorID   string   `json:"linked_collaborator_id,omitempty"`
	ManagedCollaboratorIDs []string `json:"managed_collaborator_ids"`
}

// Principal is what a session token alone proves: who and with which role.
type Principal struct {
	SubjectID string
	Role      Role
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	if !ok || id.SubjectID == "" {
		return Identity{}, false
	}
	return id, true
}
