package domain

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestCredential_CheckInvariants(t *testing.T) {
	cases := []struct {
		name string
		cred Credential
		ok   bool
	}{
		{"admin", Credential{Role: RoleAdmin}, true},
		{"admin linked", Credential{Role: RoleAdmin, LinkedCollaboratorID: "c1"}, true},
		{"manager with set", Credential{Role: RoleManager, ManagedCollaboratorIDs: []string{"c1", "c2"}}, true},
		{"collaborator linked", Credential{Role: RoleCollaborator, LinkedCollaboratorID: "c1"}, true},
		{"collaborator unlinked", Credential{Role: RoleCollaborator}, false},
		{"admin with managed set", Credential{Role: RoleAdmin, ManagedCollaboratorIDs: []string{"c1"}}, false},
		{"collaborator with managed set", Credential{Role: RoleCollaborator, LinkedCollaboratorID: "c1", ManagedCollaboratorIDs: []string{"c2"}}, false},
		{"unknown role", Credential{Role: "root"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cred.CheckInvariants()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvalidAccount) {
				t.Fatalf("expected ErrInvalidAccount, got %v", err)
			}
		})
	}
}

func TestNormalizeIDs(t *testing.T) {
	got := NormalizeIDs([]string{"b", "", "a", "b", "c", "a"})
	if want := []string{"a", "b", "c"}; !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := NormalizeIDs(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestCollaboratorSet(t *testing.T) {
	s := NewCollaboratorSet("c2", "", "c1", "c2")
	if s.Len() != 2 {
		t.Fatalf("expected 2 members, got %d", s.Len())
	}
	if !s.Contains("c1") || s.Contains("") || s.Contains("c3") {
		t.Fatalf("unexpected membership: %v", s.IDs())
	}
	if want := []string{"c1", "c2"}; !slices.Equal(s.IDs(), want) {
		t.Fatalf("expected %v, got %v", want, s.IDs())
	}
}

func TestIdentityContext(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Fatalf("empty context must not carry an identity")
	}

	cred := &Credential{ID: "u1", Role: RoleManager, LinkedCollaboratorID: "c1", ManagedCollaboratorIDs: []string{"c2"}}
	ctx := WithIdentity(context.Background(), cred.Identity())

	id, ok := IdentityFromContext(ctx)
	if !ok {
		t.Fatalf("identity not found")
	}
	if id.SubjectID != "u1" || id.Role != RoleManager || id.LinkedCollaboratorID != "c1" {
		t.Fatalf("unexpected identity: %+v", id)
	}

	cred.ManagedCollaboratorIDs[0] = "mutated"
	if id.ManagedCollaboratorIDs[0] != "c2" {
		t.Fatalf("identity must not alias the credential's managed set")
	}
}
