package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/opsdesk/console-access/internal/core/domain"
	"github.com/opsdesk/console-access/internal/core/ports"
)

func TestCollaboratorHandler_List_PassesFilters(t *testing.T) {
	caller := &domain.Identity{SubjectID: "u1", Role: domain.RoleCollaborator, LinkedCollaboratorID: "c1"}
	stub := &stubCollaboratorService{
		listFn: func(_ context.Context, id domain.Identity, in ports.ListCollaboratorsInput) ([]*domain.Collaborator, error) {
			if id.SubjectID != "u1" {
				t.Fatalf("identity must come from the context, got %+v", id)
			}
			if in.Company != "North" || in.Search != "an" {
				t.Fatalf("unexpected filters: %+v", in)
			}
			return []*domain.Collaborator{{ID: "c1", Name: "Ana", Company: "North"}}, nil
		},
	}
	h := NewCollaboratorHandler(stub)

	c, rec := newContext(http.MethodGet, "/v1/collaborators?company=North&q=an&subject_id=root", "", caller)
	if err := h.List(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp listCollaboratorsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Total != 1 || resp.Items[0].ID != "c1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestCollaboratorHandler_Get_OutOfScope(t *testing.T) {
	caller := &domain.Identity{SubjectID: "u1", Role: domain.RoleCollaborator, LinkedCollaboratorID: "c1"}
	stub := &stubCollaboratorService{
		getFn: func(_ context.Context, _ domain.Identity, id string) (*domain.Collaborator, error) {
			if id != "c1" {
				return nil, domain.ErrNotFound
			}
			return &domain.Collaborator{ID: "c1"}, nil
		},
	}
	h := NewCollaboratorHandler(stub)

	c, _ := newContext(http.MethodGet, "/v1/collaborators/c2", "", caller)
	c.SetParamNames("id")
	c.SetParamValues("c2")
	if err := h.Get(c); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCollaboratorHandler_RequiresIdentity(t *testing.T) {
	h := NewCollaboratorHandler(&stubCollaboratorService{})

	c, _ := newContext(http.MethodGet, "/v1/collaborators", "", nil)
	if err := h.List(c); !errors.Is(err, domain.ErrTokenMissing) {
		t.Fatalf("expected ErrTokenMissing, got %v", err)
	}
}
