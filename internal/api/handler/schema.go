package handler

import (
	"time"

	"github.com/opsdesk/console-access/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Auth ---

type loginRequest struct {
	Identifier string `json:"identifier" validate:"required,max=64"`
	Password   string `json:"password"   validate:"required"`
}

type loginResponse struct {
	Token                  string    `json:"token"`
	SubjectID              string    `json:"subject_id"`
	Role                   string    `json:"role"`
	LinkedCollaboratorID   string    `json:"linked_collaborator_id,omitempty"`
	ManagedCollaboratorIDs []string  `json:"managed_collaborator_ids"`
	ExpiresAt              time.Time `json:"expires_at"`
}

type verifyResponse struct {
	SubjectID string `json:"subject_id"`
	Role      string `json:"role"`
}

type meResponse struct {
	SubjectID              string   `json:"subject_id"`
	Role                   string   `json:"role"`
	LinkedCollaboratorID   string   `json:"linked_collaborator_id,omitempty"`
	ManagedCollaboratorIDs []string `json:"managed_collaborator_ids"`
	VisibleCollaboratorIDs []string `json:"visible_collaborator_ids"`
}

// --- Collaborators ---

type collaboratorResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Color   string `json:"color,omitempty"`
}

type listCollaboratorsResponse struct {
	Items []collaboratorResponse `json:"items"`
	Total int                    `json:"total"`
}

// --- Accounts ---

type createAccountRequest struct {
	Identifier             string   `json:"identifier"               validate:"required,max=64"`
	Password               string   `json:"password"                 validate:"required,min=8"`
	Role                   string   `json:"role"                     validate:"required,oneof=admin manager collaborator"`
	LinkedCollaboratorID   string   `json:"linked_collaborator_id"`
	ManagedCollaboratorIDs []string `json:"managed_collaborator_ids"`
}

// updateAccountRequest is a partial update; omitted fields are unchanged.
type updateAccountRequest struct {
	Identifier             *string   `json:"identifier"               validate:"omitempty,max=64"`
	Password               *string   `json:"password"                 validate:"omitempty,min=8"`
	Role                   *string   `json:"role"                     validate:"omitempty,oneof=admin manager collaborator"`
	LinkedCollaboratorID   *string   `json:"linked_collaborator_id"`
	ManagedCollaboratorIDs *[]string `json:"managed_collaborator_ids"`
}

type accountResponse struct {
	ID                     string    `json:"id"`
	Identifier             string    `json:"identifier"`
	Role                   string    `json:"role"`
	LinkedCollaboratorID   string    `json:"linked_collaborator_id,omitempty"`
	ManagedCollaboratorIDs []string  `json:"managed_collaborator_ids"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

type listAccountsResponse struct {
	Items []accountResponse `json:"items"`
	Total int               `json:"total"`
}

// --- Mapping ---

func toAccountResponse(c *domain.Credential) accountResponse {
	managed := c.ManagedCollaboratorIDs
	if managed == nil {
		managed = []string{}
	}
	return accountResponse{
		ID:                     c.ID,
		Identifier:             c.Identifier,
		Role:                   c.Role.String(),
		LinkedCollaboratorID:   c.LinkedCollaboratorID,
		ManagedCollaboratorIDs: managed,
		CreatedAt:              c.CreatedAt,
		UpdatedAt:              c.UpdatedAt,
	}
}

func toCollaboratorResponse(c *domain.Collaborator) collaboratorResponse {
	return collaboratorResponse{ID: c.ID, Name: c.Name, Company: c.Company, Color: c.Color}
}
