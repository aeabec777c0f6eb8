package domain

import (
	"slices"
)

// Collaborator is a staff record owned by the business modules. This service
// only reads it to scope what a caller may see.
type Collaborator struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Color   string `json:"color,omitempty"`
}

// CollaboratorSet is an unordered set of collaborator ids.
type CollaboratorSet map[string]struct{}

// NewCollaboratorSet builds a set from ids, skipping empty strings.
func NewCollaboratorSet(ids ...string) CollaboratorSet {
	s := make(CollaboratorSet, len(ids))
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

func (s CollaboratorSet) Add(id string) {
	if id != "" {
		s[id] = struct{}{}
	}
}

func (s CollaboratorSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

func (s CollaboratorSet) Len() int { return len(s) }

// IDs returns the members in ascending order. Never nil.
func (s CollaboratorSet) IDs() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
