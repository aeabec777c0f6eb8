package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/opsdesk/console-access/internal/core/domain"
	"github.com/opsdesk/console-access/internal/core/ports"
)

type CollaboratorRepository struct {
	db *sql.DB
}

func NewCollaboratorRepository(db *sql.DB) *CollaboratorRepository {
	return &CollaboratorRepository{db: db}
}

func (r *CollaboratorRepository) FindByID(ctx context.Context, id string) (*domain.Collaborator, error) {
	var c domain.Collaborator
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, company, color FROM collaborators WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Company, &c.Color)
	if err != nil {
		if err = translate(err); err == domain.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("find collaborator: %w", err)
	}
	return &c, nil
}

func (r *CollaboratorRepository) ListIDs(ctx context.Context) ([]string, error) {
	return r.ids(ctx, `SELECT id FROM collaborators ORDER BY id`)
}

func (r *CollaboratorRepository) FilterExisting(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	in, args := inClause(ids, 1)
	return r.ids(ctx, `SELECT id FROM collaborators WHERE id IN (`+in+`) ORDER BY id`, args...)
}

func (r *CollaboratorRepository) ids(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list collaborator ids: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan collaborator id: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// List applies the scope ids first, then the optional company and name filters.
func (r *CollaboratorRepository) List(ctx context.Context, f ports.CollaboratorFilter) ([]*domain.Collaborator, error) {
	if len(f.IDs) == 0 {
		return []*domain.Collaborator{}, nil
	}

	in, args := inClause(f.IDs, 1)
	where := []string{"id IN (" + in + ")"}
	if f.Company != "" {
		args = append(args, f.Company)
		where = append(where, fmt.Sprintf("lower(company) = lower($%d)", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+escapeLike(f.Search)+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, company, color FROM collaborators WHERE `+strings.Join(where, " AND ")+` ORDER BY name`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list collaborators: %w", err)
	}
	defer rows.Close()

	out := []*domain.Collaborator{}
	for rows.Next() {
		var c domain.Collaborator
		if err := rows.Scan(&c.ID, &c.Name, &c.Company, &c.Color); err != nil {
			return nil, fmt.Errorf("scan collaborator: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// inClause renders "$n, $n+1, ..." for ids starting at placeholder start.
func inClause(ids []string, start int) (string, []any) {
	ph := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		ph[i] = fmt.Sprintf("$%d", start+i)
		args[i] = id
	}
	return strings.Join(ph, ", "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

var _ ports.CollaboratorRepository = (*CollaboratorRepository)(nil)
