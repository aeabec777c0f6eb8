package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opsdesk/console-access/internal/core/domain"
	"github.com/opsdesk/console-access/internal/core/ports"
)

const credentialColumns = `id::text, identifier, password_hash, role, COALESCE(linked_collaborator_id, ''), created_at, updated_at`

// CredentialRepository keeps credentials in the credentials table and the
// managed set in credential_managed_collaborators.
type CredentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCredential(row rowScanner) (*domain.Credential, error) {
	var (
		c    domain.Credential
		role string
	)
	if err := row.Scan(&c.ID, &c.Identifier, &c.PasswordHash, &role, &c.LinkedCollaboratorID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Role = domain.Role(role)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	c.ManagedCollaboratorIDs = []string{}
	return &c, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *CredentialRepository) Create(ctx context.Context, cred *domain.Credential) (*domain.Credential, error) {
	var created *domain.Credential
	err := WithTx(ctx, r.db, nil, func(ctx context.Context, tx DBTX) error {
		row := tx.QueryRowContext(ctx,
			`INSERT INTO credentials (identifier, password_hash, role, linked_collaborator_id, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING `+credentialColumns,
			cred.Identifier, cred.PasswordHash, string(cred.Role), nullable(cred.LinkedCollaboratorID),
			timeOrNow(cred.CreatedAt), timeOrNow(cred.UpdatedAt),
		)
		c, err := scanCredential(row)
		if err != nil {
			return err
		}
		managed := domain.NormalizeIDs(cred.ManagedCollaboratorIDs)
		if err := connect(ctx, tx, c.ID, managed); err != nil {
			return err
		}
		c.ManagedCollaboratorIDs = managed
		created = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("insert credential: %w", translate(err))
	}
	return created, nil
}

func (r *CredentialRepository) FindByID(ctx context.Context, id string) (*domain.Credential, error) {
	if !validID(id) {
		return nil, domain.ErrNotFound
	}
	return r.get(ctx, r.db, `SELECT `+credentialColumns+` FROM credentials WHERE id = $1`, id)
}

func (r *CredentialRepository) FindByIdentifier(ctx context.Context, identifier string) (*domain.Credential, error) {
	return r.get(ctx, r.db, `SELECT `+credentialColumns+` FROM credentials WHERE identifier = $1`, identifier)
}

func (r *CredentialRepository) get(ctx context.Context, q DBTX, query string, arg any) (*domain.Credential, error) {
	c, err := scanCredential(q.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err = translate(err); err == domain.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}

	managed, err := managedIDs(ctx, q, c.ID)
	if err != nil {
		return nil, err
	}
	c.ManagedCollaboratorIDs = managed
	return c, nil
}

func managedIDs(ctx context.Context, q DBTX, credentialID string) ([]string, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT collaborator_id FROM credential_managed_collaborators WHERE credential_id = $1 ORDER BY collaborator_id`,
		credentialID,
	)
	if err != nil {
		return nil, fmt.Errorf("load managed set: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan managed set: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *CredentialRepository) List(ctx context.Context) ([]*domain.Credential, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+credentialColumns+` FROM credentials ORDER BY identifier`)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	var out []*domain.Credential
	byID := make(map[string]*domain.Credential)
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		out = append(out, c)
		byID[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}

	links, err := r.db.QueryContext(ctx,
		`SELECT credential_id::text, collaborator_id FROM credential_managed_collaborators ORDER BY collaborator_id`)
	if err != nil {
		return nil, fmt.Errorf("list managed sets: %w", err)
	}
	defer links.Close()

	for links.Next() {
		var credID, collabID string
		if err := links.Scan(&credID, &collabID); err != nil {
			return nil, fmt.Errorf("scan managed set: %w", err)
		}
		if c, ok := byID[credID]; ok {
			c.ManagedCollaboratorIDs = append(c.ManagedCollaboratorIDs, collabID)
		}
	}
	return out, links.Err()
}

func (r *CredentialRepository) CountByRole(ctx context.Context, role domain.Role) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM credentials WHERE role = $1`, string(role)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count credentials: %w", err)
	}
	return n, nil
}

// Update applies the field changes and the managed-set diff in one transaction.
func (r *CredentialRepository) Update(ctx context.Context, ch ports.CredentialChange) (*domain.Credential, error) {
	if !validID(ch.ID) {
		return nil, domain.ErrNotFound
	}

	sets := []string{"updated_at = now()"}
	args := []any{ch.ID}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if ch.Identifier != nil {
		add("identifier", *ch.Identifier)
	}
	if ch.PasswordHash != nil {
		add("password_hash", *ch.PasswordHash)
	}
	if ch.Role != nil {
		add("role", string(*ch.Role))
	}
	if ch.LinkedCollaboratorID != nil {
		add("linked_collaborator_id", nullable(*ch.LinkedCollaboratorID))
	}

	var updated *domain.Credential
	err := WithTx(ctx, r.db, nil, func(ctx context.Context, tx DBTX) error {
		res, err := tx.ExecContext(ctx, `UPDATE credentials SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrNotFound
		}

		for _, id := range ch.Disconnect {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM credential_managed_collaborators WHERE credential_id = $1 AND collaborator_id = $2`,
				ch.ID, id,
			); err != nil {
				return err
			}
		}
		if err := connect(ctx, tx, ch.ID, ch.Connect); err != nil {
			return err
		}

		updated, err = r.get(ctx, tx, `SELECT `+credentialColumns+` FROM credentials WHERE id = $1`, ch.ID)
		return err
	})
	if err != nil {
		if err = translate(err); err == domain.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("update credential: %w", err)
	}
	return updated, nil
}

func connect(ctx context.Context, tx DBTX, credentialID string, ids []string) error {
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO credential_managed_collaborators (credential_id, collaborator_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			credentialID, id,
		); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a credential. The last-admin trigger rejects removing the
// only admin with SQLSTATE LA001.
func (r *CredentialRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return domain.ErrNotFound
	}

	res, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = $1`, id)
	if err != nil {
		if err = translate(err); err == domain.ErrLastAdmin {
			return err
		}
		return fmt.Errorf("delete credential: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *CredentialRepository) SwapPasswordHash(ctx context.Context, id, expected, next string) (bool, error) {
	if !validID(id) {
		return false, domain.ErrNotFound
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE credentials SET password_hash = $3, updated_at = now() WHERE id = $1 AND password_hash = $2`,
		id, expected, next,
	)
	if err != nil {
		return false, fmt.Errorf("swap password hash: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("swap password hash: %w", err)
	}
	return n == 1, nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

var _ ports.CredentialRepository = (*CredentialRepository)(nil)
