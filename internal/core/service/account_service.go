package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/opsdesk/console-access/internal/core/domain"
	"github.com/opsdesk/console-access/internal/core/ports"
	"github.com/opsdesk/console-access/pkg/password"
)

var identifierPattern = regexp.MustCompile(`^[a-zA-Z0-9._@+-]{1,64}$`)

// AccountService manages the credential lifecycle.
//
// Every operation that reads the admin count and then acts on it runs under
// the AdminGuard, so two concurrent deletions or demotions cannot both pass
// the last-admin check.
type AccountService struct {
	credentials   ports.CredentialRepository
	collaborators ports.CollaboratorRepository
	hasher        ports.PasswordHasher
	guard         ports.AdminGuard
	runner        ports.RehashRunner
	logger        zerolog.Logger
	now           func() time.Time
}

func NewAccountService(
	credentials ports.CredentialRepository,
	collaborators ports.CollaboratorRepository,
	hasher ports.PasswordHasher,
	guard ports.AdminGuard,
	runner ports.RehashRunner,
	logger zerolog.Logger,
) *AccountService {
	if runner == nil {
		runner = sequentialRunner{}
	}
	return &AccountService{
		credentials:   credentials,
		collaborators: collaborators,
		hasher:        hasher,
		guard:         guard,
		runner:        runner,
		logger:        logger,
		now:           time.Now,
	}
}

// Create adds a credential. A taken identifier fails with
// ErrDuplicateIdentifier and leaves the store unchanged.
func (s *AccountService) Create(ctx context.Context, in ports.CreateAccountInput) (*domain.Credential, error) {
	identifier := strings.TrimSpace(in.Identifier)
	if err := validateIdentifier(identifier); err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", domain.ErrInvalidAccount)
	}

	cred := &domain.Credential{
		Identifier:             identifier,
		Role:                   in.Role,
		LinkedCollaboratorID:   strings.TrimSpace(in.LinkedCollaboratorID),
		ManagedCollaboratorIDs: domain.NormalizeIDs(in.ManagedCollaboratorIDs),
	}
	if err := cred.CheckInvariants(); err != nil {
		return nil, err
	}
	if err := s.checkCollaborators(ctx, append([]string{cred.LinkedCollaboratorID}, cred.ManagedCollaboratorIDs...)); err != nil {
		return nil, err
	}

	if _, err := s.credentials.FindByIdentifier(ctx, identifier); err == nil {
		return nil, domain.ErrDuplicateIdentifier
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("create account: %w", err)
	}

	now := s.now().UTC()
	cred.PasswordHash = s.hasher.Hash(in.Password)
	cred.CreatedAt = now
	cred.UpdatedAt = now

	created, err := s.credentials.Create(ctx, cred)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info().
		Str("subject_id", created.ID).
		Str("identifier", created.Identifier).
		Str("role", created.Role.String()).
		Msg("account created")

	return created, nil
}

func (s *AccountService) Get(ctx context.Context, id string) (*domain.Credential, error) {
	return s.credentials.FindByID(ctx, id)
}

func (s *AccountService) List(ctx context.Context) ([]*domain.Credential, error) {
	return s.credentials.List(ctx)
}

// Update applies a partial change. The managed set is reconciled as a diff
// against the stored one and written together with every other field in a
// single repository call.
func (s *AccountService) Update(ctx context.Context, id string, in ports.UpdateAccountInput) (*domain.Credential, error) {
	if in.Role != nil {
		release, err := s.guard.Acquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("update account: %w", err)
		}
		defer release()
	}

	current, err := s.credentials.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *current
	change := ports.CredentialChange{ID: current.ID}
	var refs []string

	if in.Identifier != nil {
		identifier := strings.TrimSpace(*in.Identifier)
		if err := validateIdentifier(identifier); err != nil {
			return nil, err
		}
		if identifier != current.Identifier {
			if err := s.ensureIdentifierFree(ctx, identifier, current.ID); err != nil {
				return nil, err
			}
			next.Identifier = identifier
			change.Identifier = &identifier
		}
	}

	if in.Password != nil {
		if *in.Password == "" {
			return nil, fmt.Errorf("%w: password must not be empty", domain.ErrInvalidAccount)
		}
		hash := s.hasher.Hash(*in.Password)
		change.PasswordHash = &hash
	}

	if in.Role != nil && *in.Role != current.Role {
		role := *in.Role
		next.Role = role
		change.Role = &role
	}

	if in.LinkedCollaboratorID != nil {
		linked := strings.TrimSpace(*in.LinkedCollaboratorID)
		if linked != current.LinkedCollaboratorID {
			next.LinkedCollaboratorID = linked
			change.LinkedCollaboratorID = &linked
			refs = append(refs, linked)
		}
	}

	requested := current.ManagedCollaboratorIDs
	switch {
	case in.ManagedCollaboratorIDs != nil:
		requested = domain.NormalizeIDs(*in.ManagedCollaboratorIDs)
	case next.Role != domain.RoleManager:
		requested = nil
	}
	next.ManagedCollaboratorIDs = requested

	if err := next.CheckInvariants(); err != nil {
		return nil, err
	}

	change.Connect, change.Disconnect = ReconcileManaged(current.ManagedCollaboratorIDs, requested)
	refs = append(refs, change.Connect...)
	if err := s.checkCollaborators(ctx, refs); err != nil {
		return nil, err
	}

	if current.Role == domain.RoleAdmin && next.Role != domain.RoleAdmin {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return nil, err
		}
	}

	if change.Empty() {
		return current, nil
	}

	updated, err := s.credentials.Update(ctx, change)
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}

	s.logger.Info().
		Str("subject_id", updated.ID).
		Str("role", updated.Role.String()).
		Int("connected", len(change.Connect)).
		Int("disconnected", len(change.Disconnect)).
		Msg("account updated")

	return updated, nil
}

// Delete removes a credential. Deleting the only admin fails with ErrLastAdmin.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	release, err := s.guard.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	defer release()

	cred, err := s.credentials.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if cred.Role == domain.RoleAdmin {
		if err := s.ensureAnotherAdmin(ctx); err != nil {
			return err
		}
	}

	if err := s.credentials.Delete(ctx, cred.ID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	s.logger.Info().Str("subject_id", cred.ID).Str("role", cred.Role.String()).Msg("account deleted")
	return nil
}

// MigrateLegacyPasswords rewrites every plaintext password as a hash.
// Each rewrite is a compare-and-swap on the old value, so reruns are no-ops
// and a password changed meanwhile is left alone.
func (s *AccountService) MigrateLegacyPasswords(ctx context.Context) (ports.MigrationReport, error) {
	creds, err := s.credentials.List(ctx)
	if err != nil {
		return ports.MigrationReport{}, fmt.Errorf("migrate passwords: %w", err)
	}

	report := ports.MigrationReport{Scanned: len(creds)}
	jobs := make([]ports.RehashJob, 0)
	for _, c := range creds {
		if c.PasswordHash != "" && password.IsLegacy(c.PasswordHash) {
			jobs = append(jobs, ports.RehashJob{CredentialID: c.ID, Legacy: c.PasswordHash})
		}
	}
	report.Legacy = len(jobs)
	if len(jobs) == 0 {
		return report, nil
	}

	var lost atomic.Int64
	run := s.runner.Run(ctx, jobs, func(ctx context.Context, job ports.RehashJob) error {
		swapped, err := s.credentials.SwapPasswordHash(ctx, job.CredentialID, job.Legacy, s.hasher.Hash(job.Legacy))
		if err != nil {
			return err
		}
		if !swapped {
			lost.Add(1)
		}
		return nil
	})

	report.Migrated = run.Processed - int(lost.Load())
	report.Skipped = run.Skipped + int(lost.Load())
	report.Failed = run.Failed

	s.logger.Info().
		Int("scanned", report.Scanned).
		Int("legacy", report.Legacy).
		Int("migrated", report.Migrated).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Msg("legacy password migration finished")

	return report, nil
}

// ReconcileManaged diffs the stored managed set against the requested one.
// Both results are sorted and free of duplicates.
func ReconcileManaged(current, requested []string) (connect, disconnect []string) {
	have := domain.NewCollaboratorSet(current...)
	want := domain.NewCollaboratorSet(requested...)

	for _, id := range want.IDs() {
		if !have.Contains(id) {
			connect = append(connect, id)
		}
	}
	for _, id := range have.IDs() {
		if !want.Contains(id) {
			disconnect = append(disconnect, id)
		}
	}
	return connect, disconnect
}

func (s *AccountService) ensureAnotherAdmin(ctx context.Context) error {
	n, err := s.credentials.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("count admins: %w", err)
	}
	if n <= 1 {
		return domain.ErrLastAdmin
	}
	return nil
}

func (s *AccountService) ensureIdentifierFree(ctx context.Context, identifier, selfID string) error {
	other, err := s.credentials.FindByIdentifier(ctx, identifier)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check identifier: %w", err)
	case other.ID != selfID:
		return domain.ErrDuplicateIdentifier
	}
	return nil
}

// checkCollaborators fails with ErrInvalidAccount when any referenced
// collaborator does not exist.
func (s *AccountService) checkCollaborators(ctx context.Context, ids []string) error {
	ids = domain.NormalizeIDs(ids)
	if len(ids) == 0 {
		return nil
	}

	existing, err := s.collaborators.FilterExisting(ctx, ids)
	if err != nil {
		return fmt.Errorf("check collaborators: %w", err)
	}
	found := domain.NewCollaboratorSet(existing...)

	var missing []string
	for _, id := range ids {
		if !found.Contains(id) {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: unknown collaborators %s", domain.ErrInvalidAccount, strings.Join(missing, ", "))
	}
	return nil
}

func validateIdentifier(identifier string) error {
	if !identifierPattern.MatchString(identifier) {
		return fmt.Errorf("%w: identifier must be 1-64 letters, digits or . _ @ + -", domain.ErrInvalidAccount)
	}
	return nil
}

// sequentialRunner processes jobs one by one when no dispatcher is wired.
type sequentialRunner struct{}

func (sequentialRunner) Run(ctx context.Context, jobs []ports.RehashJob, process func(context.Context, ports.RehashJob) error) ports.RunReport {
	var r ports.RunReport
	for i, job := range jobs {
		if ctx.Err() != nil {
			r.Skipped += len(jobs) - i
			break
		}
		if err := process(ctx, job); err != nil {
			r.Failed++
			continue
		}
		r.Processed++
	}
	return r
}
