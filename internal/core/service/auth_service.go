package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/opsdesk/console-access/internal/core/domain"
	"github.com/opsdesk/console-access/internal/core/ports"
	"github.com/opsdesk/console-access/pkg/password"
)

// AuthService implements login, token verification and identity resolution.
type AuthService struct {
	credentials ports.CredentialRepository
	hasher      ports.PasswordHasher
	tokens      ports.TokenIssuer
	logger      zerolog.Logger

	// dummyHash is verified against when the identifier is unknown so both
	// failure paths do the same amount of work.
	dummyHash string
}

func NewAuthService(credentials ports.CredentialRepository, hasher ports.PasswordHasher, tokens ports.TokenIssuer, logger zerolog.Logger) *AuthService {
	return &AuthService{
		credentials: credentials,
		hasher:      hasher,
		tokens:      tokens,
		logger:      logger,
		dummyHash:   hasher.Hash("not-a-real-password"),
	}
}

// Login checks identifier and password and issues a session token.
// Unknown identifiers and wrong passwords both return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, identifier, plain string) (*ports.LoginResult, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || plain == "" {
		return nil, domain.ErrInvalidCredentials
	}

	cred, err := s.credentials.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.hasher.Verify(plain, s.dummyHash)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if !s.hasher.Verify(plain, cred.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	if password.IsLegacy(cred.PasswordHash) {
		s.upgradeLegacy(ctx, cred, plain)
	}

	token, expiresAt, err := s.tokens.Issue(cred.ID, cred.Role)
	if err != nil {
		return nil, fmt.Errorf("login: issue token: %w", err)
	}

	s.logger.Info().
		Str("subject_id", cred.ID).
		Str("role", cred.Role.String()).
		Msg("login succeeded")

	return &ports.LoginResult{Token: token, ExpiresAt: expiresAt, Credential: cred}, nil
}

// upgradeLegacy replaces a verified plaintext password with its hash.
// Failure is logged and does not fail the login.
func (s *AuthService) upgradeLegacy(ctx context.Context, cred *domain.Credential, plain string) {
	next := s.hasher.Hash(plain)
	swapped, err := s.credentials.SwapPasswordHash(ctx, cred.ID, cred.PasswordHash, next)
	if err != nil {
		s.logger.Warn().Err(err).Str("subject_id", cred.ID).Msg("legacy password upgrade failed")
		return
	}
	if swapped {
		cred.PasswordHash = next
		s.logger.Info().Str("subject_id", cred.ID).Msg("legacy password upgraded on login")
	}
}

// Verify checks a token without touching storage.
func (s *AuthService) Verify(_ context.Context, token string) (domain.Principal, error) {
	return s.tokens.Verify(token)
}

// ResolveIdentity verifies token and loads the subject's current credential.
// The stored credential is authoritative for role and relationships; a token
// whose subject no longer exists is invalid. Storage failures are returned
// wrapped so callers can tell them apart from rejection.
func (s *AuthService) ResolveIdentity(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.ErrTokenMissing
	}

	principal, err := s.tokens.Verify(token)
	if err != nil {
		return domain.Identity{}, err
	}

	cred, err := s.credentials.FindByID(ctx, principal.SubjectID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Identity{}, domain.ErrTokenInvalid
		}
		return domain.Identity{}, fmt.Errorf("resolve identity: %w", err)
	}

	if cred.Role != principal.Role {
		s.logger.Debug().
			Str("subject_id", cred.ID).
			Str("token_role", principal.Role.String()).
			Str("stored_role", cred.Role.String()).
			Msg("role changed since token issuance")
	}

	return cred.Identity(), nil
}
