package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/opsdesk/console-access/internal/core/domain"
)

// SessionTTL is the fixed lifetime of a session token.
const SessionTTL = 8 * time.Hour

// sessionClaims is the signed payload of a session token.
type sessionClaims struct {
	jwt.RegisteredClaims
	Role domain.Role `json:"role"`
}

// TokenService issues and verifies HS256 session tokens signed with a single
// static secret. Tokens are stateless and cannot be revoked before expiry.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret), now: time.Now}
}

// WithClock replaces the time source. Used by tests to pin issuance and expiry.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// Issue signs a token for subjectID valid for SessionTTL from issuance.
// Issuance is the encoded iat, which has whole-second precision: the clock is
// truncated to the second first, so exp is always exactly iat+SessionTTL and
// the returned expiry equals the encoded exp.
func (s *TokenService) Issue(subjectID string, role domain.Role) (string, time.Time, error) {
	if subjectID == "" || !role.Valid() {
		return "", time.Time{}, errors.New("issue token: subject and valid role required")
	}

	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(SessionTTL)

	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature, algorithm and expiry. Every failure yields
// domain.ErrTokenInvalid so callers cannot tell forged from expired tokens.
func (s *TokenService) Verify(token string) (domain.Principal, error) {
	if token == "" {
		return domain.Principal{}, domain.ErrTokenInvalid
	}

	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return domain.Principal{}, domain.ErrTokenInvalid
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return domain.Principal{}, domain.ErrTokenInvalid
	}

	return domain.Principal{SubjectID: claims.Subject, Role: claims.Role}, nil
}
