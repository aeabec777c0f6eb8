package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/opsdesk/console-access/internal/core/domain"
	"github.com/opsdesk/console-access/internal/core/ports"
)

const seedPasswordBytes = 16

// SeedAdmin creates the bootstrap admin when no admin credential exists.
// When plain is empty a random password is generated and logged once; it must
// be changed immediately. It reports whether an account was created.
func SeedAdmin(ctx context.Context, accounts *AccountService, credentials ports.CredentialRepository, identifier, plain string, logger zerolog.Logger) (bool, error) {
	n, err := credentials.CountByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("seed admin: count admins: %w", err)
	}
	if n > 0 {
		logger.Debug().Int64("admins", n).Msg("admin exists, skipping seed")
		return false, nil
	}

	generated := plain == ""
	if generated {
		buf := make([]byte, seedPasswordBytes)
		_, _ = rand.Read(buf)
		plain = hex.EncodeToString(buf)
	}

	cred, err := accounts.Create(ctx, ports.CreateAccountInput{
		Identifier: identifier,
		Password:   plain,
		Role:       domain.RoleAdmin,
	})
	if err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}

	ev := logger.Warn().Str("identifier", cred.Identifier).Str("subject_id", cred.ID)
	if generated {
		ev = ev.Str("password", plain).Str("action_required", "change this password immediately")
	}
	ev.Msg("seed admin account created")

	return true, nil
}
