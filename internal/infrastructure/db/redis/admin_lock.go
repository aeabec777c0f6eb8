package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/opsdesk/console-access/internal/core/ports"
)

const (
	adminLockKey   = "console-access:lock:admins"
	adminLockTTL   = 10 * time.Second
	adminLockRetry = 50 * time.Millisecond
	acquireTimeout = 5 * time.Second
)

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another instance is never released by us.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

type lockClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// AdminLock serializes admin-count checks across instances with SET NX.
type AdminLock struct {
	client  lockClient
	log     zerolog.Logger
	ttl     time.Duration
	retry   time.Duration
	timeout time.Duration
}

func NewAdminLock(client *redis.Client, log zerolog.Logger) *AdminLock {
	return newAdminLock(client, log)
}

func newAdminLock(client lockClient, log zerolog.Logger) *AdminLock {
	return &AdminLock{
		client:  client,
		log:     log,
		ttl:     adminLockTTL,
		retry:   adminLockRetry,
		timeout: acquireTimeout,
	}
}

// Acquire blocks until the lock is held, ctx is done or the acquire timeout
// elapses.
func (l *AdminLock) Acquire(ctx context.Context) (func(), error) {
	token, err := lockToken()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	ticker := time.NewTicker(l.retry)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, adminLockKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("admin lock: %w", err)
		}
		if ok {
			return l.releaser(token), nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("admin lock: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (l *AdminLock) releaser(token string) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
		defer cancel()
		if err := l.client.Eval(ctx, releaseScript, []string{adminLockKey}, token).Err(); err != nil {
			l.log.Warn().Err(err).Msg("admin lock release failed; it will expire")
		}
	}
}

func lockToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("admin lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

var _ ports.AdminGuard = (*AdminLock)(nil)
