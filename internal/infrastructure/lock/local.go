// Package lock provides the in-process AdminGuard used when no Redis is
// configured. It only serializes callers inside a single instance.
package lock

import (
	"context"
	"fmt"

	"github.com/opsdesk/console-access/internal/core/ports"
)

type Local struct {
	sem chan struct{}
}

func NewLocal() *Local {
	return &Local{sem: make(chan struct{}, 1)}
}

func (l *Local) Acquire(ctx context.Context) (func(), error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("admin lock: %w", ctx.Err())
	}
	return func() { <-l.sem }, nil
}

var _ ports.AdminGuard = (*Local)(nil)
