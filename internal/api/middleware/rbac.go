package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/opsdesk/console-access/internal/api/metrics"
	"github.com/opsdesk/console-access/internal/core/domain"
)

// RBAC allows the request through only when the gate-attached identity has
// one of the given roles. It must run after Gate. Failures are returned as
// domain errors for the central error handler to render.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := domain.IdentityFromContext(c.Request().Context())
			if !ok {
				return domain.ErrTokenMissing
			}
			if _, ok := allowed[id.Role]; !ok {
				metrics.RBACDenialsTotal.WithLabelValues(id.Role.String()).Inc()
				return domain.ErrInsufficientRole
			}
			return next(c)
		}
	}
}
