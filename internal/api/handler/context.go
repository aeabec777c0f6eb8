package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/opsdesk/console-access/internal/core/domain"
)

// ctxIdentity returns the identity attached by the gate. Handlers never read
// identity from headers, query or body.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := domain.IdentityFromContext(c.Request().Context())
	if !ok {
		return domain.Identity{}, domain.ErrTokenMissing
	}
	return id, nil
}
