package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opsdesk/console-access/internal/api/metrics"
	"github.com/opsdesk/console-access/internal/core/domain"
	"github.com/opsdesk/console-access/internal/core/ports"
)

// AccountHandler exposes the admin-only account lifecycle.
type AccountHandler struct {
	service ports.AccountService
}

func NewAccountHandler(service ports.AccountService) *AccountHandler {
	return &AccountHandler{service: service}
}

// Create adds a credential.
//
// @Summary      Create account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createAccountRequest  true  "Account"
// @Success      201   {object}  accountResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/accounts [post]
func (h *AccountHandler) Create(c echo.Context) error {
	var req createAccountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	cred, err := h.service.Create(c.Request().Context(), ports.CreateAccountInput{
		Identifier:             req.Identifier,
		Password:               req.Password,
		Role:                   domain.Role(req.Role),
		LinkedCollaboratorID:   req.LinkedCollaboratorID,
		ManagedCollaboratorIDs: req.ManagedCollaboratorIDs,
	})
	observe("create", err)
	if err != nil {
		return err
	}

	c.Response().Header().Set(echo.HeaderLocation, "/v1/accounts/"+cred.ID)
	return c.JSON(http.StatusCreated, toAccountResponse(cred))
}

// List returns every account.
//
// @Summary      List accounts
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listAccountsResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/accounts [get]
func (h *AccountHandler) List(c echo.Context) error {
	creds, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}

	items := make([]accountResponse, 0, len(creds))
	for _, cred := range creds {
		items = append(items, toAccountResponse(cred))
	}
	return c.JSON(http.StatusOK, listAccountsResponse{Items: items, Total: len(items)})
}

// Get returns one account.
//
// @Summary      Get account
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Account id"
// @Success      200  {object}  accountResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/accounts/{id} [get]
func (h *AccountHandler) Get(c echo.Context) error {
	cred, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(cred))
}

// Update applies a partial change.
//
// @Summary      Update account
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string                true  "Account id"
// @Param        body  body      updateAccountRequest  true  "Fields to change"
// @Success      200   {object}  accountResponse
// @Failure      404   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/accounts/{id} [patch]
func (h *AccountHandler) Update(c echo.Context) error {
	var req updateAccountRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	in := ports.UpdateAccountInput{
		Identifier:             req.Identifier,
		Password:               req.Password,
		LinkedCollaboratorID:   req.LinkedCollaboratorID,
		ManagedCollaboratorIDs: req.ManagedCollaboratorIDs,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		in.Role = &role
	}

	cred, err := h.service.Update(c.Request().Context(), c.Param("id"), in)
	observe("update", err)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toAccountResponse(cred))
}

// Delete removes an account. The last admin cannot be removed.
//
// @Summary      Delete account
// @Tags         accounts
// @Security     BearerAuth
// @Param        id   path  string  true  "Account id"
// @Success      204
// @Failure      404  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Router       /v1/accounts/{id} [delete]
func (h *AccountHandler) Delete(c echo.Context) error {
	err := h.service.Delete(c.Request().Context(), c.Param("id"))
	observe("delete", err)
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// MigratePasswords re-hashes every legacy plaintext password.
//
// @Summary      Migrate legacy passwords
// @Tags         accounts
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ports.MigrationReport
// @Failure      403  {object}  errorResponse
// @Router       /v1/accounts/password-migration [post]
func (h *AccountHandler) MigratePasswords(c echo.Context) error {
	report, err := h.service.MigrateLegacyPasswords(c.Request().Context())
	if err != nil {
		return err
	}
	metrics.PasswordsMigratedTotal.Add(float64(report.Migrated))
	return c.JSON(http.StatusOK, report)
}

func observe(op string, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		result = "not_found"
	case errors.Is(err, domain.ErrDuplicateIdentifier):
		result = "duplicate"
	case errors.Is(err, domain.ErrLastAdmin):
		result = "last_admin"
	case errors.Is(err, domain.ErrInvalidAccount):
		result = "invalid"
	default:
		result = "error"
	}
	metrics.AccountMutationsTotal.WithLabelValues(op, result).Inc()
}
