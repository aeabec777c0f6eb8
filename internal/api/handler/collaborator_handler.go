package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/opsdesk/console-access/internal/core/ports"
)

// CollaboratorHandler serves collaborator reads, always limited to the
// caller's visibility scope.
type CollaboratorHandler struct {
	service ports.CollaboratorService
}

func NewCollaboratorHandler(service ports.CollaboratorService) *CollaboratorHandler {
	return &CollaboratorHandler{service: service}
}

// List returns the visible collaborators.
//
// @Summary      List collaborators
// @Tags         collaborators
// @Produce      json
// @Security     BearerAuth
// @Param        company  query     string  false  "Company (case-insensitive exact match)"
// @Param        q        query     string  false  "Name search"
// @Success      200      {object}  listCollaboratorsResponse
// @Failure      401      {object}  errorResponse
// @Router       /v1/collaborators [get]
func (h *CollaboratorHandler) List(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	list, err := h.service.List(c.Request().Context(), id, ports.ListCollaboratorsInput{
		Company: c.QueryParam("company"),
		Search:  c.QueryParam("q"),
	})
	if err != nil {
		return err
	}

	items := make([]collaboratorResponse, 0, len(list))
	for _, col := range list {
		items = append(items, toCollaboratorResponse(col))
	}
	return c.JSON(http.StatusOK, listCollaboratorsResponse{Items: items, Total: len(items)})
}

// Get returns one collaborator, or 404 when it is outside the caller's scope.
//
// @Summary      Get a collaborator
// @Tags         collaborators
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Collaborator id"
// @Success      200  {object}  collaboratorResponse
// @Failure      404  {object}  errorResponse
// @Router       /v1/collaborators/{id} [get]
func (h *CollaboratorHandler) Get(c echo.Context) error {
	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	col, err := h.service.Get(c.Request().Context(), id, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toCollaboratorResponse(col))
}
