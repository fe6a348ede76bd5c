package handlers_fiber

import (
	"net/http"

	"github.com/gmessner/simple-cr/internal/mapper"
	api "github.com/gmessner/simple-cr/internal/oapi"

	"github.com/gofiber/fiber/v2"
)

// GetAdmin lists managed projects.
func (h *Handler) GetAdmin(c *fiber.Ctx) error {
	list, err := h.uc.ListProjects(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "", mapper.ToOAPIProjectConfigs(list))
}

// GetAdminProject returns the configuration of one project.
func (h *Handler) GetAdminProject(c *fiber.Ctx, params api.ProjectPathParams) error {
	cfg, err := h.uc.ProjectConfig(c.Context(), params.Path())
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "", mapper.ToOAPIProjectConfig(*cfg))
}

// PostAdminProject registers a project and installs its hook.
func (h *Handler) PostAdminProject(c *fiber.Ctx, params api.ProjectPathParams) error {
	patch, ok := h.projectForm(c)
	if !ok {
		return nil
	}
	cfg, err := h.uc.AddProject(c.Context(), params.Path(), mapper.FromOAPIProjectConfigForm(patch))
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusCreated, "", mapper.ToOAPIProjectConfig(*cfg))
}

// PutAdminProject updates the policy of a managed project.
func (h *Handler) PutAdminProject(c *fiber.Ctx, params api.ProjectPathParams) error {
	patch, ok := h.projectForm(c)
	if !ok {
		return nil
	}
	cfg, err := h.uc.UpdateProject(c.Context(), params.Path(), mapper.FromOAPIProjectConfigForm(patch))
	if err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "", mapper.ToOAPIProjectConfig(*cfg))
}

// DeleteAdminProject removes the hook and the registration.
func (h *Handler) DeleteAdminProject(c *fiber.Ctx, params api.ProjectPathParams) error {
	if err := h.uc.DeleteProject(c.Context(), params.Path()); err != nil {
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, "project removed", nil)
}

// projectForm parses an optional body. It writes the 400 itself and
// reports false when the body is malformed.
func (h *Handler) projectForm(c *fiber.Ctx) (api.ProjectConfigForm, bool) {
	var form api.ProjectConfigForm
	if len(c.Body()) == 0 {
		return form, true
	}
	if err := c.BodyParser(&form); err != nil {
		_ = c.Status(http.StatusBadRequest).JSON(api.AppResponse{Status: api.FAILED, StatusText: "invalid body"})
		return form, false
	}
	return form, true
}
