package oapi

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (POST /webhook)
	PostWebhook(c *fiber.Ctx) error
	// (POST /webhook/push)
	PostWebhookPush(c *fiber.Ctx) error
	// (POST /webhook/merge-request)
	PostWebhookMergeRequest(c *fiber.Ctx) error
	// (GET /load/{projectId}/{branch}/{userId}/{signature})
	GetLoad(c *fiber.Ctx, params ReviewLinkParams) error
	// (GET /{projectId}/{branch}/{userId}/{signature})
	GetReviewForm(c *fiber.Ctx, params ReviewLinkParams) error
	// (POST /submit)
	PostSubmit(c *fiber.Ctx) error
	// (GET /admin)
	GetAdmin(c *fiber.Ctx) error
	// (GET /admin/{group}/{project})
	GetAdminProject(c *fiber.Ctx, params ProjectPathParams) error
	// (POST /admin/{group}/{project})
	PostAdminProject(c *fiber.Ctx, params ProjectPathParams) error
	// (PUT /admin/{group}/{project})
	PutAdminProject(c *fiber.Ctx, params ProjectPathParams) error
	// (DELETE /admin/{group}/{project})
	DeleteAdminProject(c *fiber.Ctx, params ProjectPathParams) error
}

// ServerInterfaceWrapper converts path parameters before calling a handler.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

// RegisterHandlers mounts every route on router. The catch-all review form
// route is registered last.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	w := &ServerInterfaceWrapper{Handler: si}

	router.Post("/webhook", si.PostWebhook)
	router.Post("/webhook/push", si.PostWebhookPush)
	router.Post("/webhook/merge-request", si.PostWebhookMergeRequest)
	router.Post("/submit", si.PostSubmit)

	router.Get("/admin", si.GetAdmin)
	router.Get("/admin/:group/:project", w.GetAdminProject)
	router.Post("/admin/:group/:project", w.PostAdminProject)
	router.Put("/admin/:group/:project", w.PutAdminProject)
	router.Delete("/admin/:group/:project", w.DeleteAdminProject)

	router.Get("/load/:projectId/:branch/:userId/:signature", w.GetLoad)
	router.Get("/:projectId/:branch/:userId/:signature", w.GetReviewForm)
}

func (w *ServerInterfaceWrapper) GetLoad(c *fiber.Ctx) error {
	params, err := reviewLinkParams(c)
	if err != nil {
		return err
	}
	return w.Handler.GetLoad(c, params)
}

func (w *ServerInterfaceWrapper) GetReviewForm(c *fiber.Ctx) error {
	params, err := reviewLinkParams(c)
	if err != nil {
		return err
	}
	return w.Handler.GetReviewForm(c, params)
}

func (w *ServerInterfaceWrapper) GetAdminProject(c *fiber.Ctx) error {
	params, err := projectPathParams(c)
	if err != nil {
		return err
	}
	return w.Handler.GetAdminProject(c, params)
}

func (w *ServerInterfaceWrapper) PostAdminProject(c *fiber.Ctx) error {
	params, err := projectPathParams(c)
	if err != nil {
		return err
	}
	return w.Handler.PostAdminProject(c, params)
}

func (w *ServerInterfaceWrapper) PutAdminProject(c *fiber.Ctx) error {
	params, err := projectPathParams(c)
	if err != nil {
		return err
	}
	return w.Handler.PutAdminProject(c, params)
}

func (w *ServerInterfaceWrapper) DeleteAdminProject(c *fiber.Ctx) error {
	params, err := projectPathParams(c)
	if err != nil {
		return err
	}
	return w.Handler.DeleteAdminProject(c, params)
}

// reviewLinkParams decodes the link segments. The branch arrives path
// escaped so names containing "/" fit in one segment.
func reviewLinkParams(c *fiber.Ctx) (ReviewLinkParams, error) {
	var (
		params ReviewLinkParams
		err    error
	)
	if params.ProjectId, err = strconv.Atoi(c.Params("projectId")); err != nil {
		return params, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid format for parameter projectId: %s", err))
	}
	if params.UserId, err = strconv.Atoi(c.Params("userId")); err != nil {
		return params, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid format for parameter userId: %s", err))
	}
	if params.Branch, err = url.PathUnescape(c.Params("branch")); err != nil {
		return params, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid format for parameter branch: %s", err))
	}
	params.Signature = c.Params("signature")
	return params, nil
}

func projectPathParams(c *fiber.Ctx) (ProjectPathParams, error) {
	group, err := url.PathUnescape(c.Params("group"))
	if err != nil {
		return ProjectPathParams{}, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid format for parameter group: %s", err))
	}
	project, err := url.PathUnescape(c.Params("project"))
	if err != nil {
		return ProjectPathParams{}, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Invalid format for parameter project: %s", err))
	}
	return ProjectPathParams{Group: group, Project: project}, nil
}
