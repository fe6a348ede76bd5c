package handlers_fiber

import (
	"errors"
	"net/http"

	"github.com/gmessner/simple-cr/internal/entities"
	"github.com/gmessner/simple-cr/internal/gitlab"
	api "github.com/gmessner/simple-cr/internal/oapi"

	"github.com/gofiber/fiber/v2"
)

// PostWebhook consumes a hook whose kind is named by the event header.
func (h *Handler) PostWebhook(c *fiber.Ctx) error {
	return h.webhook(c, c.Get(gitlab.EventHeader))
}

// PostWebhookPush consumes a push hook.
func (h *Handler) PostWebhookPush(c *fiber.Ctx) error {
	return h.webhook(c, gitlab.EventPush)
}

// PostWebhookMergeRequest consumes a merge request hook.
func (h *Handler) PostWebhookMergeRequest(c *fiber.Ctx) error {
	return h.webhook(c, gitlab.EventMergeRequest)
}

// webhook answers 200 for every authentic, decodable delivery so GitLab
// does not retry or disable the hook; processing failures are only logged.
func (h *Handler) webhook(c *fiber.Ctx, kind string) error {
	ev, err := h.hooks.Parse(kind, c.Get(gitlab.TokenHeader), c.Body())
	if err != nil {
		if errors.Is(err, entities.ErrInvalidSignature) {
			h.log.Warnw("webhook rejected", "kind", kind, "ip", c.IP())
			return c.Status(http.StatusUnauthorized).JSON(api.AppResponse{Status: api.FAILED, StatusText: "invalid token"})
		}
		h.log.Warnw("webhook not decoded", "kind", kind, "error", err)
		return writeError(c, err)
	}

	switch {
	case ev.Push != nil:
		err = h.uc.HandlePush(c.Context(), *ev.Push)
	case ev.MergeRequest != nil:
		err = h.uc.HandleMergeRequest(c.Context(), *ev.MergeRequest)
	default:
		h.log.Debugw("webhook ignored", "kind", kind)
		return c.Status(http.StatusOK).JSON(api.AppResponse{Status: api.NOACTION, StatusText: "event ignored"})
	}
	if err != nil {
		h.log.Errorw("webhook processing failed", "kind", kind, "error", err)
	}
	return writeOK(c, http.StatusOK, "", nil)
}
