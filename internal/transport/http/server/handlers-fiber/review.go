package handlers_fiber

import (
	_ "embed"
	"net/http"

	"github.com/gmessner/simple-cr/internal/entities"
	"github.com/gmessner/simple-cr/internal/mapper"
	api "github.com/gmessner/simple-cr/internal/oapi"

	"github.com/gofiber/fiber/v2"
)

//go:embed static/review.html
var reviewPage []byte

func toLink(params api.ReviewLinkParams) entities.ReviewLink {
	return entities.ReviewLink{ProjectID: params.ProjectId, Branch: params.Branch, UserID: params.UserId}
}

// GetReviewForm serves the review form page for a valid signed link.
func (h *Handler) GetReviewForm(c *fiber.Ctx, params api.ReviewLinkParams) error {
	if err := h.uc.VerifyLink(toLink(params), params.Signature); err != nil {
		status, _, msg := classify(err)
		return c.Status(status).SendString(msg)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Status(http.StatusOK).Send(reviewPage)
}

// GetLoad returns the data of the review form.
func (h *Handler) GetLoad(c *fiber.Ctx, params api.ReviewLinkParams) error {
	info, err := h.uc.LoadReview(c.Context(), toLink(params), params.Signature)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(http.StatusOK).JSON(api.AppResponse{
		Success:    info.Status == entities.StatusOK,
		Status:     api.AppResponseStatus(info.Status),
		StatusText: info.StatusText,
		Data:       mapper.ToOAPIReviewInfo(*info),
	})
}

// PostSubmit creates the merge request for a reviewed branch. The
// submission must carry the signature of the link the form was loaded from.
func (h *Handler) PostSubmit(c *fiber.Ctx) error {
	var body api.SubmitRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(http.StatusBadRequest).JSON(api.AppResponse{Status: api.FAILED, StatusText: "invalid body"})
	}

	req := mapper.FromOAPISubmit(body)
	link := entities.ReviewLink{ProjectID: req.SourceProjectID, Branch: req.SourceBranch, UserID: req.UserID}
	if err := h.uc.VerifyLink(link, body.Signature); err != nil {
		return writeError(c, err)
	}

	res, err := h.uc.SubmitReview(c.Context(), req)
	if err != nil {
		h.log.Infow("review not submitted", "project_id", req.SourceProjectID, "branch", req.SourceBranch, "error", err)
		return writeError(c, err)
	}
	return writeOK(c, http.StatusOK, res.Message, mapper.ToOAPISubmitResult(*res))
}
