package handlers_fiber

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gmessner/simple-cr/internal/entities"
	api "github.com/gmessner/simple-cr/internal/oapi"

	"github.com/gofiber/fiber/v2"
)

func writeError(c *fiber.Ctx, err error) error {
	status, code, msg := classify(err)
	return c.Status(status).JSON(api.AppResponse{Status: code, StatusText: msg})
}

func writeOK(c *fiber.Ctx, status int, msg string, data any) error {
	return c.Status(status).JSON(api.AppResponse{Success: true, Status: api.OK, StatusText: msg, Data: data})
}

// classify maps a usecase error to the HTTP status, response status and
// the text shown to the user.
func classify(err error) (int, api.AppResponseStatus, string) {
	switch {
	case errors.Is(err, entities.ErrInvalidSignature):
		return http.StatusBadRequest, api.FAILED, "invalid review link"
	case errors.Is(err, entities.ErrInvalidArgument):
		return http.StatusBadRequest, api.FAILED, reason(err, entities.ErrInvalidArgument)
	case errors.Is(err, entities.ErrProjectNotManaged):
		return http.StatusNotFound, api.NOACTION, "project is not managed"
	case errors.Is(err, entities.ErrPushNotFound):
		return http.StatusNotFound, api.NOACTION, "no push found for this branch"
	case errors.Is(err, entities.ErrRemoteNotFound):
		return http.StatusNotFound, api.NOACTION, reason(err, entities.ErrRemoteNotFound)
	case errors.Is(err, entities.ErrNoAction):
		return http.StatusConflict, api.NOACTION, reason(err, entities.ErrNoAction)
	case errors.Is(err, entities.ErrProjectExists):
		return http.StatusConflict, api.NOACTION, "project is already managed"
	case errors.Is(err, entities.ErrDuplicatePush),
		errors.Is(err, entities.ErrMergeRequestAttached),
		errors.Is(err, entities.ErrPushResolved):
		return http.StatusConflict, api.NOACTION, "this branch is already pending review"
	case errors.Is(err, entities.ErrMergeRequestConflict):
		return http.StatusConflict, api.NOACTION, "this branch has already been merged or deleted"
	case errors.Is(err, entities.ErrExternal):
		return http.StatusBadGateway, api.FAILED, "GitLab request failed"
	default:
		return http.StatusInternalServerError, api.FAILED, "internal error"
	}
}

// reason drops the sentinel prefix from a wrapped error message.
func reason(err, sentinel error) string {
	msg := strings.TrimPrefix(err.Error(), sentinel.Error())
	msg = strings.TrimPrefix(msg, ": ")
	if msg == "" {
		return sentinel.Error()
	}
	return msg
}
