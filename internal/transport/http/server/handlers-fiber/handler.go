// Package handlers_fiber wires HTTP delivery components.
package handlers_fiber

import (
	"github.com/gmessner/simple-cr/internal/gitlab"
	"github.com/gmessner/simple-cr/internal/usecase"

	"go.uber.org/zap"
)

// Handler implements oapi.ServerInterface using service layer interfaces.
type Handler struct {
	log   *zap.SugaredLogger
	uc    usecase.InterfaceUsecase
	hooks *gitlab.WebhookParser
}

// NewHandler constructs an HTTP server with service dependencies.
func NewHandler(log *zap.SugaredLogger, usecase usecase.InterfaceUsecase, hooks *gitlab.WebhookParser) *Handler {
	return &Handler{
		log:   log.Named("http"),
		uc:    usecase,
		hooks: hooks,
	}
}
