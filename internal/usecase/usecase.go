package usecase

import (
	"time"

	"github.com/gmessner/simple-cr/internal/usecase/domain"

	"go.uber.org/zap"
)

// InterfaceUsecase aggregates all usecase interfaces.
type InterfaceUsecase interface {
	LifecycleUsecaseInterface
	ReviewUsecaseInterface
	AdminUsecaseInterface
}

// New constructs a new usecase layer with its dependencies.
func New(
	log *zap.SugaredLogger,
	deps domain.Deps,
	settings domain.Settings,
	timeout time.Duration,
	eventTimeout time.Duration,
) InterfaceUsecase {
	return domain.New(log, deps, settings, timeout, eventTimeout)
}
