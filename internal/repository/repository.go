// Package repository provides factory for repositories.
package repository

import (
	"context"
	"fmt"

	"github.com/gmessner/simple-cr/config"
	"github.com/gmessner/simple-cr/internal/repository/postgres"
	"github.com/gmessner/simple-cr/internal/repository/sqlite"

	"go.uber.org/zap"
)

// Repository aggregates all persistence interfaces.
type Repository interface {
	LifecycleInterface
	PushInterface
	ProjectConfigInterface
}

// New constructs repository backend by name.
func New(ctx context.Context, name string, log *zap.SugaredLogger, cfg *config.Config) (Repository, error) {
	switch name {
	case config.BackendPostgres:
		return postgres.New(ctx, log, cfg), nil
	case config.BackendSQLite:
		return sqlite.New(ctx, log, cfg), nil
	default:
		return nil, fmt.Errorf("unknown repo backend: %s", name)
	}
}
