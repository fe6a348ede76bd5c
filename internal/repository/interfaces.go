// Package repository contains repository interfaces for persistence layers.
package repository

import (
	"context"
	"time"

	"github.com/gmessner/simple-cr/internal/entities"
)

// LifecycleInterface describes storage startup/shutdown hooks.
type LifecycleInterface interface {
	OnStart(_ context.Context) error
	OnStop(_ context.Context) error
}

// PushInterface is the push ledger: append a push, patch it once on
// submission and once on resolution.
type PushInterface interface {
	// InsertPush records a new open push. ErrDuplicatePush is returned when
	// the branch lineage already has an open push.
	InsertPush(ctx context.Context, key entities.PushKey, beforeSHA, afterSHA string) (*entities.Push, error)
	// FindOpenPush returns the newest open push for key, or nil.
	FindOpenPush(ctx context.Context, key entities.PushKey) (*entities.Push, error)
	// FindPendingReviews returns submitted, unresolved pushes for key.
	FindPendingReviews(ctx context.Context, key entities.PushKey) ([]entities.Push, error)
	// FindByMergeRequest returns pushes for key carrying mergeRequestID, newest first.
	FindByMergeRequest(ctx context.Context, key entities.PushKey, mergeRequestID int) ([]entities.Push, error)
	// PushHistory returns every push for key, newest first.
	PushHistory(ctx context.Context, key entities.PushKey) ([]entities.Push, error)
	// AttachMergeRequest moves an open push to pending review.
	AttachMergeRequest(ctx context.Context, pushID int64, mergeRequestID int) error
	// ResolvePush records the terminal merge state. It reports false when
	// the push already carries state.
	ResolvePush(ctx context.Context, pushID int64, when time.Time, status string, state entities.MergeState, mergedByID int) (bool, error)
}

// ProjectConfigInterface exposes per-project policy storage.
type ProjectConfigInterface interface {
	// ProjectConfig returns the policy for projectID, or nil.
	ProjectConfig(ctx context.Context, projectID int) (*entities.ProjectConfig, error)
	ListProjectConfigs(ctx context.Context) ([]entities.ProjectConfig, error)
	InsertProjectConfig(ctx context.Context, cfg entities.ProjectConfig) (*entities.ProjectConfig, error)
	UpdateProjectConfig(ctx context.Context, cfg entities.ProjectConfig) (*entities.ProjectConfig, error)
	DeleteProjectConfig(ctx context.Context, projectID int) error
}
