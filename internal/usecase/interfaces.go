package usecase

import (
	"context"

	"github.com/gmessner/simple-cr/internal/entities"
)

// LifecycleUsecaseInterface consumes GitLab webhook events.
type LifecycleUsecaseInterface interface {
	HandlePush(ctx context.Context, ev entities.PushEvent) error
	HandleMergeRequest(ctx context.Context, ev entities.MergeRequestEvent) error
}

// ReviewUsecaseInterface backs the emailed review form.
type ReviewUsecaseInterface interface {
	VerifyLink(link entities.ReviewLink, signature string) error
	LoadReview(ctx context.Context, link entities.ReviewLink, signature string) (*entities.ReviewInfo, error)
	SubmitReview(ctx context.Context, req entities.SubmitReview) (*entities.SubmitResult, error)
}

// AdminUsecaseInterface manages project registrations.
type AdminUsecaseInterface interface {
	ProjectConfig(ctx context.Context, path string) (*entities.ProjectConfig, error)
	ListProjects(ctx context.Context) ([]entities.ProjectConfig, error)
	AddProject(ctx context.Context, path string, patch entities.ProjectConfigPatch) (*entities.ProjectConfig, error)
	UpdateProject(ctx context.Context, path string, patch entities.ProjectConfigPatch) (*entities.ProjectConfig, error)
	DeleteProject(ctx context.Context, path string) error
}
