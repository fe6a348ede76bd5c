package domain

import (
	"context"

	"github.com/gmessner/simple-cr/internal/entities"
)

// GitLab is the remote API the use cases call. Not found objects are
// reported as entities.ErrRemoteNotFound, failures as entities.ErrExternal.
type GitLab interface {
	Project(ctx context.Context, projectID int) (*entities.Project, error)
	ProjectByPath(ctx context.Context, path string) (*entities.Project, error)
	User(ctx context.Context, userID int) (*entities.User, error)
	FindUsersByUsername(ctx context.Context, username string) ([]entities.User, error)
	BranchExists(ctx context.Context, projectID int, branch string) (bool, error)
	GroupMembers(ctx context.Context, groupID int) ([]entities.Member, error)
	ProjectMembers(ctx context.Context, projectID int) ([]entities.Member, error)
	CreateMergeRequest(ctx context.Context, draft entities.MergeRequestDraft) (*entities.MergeRequest, error)
	MergeRequest(ctx context.Context, projectID, iid int) (*entities.MergeRequest, error)
	AddProjectHook(ctx context.Context, projectID int, hookURL, token string) (int, error)
	DeleteProjectHook(ctx context.Context, projectID, hookID int) error
}

// Notifier delivers emails.
type Notifier interface {
	Send(ctx context.Context, n entities.Notification) error
}
