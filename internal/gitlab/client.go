// Package gitlab adapts the GitLab REST API and webhooks to the domain types.
package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gmessner/simple-cr/config"
	"github.com/gmessner/simple-cr/internal/entities"

	gl "github.com/xanzy/go-gitlab"
	"go.uber.org/zap"
)

const maxPerPage = 100

// Client is the GitLab collaborator used by the use cases.
type Client struct {
	log *zap.SugaredLogger
	api *gl.Client
}

// New builds a Client for cfg. Retries are disabled: a failed call is
// reported to the caller, which abandons the operation.
func New(log *zap.SugaredLogger, cfg config.GitLabConfig) (*Client, error) {
	api, err := gl.NewClient(cfg.Token,
		gl.WithBaseURL(cfg.BaseURL),
		gl.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		gl.WithoutRetries(),
	)
	if err != nil {
		return nil, fmt.Errorf("gitlab client: %w", err)
	}
	return &Client{log: log.Named("gitlab"), api: api}, nil
}

// Project returns the project with projectID.
func (c *Client) Project(ctx context.Context, projectID int) (*entities.Project, error) {
	p, resp, err := c.api.Projects.GetProject(projectID, nil, gl.WithContext(ctx))
	if err != nil {
		return nil, c.mapError("get project", resp, err)
	}
	return toProject(p), nil
}

// ProjectByPath returns the project at "group/project".
func (c *Client) ProjectByPath(ctx context.Context, path string) (*entities.Project, error) {
	p, resp, err := c.api.Projects.GetProject(path, nil, gl.WithContext(ctx))
	if err != nil {
		return nil, c.mapError("get project by path", resp, err)
	}
	return toProject(p), nil
}

// User returns the user with userID. The private email is used when the
// token can see it, the public one otherwise.
func (c *Client) User(ctx context.Context, userID int) (*entities.User, error) {
	u, resp, err := c.api.Users.GetUser(userID, gl.GetUsersOptions{}, gl.WithContext(ctx))
	if err != nil {
		return nil, c.mapError("get user", resp, err)
	}
	return toUser(u), nil
}

func (c *Client) FindUsersByUsername(ctx context.Context, username string) ([]entities.User, error) {
	users, resp, err := c.api.Users.ListUsers(&gl.ListUsersOptions{Username: gl.Ptr(username)}, gl.WithContext(ctx))
	if err != nil {
		return nil, c.mapError("find users", resp, err)
	}
	res := make([]entities.User, 0, len(users))
	for _, u := range users {
		res = append(res, *toUser(u))
	}
	return res, nil
}

// BranchExists reports whether branch is still present in projectID.
func (c *Client) BranchExists(ctx context.Context, projectID int, branch string) (bool, error) {
	_, resp, err := c.api.Branches.GetBranch(projectID, branch, gl.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, c.mapError("get branch", resp, err)
	}
	return true, nil
}

func (c *Client) GroupMembers(ctx context.Context, groupID int) ([]entities.Member, error) {
	var members []entities.Member
	opts := &gl.ListGroupMembersOptions{ListOptions: gl.ListOptions{Page: 1, PerPage: maxPerPage}}
	for {
		page, resp, err := c.api.Groups.ListGroupMembers(groupID, opts, gl.WithContext(ctx))
		if err != nil {
			return nil, c.mapError("list group members", resp, err)
		}
		for _, m := range page {
			members = append(members, entities.Member{ID: m.ID, Username: m.Username, Name: m.Name})
		}
		if resp.NextPage == 0 {
			return members, nil
		}
		opts.Page = resp.NextPage
	}
}

func (c *Client) ProjectMembers(ctx context.Context, projectID int) ([]entities.Member, error) {
	var members []entities.Member
	opts := &gl.ListProjectMembersOptions{ListOptions: gl.ListOptions{Page: 1, PerPage: maxPerPage}}
	for {
		page, resp, err := c.api.ProjectMembers.ListProjectMembers(projectID, opts, gl.WithContext(ctx))
		if err != nil {
			return nil, c.mapError("list project members", resp, err)
		}
		for _, m := range page {
			members = append(members, entities.Member{ID: m.ID, Username: m.Username, Name: m.Name})
		}
		if resp.NextPage == 0 {
			return members, nil
		}
		opts.Page = resp.NextPage
	}
}

// CreateMergeRequest opens a merge request in draft.ProjectID. GitLab
// answers 409 for an existing merge request and 422 for a merged or
// missing branch; both map to ErrMergeRequestConflict.
func (c *Client) CreateMergeRequest(ctx context.Context, draft entities.MergeRequestDraft) (*entities.MergeRequest, error) {
	opts := &gl.CreateMergeRequestOptions{
		Title:        gl.Ptr(draft.Title),
		Description:  gl.Ptr(draft.Description),
		SourceBranch: gl.Ptr(draft.SourceBranch),
		TargetBranch: gl.Ptr(draft.TargetBranch),
	}
	projectID := draft.ProjectID
	if draft.SourceProjectID != 0 && draft.SourceProjectID != draft.ProjectID {
		// forked source: the request is opened on the fork and targets the upstream
		projectID = draft.SourceProjectID
		opts.TargetProjectID = gl.Ptr(draft.ProjectID)
	}

	mr, resp, err := c.api.MergeRequests.CreateMergeRequest(projectID, opts, gl.WithContext(ctx))
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusConflict || resp.StatusCode == http.StatusUnprocessableEntity) {
			c.log.Warnw("merge request refused", "project_id", projectID, "branch", draft.SourceBranch, "status", resp.StatusCode, "error", err)
			return nil, fmt.Errorf("%w: %v", entities.ErrMergeRequestConflict, err)
		}
		return nil, c.mapError("create merge request", resp, err)
	}
	return toMergeRequest(mr), nil
}

// MergeRequest returns the merge request with the project-scoped iid.
func (c *Client) MergeRequest(ctx context.Context, projectID, iid int) (*entities.MergeRequest, error) {
	mr, resp, err := c.api.MergeRequests.GetMergeRequest(projectID, iid, nil, gl.WithContext(ctx))
	if err != nil {
		return nil, c.mapError("get merge request", resp, err)
	}
	return toMergeRequest(mr), nil
}

// AddProjectHook registers hookURL for push and merge request events and
// returns the hook id.
func (c *Client) AddProjectHook(ctx context.Context, projectID int, hookURL, token string) (int, error) {
	opts := &gl.AddProjectHookOptions{
		URL:                 gl.Ptr(hookURL),
		PushEvents:          gl.Ptr(true),
		MergeRequestsEvents: gl.Ptr(true),
	}
	if token != "" {
		opts.Token = gl.Ptr(token)
	}
	hook, resp, err := c.api.Projects.AddProjectHook(projectID, opts, gl.WithContext(ctx))
	if err != nil {
		return 0, c.mapError("add project hook", resp, err)
	}
	c.log.Infow("project hook added", "project_id", projectID, "hook_id", hook.ID)
	return hook.ID, nil
}

// DeleteProjectHook removes a hook. A hook already gone is not an error.
func (c *Client) DeleteProjectHook(ctx context.Context, projectID, hookID int) error {
	resp, err := c.api.Projects.DeleteProjectHook(projectID, hookID, gl.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			c.log.Warnw("project hook already removed", "project_id", projectID, "hook_id", hookID)
			return nil
		}
		return c.mapError("delete project hook", resp, err)
	}
	c.log.Infow("project hook deleted", "project_id", projectID, "hook_id", hookID)
	return nil
}

func (c *Client) mapError(op string, resp *gl.Response, err error) error {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", entities.ErrRemoteNotFound, op)
	}
	c.log.Errorw("gitlab call failed", "op", op, "error", err)
	return fmt.Errorf("%w: %s: %w", entities.ErrExternal, op, err)
}

func toProject(p *gl.Project) *entities.Project {
	res := &entities.Project{
		ID:     p.ID,
		Name:   strings.TrimSpace(p.Name),
		WebURL: p.WebURL,
	}
	if p.Namespace != nil {
		res.NamespaceID = p.Namespace.ID
		res.NamespaceName = strings.TrimSpace(p.Namespace.Name)
		res.NamespaceKind = p.Namespace.Kind
	}
	if p.ForkedFromProject != nil {
		res.ForkedFromID = p.ForkedFromProject.ID
	}
	return res
}

func toUser(u *gl.User) *entities.User {
	email := u.Email
	if email == "" {
		email = u.PublicEmail
	}
	return &entities.User{ID: u.ID, Username: u.Username, Name: u.Name, Email: email}
}

func toMergeRequest(mr *gl.MergeRequest) *entities.MergeRequest {
	res := &entities.MergeRequest{
		ID:           mr.ID,
		IID:          mr.IID,
		ProjectID:    mr.ProjectID,
		Title:        mr.Title,
		Description:  mr.Description,
		State:        mr.State,
		SourceBranch: mr.SourceBranch,
		TargetBranch: mr.TargetBranch,
		WebURL:       mr.WebURL,
	}
	if mr.Author != nil {
		res.AuthorID = mr.Author.ID
		res.AuthorName = mr.Author.Name
	}
	if mr.Assignee != nil {
		res.AssigneeID = mr.Assignee.ID
	}
	return res
}
