package domain

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gmessner/simple-cr/internal/entities"
)

const (
	msgSubmitted      = "Your request for code review and merge has been submitted."
	msgPendingReview  = "This branch push is already pending review."
	msgReviewed       = "This branch push has already been reviewed."
	msgReviewedAndFmt = "This branch push has already been reviewed and %s."
)

// VerifyLink checks an emailed review link.
func (u *Usecase) VerifyLink(link entities.ReviewLink, signature string) error {
	if link.ProjectID <= 0 || link.UserID <= 0 || link.Branch == "" {
		return fmt.Errorf("%w: incomplete review link", entities.ErrInvalidArgument)
	}
	if err := u.codec.Validate(link, signature); err != nil {
		u.log.Warnw("invalid review link", "project_id", link.ProjectID, "branch", link.Branch, "user_id", link.UserID)
		return err
	}
	return nil
}

// LoadReview returns the review form data for a signed link.
func (u *Usecase) LoadReview(ctx context.Context, link entities.ReviewLink, signature string) (*entities.ReviewInfo, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	if err := u.VerifyLink(link, signature); err != nil {
		return nil, err
	}

	project, err := u.gitlab.Project(ctx, link.ProjectID)
	if err != nil {
		return nil, err
	}
	user, err := u.gitlab.User(ctx, link.UserID)
	if err != nil {
		return nil, err
	}

	info := &entities.ReviewInfo{
		Status:       entities.StatusOK,
		Group:        project.NamespaceName,
		ProjectID:    project.ID,
		ProjectName:  project.Name,
		ProjectURL:   project.WebURL,
		SourceBranch: link.Branch,
		TargetBranch: u.settings.DefaultTargetBranch,
		UserID:       user.ID,
		Name:         user.Name,
		Email:        user.Email,
		GitLabWebURL: u.settings.GitLabWebURL,
	}

	key := entities.PushKey{UserID: link.UserID, ProjectID: link.ProjectID, Branch: link.Branch}
	pending, err := u.repo.FindPendingReviews(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		info.Status = entities.StatusNoAction
		info.StatusText = msgPendingReview
		info.PendingReview = true
		info.MergeRequest = pending[0].MergeRequestID

		if mr := u.pendingMergeRequest(ctx, project, link.Branch, pending[0].MergeRequestID); mr != nil {
			info.Title = mr.Title
			info.Description = mr.Description
			info.TargetBranch = mr.TargetBranch
		}
		return info, nil
	}

	open, err := u.repo.FindOpenPush(ctx, key)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return info, nil
	}

	history, err := u.repo.PushHistory(ctx, key)
	if err != nil {
		return nil, err
	}
	info.Status = entities.StatusNoAction
	info.StatusText = msgReviewed
	if len(history) > 0 && history[0].MergeState.Terminal() {
		info.MergeState = history[0].MergeState
		info.MergeRequest = history[0].MergeRequestID
		info.StatusText = fmt.Sprintf(msgReviewedAndFmt, history[0].MergeState)
	}
	return info, nil
}

// SubmitReview opens the merge request for an open push and notifies the
// project's reviewers.
func (u *Usecase) SubmitReview(ctx context.Context, req entities.SubmitReview) (*entities.SubmitResult, error) {
	ctx, cancel := withTimeout(ctx, u.timeout)
	defer cancel()

	req.Title = strings.TrimSpace(req.Title)
	if req.TargetProjectID == 0 {
		req.TargetProjectID = req.SourceProjectID
	}
	if req.TargetBranch == "" {
		req.TargetBranch = u.settings.DefaultTargetBranch
	}
	if req.UserID <= 0 || req.SourceProjectID <= 0 || req.TargetProjectID <= 0 || req.SourceBranch == "" {
		return nil, fmt.Errorf("%w: user, project and branch are required", entities.ErrInvalidArgument)
	}
	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", entities.ErrInvalidArgument)
	}

	log := u.log.With("user_id", req.UserID, "project_id", req.SourceProjectID, "branch", req.SourceBranch)

	cfg, err := u.repo.ProjectConfig(ctx, req.TargetProjectID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		log.Infow("target project not managed", "target_project_id", req.TargetProjectID)
		return nil, fmt.Errorf("%w: project %d", entities.ErrProjectNotManaged, req.TargetProjectID)
	}
	if !cfg.Enabled {
		log.Infow("code reviews disabled for target project", "target_project_id", req.TargetProjectID)
		return nil, fmt.Errorf("%w: the target project does not have code reviews enabled", entities.ErrNoAction)
	}
	if err := u.checkTargetBranch(*cfg, req.TargetBranch); err != nil {
		return nil, err
	}

	key := entities.PushKey{UserID: req.UserID, ProjectID: req.SourceProjectID, Branch: req.SourceBranch}
	open, err := u.repo.FindOpenPush(ctx, key)
	if err != nil {
		return nil, err
	}
	if open == nil {
		log.Infow("no open push to submit")
		return nil, fmt.Errorf("%w: this branch is already pending review", entities.ErrNoAction)
	}

	mr, err := u.gitlab.CreateMergeRequest(ctx, entities.MergeRequestDraft{
		ProjectID:       req.TargetProjectID,
		SourceProjectID: req.SourceProjectID,
		SourceBranch:    req.SourceBranch,
		TargetBranch:    req.TargetBranch,
		Title:           req.Title,
		Description:     req.Description,
	})
	if errors.Is(err, entities.ErrMergeRequestConflict) {
		log.Infow("merge request refused", "error", err)
		return nil, fmt.Errorf("%w: this branch has already been merged or deleted", entities.ErrNoAction)
	}
	if err != nil {
		log.Errorw("merge request creation failed", "error", err)
		return nil, err
	}

	if err := u.repo.AttachMergeRequest(ctx, open.ID, mr.IID); err != nil {
		log.Errorw("merge request created but not recorded", "push_id", open.ID, "merge_request_iid", mr.IID, "error", err)
		return nil, err
	}
	log.Infow("merge request submitted", "push_id", open.ID, "merge_request_iid", mr.IID)

	return &entities.SubmitResult{
		Status:       entities.StatusOK,
		Message:      msgSubmitted,
		MergeRequest: mr,
		Reviewers:    u.notifyReviewers(ctx, *cfg, req.UserID, mr),
	}, nil
}

// pendingMergeRequest finds the merge request a pending push was submitted
// as. A fork may have submitted to its upstream, so the upstream is tried
// after the project itself; a hit must come from branch.
func (u *Usecase) pendingMergeRequest(ctx context.Context, project *entities.Project, branch string, iid int) *entities.MergeRequest {
	log := u.log.With("project_id", project.ID, "branch", branch, "merge_request_iid", iid)

	candidates := []int{project.ID}
	if project.ForkedFromID > 0 {
		candidates = append(candidates, project.ForkedFromID)
	}
	for _, projectID := range candidates {
		mr, err := u.gitlab.MergeRequest(ctx, projectID, iid)
		if err != nil {
			log.Debugw("merge request lookup failed", "target_project_id", projectID, "error", err)
			continue
		}
		if mr.SourceBranch != branch {
			continue
		}
		return mr
	}
	log.Warnw("merge request of pending push not found, title not loaded")
	return nil
}

func (u *Usecase) checkTargetBranch(cfg entities.ProjectConfig, branch string) error {
	pattern := cfg.TargetBranchRegex
	if pattern == "" {
		pattern = u.settings.TargetBranchRegex
	}
	if pattern == "" {
		return nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return fmt.Errorf("%w: target branch regex: %w", entities.ErrInvalidArgument, err)
	}
	if !re.MatchString(branch) {
		return fmt.Errorf("%w: target branch %q is not allowed", entities.ErrInvalidArgument, branch)
	}
	return nil
}

// notifyReviewers sends the merge request email after the ledger write.
// Failures are logged; the submission already succeeded.
func (u *Usecase) notifyReviewers(ctx context.Context, cfg entities.ProjectConfig, userID int, mr *entities.MergeRequest) []string {
	log := u.log.With("project_id", cfg.ProjectID, "merge_request_iid", mr.IID)

	project, err := u.gitlab.Project(ctx, cfg.ProjectID)
	if err != nil {
		log.Errorw("project lookup failed, reviewers not notified", "error", err)
		return nil
	}

	var author *entities.User
	authorEmail := ""
	if user, err := u.gitlab.User(ctx, userID); err != nil {
		log.Warnw("author lookup failed", "user_id", userID, "error", err)
	} else {
		author = user
		authorEmail = user.Email
	}

	list := u.resolver.Resolve(ctx, cfg, project.NamespaceID, authorEmail)
	if len(list) == 0 {
		log.Warnw("no reviewers configured, merge request email not sent")
		return nil
	}

	to := make([]entities.Recipient, 0, len(list))
	for _, email := range list {
		to = append(to, entities.Recipient{Email: email})
	}

	link := mr.WebURL
	if link == "" {
		link = fmt.Sprintf("%s/%s/%s/merge_requests/%d",
			strings.TrimRight(u.settings.GitLabWebURL, "/"), project.NamespaceName, project.Name, mr.IID)
	}

	n := entities.Notification{
		Kind: entities.NotificationMergeRequest,
		To:   to,
		Data: entities.NotificationData{
			Project:          *project,
			Branch:           mr.SourceBranch,
			User:             author,
			MergeRequest:     mr,
			MergeRequestLink: link,
			GitLabWebURL:     u.settings.GitLabWebURL,
		},
	}
	if err := u.notifier.Send(ctx, n); err != nil {
		log.Errorw("merge request email failed", "error", err)
	}
	return list
}
