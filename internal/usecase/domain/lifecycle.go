// Package domain contains application services driving the review lifecycle
// of a branch push.
package domain

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/gmessner/simple-cr/internal/entities"

	"go.uber.org/zap"
)

// HandlePush reacts to a branch push. Dropped events return nil and are
// logged with the reason; only validation, remote and storage failures
// are returned.
func (u *Usecase) HandlePush(ctx context.Context, ev entities.PushEvent) error {
	ctx, cancel := u.eventContext(ctx)
	defer cancel()

	log := u.log.With("user_id", ev.UserID, "project_id", ev.ProjectID, "branch", ev.Branch)
	log.Infow("branch pushed", "before", ev.BeforeSHA, "after", ev.AfterSHA)

	if ev.Branch == "" {
		log.Errorw("push without branch", "ref", ev.Ref)
		return fmt.Errorf("%w: no branch in ref %q", entities.ErrInvalidArgument, ev.Ref)
	}
	if ev.Branch == u.settings.ProtectedBranch {
		log.Warnw("push to protected branch ignored")
		return nil
	}

	cfg, err := u.repo.ProjectConfig(ctx, ev.ProjectID)
	if err != nil {
		return err
	}
	if cfg == nil {
		log.Infow("project not managed, push ignored")
		return nil
	}

	if cfg.BranchRegex != "" {
		re, err := regexp.Compile(cfg.BranchRegex)
		if err != nil {
			log.Errorw("stored branch regex is invalid", "regex", cfg.BranchRegex, "error", err)
			return fmt.Errorf("%w: branch regex: %w", entities.ErrInvalidArgument, err)
		}
		if !re.MatchString(ev.Branch) {
			log.Infow("branch does not match project regex, push ignored", "regex", cfg.BranchRegex)
			return nil
		}
	}

	exists, err := u.gitlab.BranchExists(ctx, ev.ProjectID, ev.Branch)
	if err != nil {
		log.Errorw("branch lookup failed, push dropped", "error", err)
		return err
	}
	if !exists {
		log.Infow("branch no longer exists, push ignored")
		return nil
	}
	if entities.IsZeroSHA(ev.AfterSHA) {
		log.Infow("branch deleted, push ignored", "after", ev.AfterSHA)
		return nil
	}

	project, err := u.gitlab.Project(ctx, ev.ProjectID)
	if err != nil {
		log.Errorw("project lookup failed, push dropped", "error", err)
		return err
	}
	user, err := u.gitlab.User(ctx, ev.UserID)
	if err != nil {
		log.Errorw("user lookup failed, push dropped", "error", err)
		return err
	}
	if user.Email == "" {
		user.Email = ev.UserEmail
	}

	key := entities.PushKey{UserID: ev.UserID, ProjectID: ev.ProjectID, Branch: ev.Branch}
	pending, err := u.repo.FindPendingReviews(ctx, key)
	if err != nil {
		return err
	}
	if len(pending) > 0 {
		log.Infow("branch already pending review", "push_id", pending[0].ID, "merge_request_id", pending[0].MergeRequestID)
		return nil
	}
	open, err := u.repo.FindOpenPush(ctx, key)
	if err != nil {
		return err
	}
	if open != nil {
		log.Infow("review request already sent", "push_id", open.ID)
		return nil
	}

	push, err := u.repo.InsertPush(ctx, key, ev.BeforeSHA, ev.AfterSHA)
	if errors.Is(err, entities.ErrDuplicatePush) {
		log.Infow("concurrent duplicate push suppressed")
		return nil
	}
	if err != nil {
		return err
	}

	if user.Email == "" {
		log.Warnw("pusher has no email, review request not sent", "push_id", push.ID)
		return nil
	}

	link := entities.ReviewLink{ProjectID: ev.ProjectID, Branch: ev.Branch, UserID: ev.UserID}
	n := entities.Notification{
		Kind: entities.NotificationCodeReview,
		To:   []entities.Recipient{{Email: user.Email, Name: user.Name}},
		Data: entities.NotificationData{
			Project:      *project,
			Branch:       ev.Branch,
			User:         user,
			ReviewLink:   u.codec.URL(u.settings.PublicURL, link),
			GitLabWebURL: u.settings.GitLabWebURL,
		},
	}
	if err := u.notifier.Send(ctx, n); err != nil {
		log.Errorw("review request email failed", "push_id", push.ID, "error", err)
		return nil
	}

	log.Infow("review requested", "push_id", push.ID, "email", user.Email)
	return nil
}

// HandleMergeRequest records the terminal outcome of a submitted merge
// request. Non-terminal transitions are not tracked.
func (u *Usecase) HandleMergeRequest(ctx context.Context, ev entities.MergeRequestEvent) error {
	ctx, cancel := u.eventContext(ctx)
	defer cancel()

	log := u.log.With(
		"user_id", ev.AuthorID,
		"project_id", ev.TargetProjectID,
		"branch", ev.SourceBranch,
		"merge_request_iid", ev.MergeRequestIID,
	)
	log.Infow("merge request event", "state", ev.State, "merge_status", ev.MergeStatus)

	state, terminal := entities.ParseMergeState(ev.State)
	if !terminal {
		log.Debugw("non-terminal merge request state ignored", "state", ev.State)
		return nil
	}

	mr, err := u.gitlab.MergeRequest(ctx, ev.TargetProjectID, ev.MergeRequestIID)
	if err != nil {
		log.Errorw("merge request lookup failed, event dropped", "error", err)
		return err
	}

	key := entities.PushKey{UserID: ev.AuthorID, ProjectID: ev.TargetProjectID, Branch: ev.SourceBranch}
	pushes, err := u.repo.FindByMergeRequest(ctx, key, ev.MergeRequestIID)
	if err != nil {
		return err
	}
	if len(pushes) == 0 {
		log.Warnw("no push for merge request, event dropped")
		return nil
	}

	push := pushes[0]
	if push.MergeState == state {
		log.Infow("push already resolved", "push_id", push.ID, "merge_state", state)
		return nil
	}

	mergedByID := 0
	if state == entities.MergeStateMerged {
		mergedByID = u.mergedBy(ctx, log, ev, mr)
	}

	changed, err := u.repo.ResolvePush(ctx, push.ID, ev.UpdatedAt, ev.MergeStatus, state, mergedByID)
	if errors.Is(err, entities.ErrPushResolved) {
		log.Warnw("push resolved to a different state, event dropped", "push_id", push.ID, "error", err)
		return nil
	}
	if err != nil {
		return err
	}
	if !changed {
		log.Infow("push already resolved", "push_id", push.ID, "merge_state", state)
		return nil
	}

	log.Infow("push resolved", "push_id", push.ID, "merge_state", state, "merged_by_id", mergedByID)
	return nil
}

// mergedBy picks the user credited with a merge: the event user, then a
// username search, then the assignee.
func (u *Usecase) mergedBy(ctx context.Context, log *zap.SugaredLogger, ev entities.MergeRequestEvent, mr *entities.MergeRequest) int {
	if ev.User.ID > 0 {
		return ev.User.ID
	}
	if ev.User.Username != "" {
		users, err := u.gitlab.FindUsersByUsername(ctx, ev.User.Username)
		if err != nil {
			log.Warnw("merged-by user search failed", "username", ev.User.Username, "error", err)
		} else if len(users) > 0 {
			return users[0].ID
		}
	}
	return mr.AssigneeID
}
