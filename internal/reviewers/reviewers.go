// Package reviewers computes who gets the merge-request email for a project.
package reviewers

import (
	"context"
	"sort"
	"strings"

	"github.com/gmessner/simple-cr/internal/entities"

	"go.uber.org/zap"
)

// MemberSource is the remote membership lookup the resolver needs.
type MemberSource interface {
	GroupMembers(ctx context.Context, groupID int) ([]entities.Member, error)
	ProjectMembers(ctx context.Context, projectID int) ([]entities.Member, error)
	User(ctx context.Context, userID int) (*entities.User, error)
}

// Resolver applies a project's reviewer policy.
type Resolver struct {
	log      *zap.SugaredLogger
	members  MemberSource
	defaults []string
}

// New constructs a Resolver with the global default reviewer list.
func New(log *zap.SugaredLogger, members MemberSource, defaults []string) *Resolver {
	return &Resolver{
		log:      log.Named("reviewers"),
		members:  members,
		defaults: defaults,
	}
}

// Resolve returns the sorted reviewer addresses for cfg, or nil when
// nobody is left to notify.
//
// The author is removed only while at least two reviewers remain; a sole
// reviewer is kept even when it is the author.
func (r *Resolver) Resolve(ctx context.Context, cfg entities.ProjectConfig, groupID int, authorEmail string) []string {
	set := make(map[string]struct{})

	for _, m := range r.fetchMembers(ctx, cfg, groupID) {
		user, err := r.members.User(ctx, m.ID)
		if err != nil {
			r.log.Warnw("member lookup failed, skipping", "member_id", m.ID, "error", err)
			continue
		}
		if email := strings.TrimSpace(user.Email); email != "" {
			set[email] = struct{}{}
		}
	}

	addAll(set, cfg.AdditionalReviewers)
	if cfg.IncludeDefaultReviewers {
		addAll(set, r.defaults)
	}

	if len(set) == 0 {
		return nil
	}

	for _, e := range cfg.ExcludedReviewers {
		delete(set, strings.TrimSpace(e))
	}

	if len(set) > 1 {
		delete(set, strings.TrimSpace(authorEmail))
	}

	if len(set) == 0 {
		return nil
	}

	res := make([]string, 0, len(set))
	for e := range set {
		res = append(res, e)
	}
	sort.Strings(res)
	return res
}

func (r *Resolver) fetchMembers(ctx context.Context, cfg entities.ProjectConfig, groupID int) []entities.Member {
	var (
		members []entities.Member
		err     error
	)
	switch cfg.ReviewerMode {
	case entities.ReviewerModeGroup:
		members, err = r.members.GroupMembers(ctx, groupID)
	case entities.ReviewerModeProject:
		members, err = r.members.ProjectMembers(ctx, cfg.ProjectID)
	default:
		return nil
	}
	if err != nil {
		r.log.Errorw("failed to list members", "mode", cfg.ReviewerMode, "project_id", cfg.ProjectID, "group_id", groupID, "error", err)
		return nil
	}
	r.log.Infow("reviewer members listed", "mode", cfg.ReviewerMode, "members", len(members))
	return members
}

func addAll(set map[string]struct{}, list []string) {
	for _, e := range list {
		if e = strings.TrimSpace(e); e != "" {
			set[e] = struct{}{}
		}
	}
}
