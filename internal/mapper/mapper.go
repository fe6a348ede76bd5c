// Package mapper converts between domain models and transport DTOs.
package mapper

import (
	"strings"

	"github.com/gmessner/simple-cr/internal/entities"
	oapi "github.com/gmessner/simple-cr/internal/oapi"
)

// ToOAPIReviewInfo maps the review form data to its transport model.
func ToOAPIReviewInfo(info entities.ReviewInfo) oapi.ReviewInfo {
	return oapi.ReviewInfo{
		Group:         info.Group,
		ProjectId:     info.ProjectID,
		ProjectName:   info.ProjectName,
		ProjectUrl:    info.ProjectURL,
		SourceBranch:  info.SourceBranch,
		TargetBranch:  info.TargetBranch,
		UserId:        info.UserID,
		Name:          info.Name,
		Email:         info.Email,
		GitlabWebUrl:  info.GitLabWebURL,
		Title:         info.Title,
		Description:   info.Description,
		MergeRequest:  info.MergeRequest,
		MergeState:    string(info.MergeState),
		PendingReview: info.PendingReview,
	}
}

// ToOAPISubmitResult maps an accepted submission.
func ToOAPISubmitResult(res entities.SubmitResult) oapi.SubmitResult {
	out := oapi.SubmitResult{Reviewers: res.Reviewers}
	if out.Reviewers == nil {
		out.Reviewers = []string{}
	}
	if mr := res.MergeRequest; mr != nil {
		out.MergeRequest = oapi.MergeRequest{
			Id:           mr.ID,
			Iid:          mr.IID,
			ProjectId:    mr.ProjectID,
			Title:        mr.Title,
			SourceBranch: mr.SourceBranch,
			TargetBranch: mr.TargetBranch,
			WebUrl:       mr.WebURL,
		}
	}
	return out
}

// FromOAPISubmit builds a submission from the form body.
func FromOAPISubmit(src oapi.SubmitRequest) entities.SubmitReview {
	return entities.SubmitReview{
		UserID:          src.UserId,
		SourceProjectID: src.SourceProjectId,
		SourceBranch:    strings.TrimSpace(src.SourceBranch),
		TargetProjectID: src.TargetProjectId,
		TargetBranch:    strings.TrimSpace(src.TargetBranch),
		Title:           src.Title,
		Description:     src.Description,
	}
}

// ToOAPIProjectConfig maps a managed project to its transport model.
func ToOAPIProjectConfig(cfg entities.ProjectConfig) oapi.ProjectConfig {
	return oapi.ProjectConfig{
		Id:                   cfg.ID,
		Created:              cfg.CreatedAt,
		ProjectId:            cfg.ProjectID,
		HookId:               cfg.HookID,
		Enabled:              cfg.Enabled,
		BranchRegex:          cfg.BranchRegex,
		TargetBranchRegex:    cfg.TargetBranchRegex,
		MailTo:               string(cfg.ReviewerMode),
		AdditionalMailTo:     entities.JoinAddressList(cfg.AdditionalReviewers),
		ExcludeMailTo:        entities.JoinAddressList(cfg.ExcludedReviewers),
		IncludeDefaultMailTo: cfg.IncludeDefaultReviewers,
	}
}

// ToOAPIProjectConfigs maps a list of managed projects.
func ToOAPIProjectConfigs(list []entities.ProjectConfig) []oapi.ProjectConfig {
	res := make([]oapi.ProjectConfig, 0, len(list))
	for _, cfg := range list {
		res = append(res, ToOAPIProjectConfig(cfg))
	}
	return res
}

// FromOAPIProjectConfigForm builds an admin patch from the form body.
func FromOAPIProjectConfigForm(src oapi.ProjectConfigForm) entities.ProjectConfigPatch {
	return entities.ProjectConfigPatch{
		Enabled:                 src.Enabled,
		BranchRegex:             src.BranchRegex,
		TargetBranchRegex:       src.TargetBranchRegex,
		ReviewerMode:            src.MailTo,
		AdditionalReviewers:     src.AdditionalMailTo,
		ExcludedReviewers:       src.ExcludeMailTo,
		IncludeDefaultReviewers: src.IncludeDefaultMailTo,
	}
}
