// Package oapi holds the HTTP transport models and route registration.
package oapi

import "time"

// AppResponseStatus is the outcome of a request.
type AppResponseStatus string

// Defines values for AppResponseStatus.
const (
	OK       AppResponseStatus = "OK"
	NOACTION AppResponseStatus = "NO_ACTION"
	FAILED   AppResponseStatus = "FAILED"
)

// AppResponse is the envelope of every JSON answer.
type AppResponse struct {
	Success    bool              `json:"success"`
	Status     AppResponseStatus `json:"status"`
	StatusText string            `json:"statusText,omitempty"`
	Data       any               `json:"data,omitempty"`
}

// ReviewInfo is the data of the review form.
type ReviewInfo struct {
	Group         string `json:"group"`
	ProjectId     int    `json:"projectId"`
	ProjectName   string `json:"projectName"`
	ProjectUrl    string `json:"projectUrl"`
	SourceBranch  string `json:"sourceBranch"`
	TargetBranch  string `json:"targetBranch"`
	UserId        int    `json:"userId"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	GitlabWebUrl  string `json:"gitlabWebUrl"`
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
	MergeRequest  int    `json:"mergeRequest,omitempty"`
	MergeState    string `json:"mergeState,omitempty"`
	PendingReview bool   `json:"pendingReview"`
}

// SubmitRequest is the review form submission. Signature is the one of
// the emailed link for (SourceProjectId, SourceBranch, UserId).
type SubmitRequest struct {
	UserId          int    `json:"user_id" form:"user_id"`
	SourceProjectId int    `json:"source_project_id" form:"source_project_id"`
	SourceBranch    string `json:"source_branch" form:"source_branch"`
	TargetProjectId int    `json:"target_project_id" form:"target_project_id"`
	TargetBranch    string `json:"target_branch" form:"target_branch"`
	Title           string `json:"title" form:"title"`
	Description     string `json:"description" form:"description"`
	Signature       string `json:"signature" form:"signature"`
}

// MergeRequest is a created merge request.
type MergeRequest struct {
	Id           int    `json:"id"`
	Iid          int    `json:"iid"`
	ProjectId    int    `json:"projectId"`
	Title        string `json:"title"`
	SourceBranch string `json:"sourceBranch"`
	TargetBranch string `json:"targetBranch"`
	WebUrl       string `json:"webUrl,omitempty"`
}

// SubmitResult is the data of an accepted submission.
type SubmitResult struct {
	MergeRequest MergeRequest `json:"mergeRequest"`
	Reviewers    []string     `json:"reviewers"`
}

// ProjectConfig is a managed project.
type ProjectConfig struct {
	Id                   int64     `json:"id"`
	Created              time.Time `json:"created"`
	ProjectId            int       `json:"projectId"`
	HookId               int       `json:"hookId"`
	Enabled              bool      `json:"enabled"`
	BranchRegex          string    `json:"branchRegex,omitempty"`
	TargetBranchRegex    string    `json:"targetBranchRegex,omitempty"`
	MailTo               string    `json:"mailTo"`
	AdditionalMailTo     string    `json:"additionalMailTo,omitempty"`
	ExcludeMailTo        string    `json:"excludeMailTo,omitempty"`
	IncludeDefaultMailTo bool      `json:"includeDefaultMailTo"`
}

// ProjectConfigForm is an admin add or update. Absent fields keep their
// current value, or the default on add.
type ProjectConfigForm struct {
	Enabled              *bool   `json:"enabled" form:"enabled"`
	BranchRegex          *string `json:"branch_regex" form:"branch_regex"`
	TargetBranchRegex    *string `json:"target_branch_regex" form:"target_branch_regex"`
	MailTo               *string `json:"mail_to" form:"mail_to"`
	AdditionalMailTo     *string `json:"additional_mail_to" form:"additional_mail_to"`
	ExcludeMailTo        *string `json:"exclude_mail_to" form:"exclude_mail_to"`
	IncludeDefaultMailTo *bool   `json:"include_default_mail_to" form:"include_default_mail_to"`
}

// ReviewLinkParams are the path parameters of a review link.
type ReviewLinkParams struct {
	ProjectId int
	Branch    string
	UserId    int
	Signature string
}

// ProjectPathParams name a project as group/project.
type ProjectPathParams struct {
	Group   string
	Project string
}

// Path returns "group/project".
func (p ProjectPathParams) Path() string {
	return p.Group + "/" + p.Project
}
