package entities

import "time"

// PushEvent is the part of a GitLab push hook the lifecycle consumes.
type PushEvent struct {
	UserID    int
	UserEmail string
	ProjectID int
	Branch    string
	Ref       string
	BeforeSHA string
	AfterSHA  string
}

// EventUser is the user that triggered a merge request hook.
type EventUser struct {
	ID       int
	Username string
}

// MergeRequestEvent is the part of a GitLab merge request hook the lifecycle consumes.
type MergeRequestEvent struct {
	SourceBranch    string
	AuthorID        int
	TargetProjectID int
	MergeRequestID  int
	MergeRequestIID int
	State           string
	MergeStatus     string
	UpdatedAt       time.Time
	User            EventUser
}

// Project is a GitLab project.
type Project struct {
	ID            int
	Name          string
	NamespaceID   int
	NamespaceName string
	NamespaceKind string
	WebURL        string
	// ForkedFromID is the upstream project of a fork, 0 otherwise.
	ForkedFromID int
}

// User is a GitLab user.
type User struct {
	ID       int
	Username string
	Name     string
	Email    string
}

// Member is a group or project member.
type Member struct {
	ID       int
	Username string
	Name     string
}

// MergeRequest is a GitLab merge request.
type MergeRequest struct {
	ID           int
	IID          int
	ProjectID    int
	Title        string
	Description  string
	State        string
	SourceBranch string
	TargetBranch string
	WebURL       string
	AuthorID     int
	AuthorName   string
	AssigneeID   int
}

// MergeRequestDraft is the input for creating a merge request.
type MergeRequestDraft struct {
	ProjectID       int
	SourceProjectID int
	SourceBranch    string
	TargetBranch    string
	Title           string
	Description     string
}
