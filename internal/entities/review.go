package entities

// ResponseStatus is the outcome reported to the review form.
type ResponseStatus string

const (
	// StatusOK marks a successful request.
	StatusOK ResponseStatus = "OK"
	// StatusNoAction marks a valid request with nothing left to do.
	StatusNoAction ResponseStatus = "NO_ACTION"
	// StatusFailed marks a failed request.
	StatusFailed ResponseStatus = "FAILED"
)

// ReviewLink names the branch push an emailed link authorizes.
type ReviewLink struct {
	ProjectID int
	Branch    string
	UserID    int
}

// ReviewInfo is the data backing the review form.
type ReviewInfo struct {
	Status        ResponseStatus
	StatusText    string
	Group         string
	ProjectID     int
	ProjectName   string
	ProjectURL    string
	SourceBranch  string
	TargetBranch  string
	UserID        int
	Name          string
	Email         string
	GitLabWebURL  string
	Title         string
	Description   string
	MergeRequest  int
	MergeState    MergeState
	PendingReview bool
}

// SubmitReview is a review form submission.
type SubmitReview struct {
	UserID          int
	SourceProjectID int
	SourceBranch    string
	TargetProjectID int
	TargetBranch    string
	Title           string
	Description     string
}

// SubmitResult reports an accepted review submission.
type SubmitResult struct {
	Status       ResponseStatus
	Message      string
	MergeRequest *MergeRequest
	Reviewers    []string
}

// NotificationKind selects the email sent for a lifecycle step.
type NotificationKind string

const (
	// NotificationCodeReview asks the pusher to request a review.
	NotificationCodeReview NotificationKind = "code_review"
	// NotificationMergeRequest tells reviewers a merge request was submitted.
	NotificationMergeRequest NotificationKind = "merge_request"
)

// Recipient is an email destination.
type Recipient struct {
	Email string
	Name  string
}

// NotificationData is the template context of a notification.
type NotificationData struct {
	Project          Project
	Branch           string
	User             *User
	ReviewLink       string
	MergeRequest     *MergeRequest
	MergeRequestLink string
	GitLabWebURL     string
}

// Notification is a request to the mailer.
type Notification struct {
	Kind NotificationKind
	To   []Recipient
	Data NotificationData
}
