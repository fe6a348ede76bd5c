// Package entities contains core business entities.
package entities

import (
	"strings"
	"time"
)

// MergeState is the terminal outcome of a tracked merge request.
type MergeState string

const (
	// MergeStateNone marks a push whose merge request has not terminated.
	MergeStateNone MergeState = ""
	// MergeStateMerged marks a merged merge request.
	MergeStateMerged MergeState = "merged"
	// MergeStateClosed marks a merge request closed without merge.
	MergeStateClosed MergeState = "closed"
)

// ParseMergeState maps a remote merge request state onto a MergeState.
// The second result reports whether the state is terminal.
func ParseMergeState(s string) (MergeState, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(MergeStateMerged):
		return MergeStateMerged, true
	case string(MergeStateClosed):
		return MergeStateClosed, true
	default:
		return MergeStateNone, false
	}
}

// Terminal reports whether the state ends the tracked lifecycle.
func (s MergeState) Terminal() bool {
	return s == MergeStateMerged || s == MergeStateClosed
}

// Push is one notification cycle for a branch update.
type Push struct {
	ID              int64
	ReceivedAt      time.Time
	UserID          int
	ProjectID       int
	Branch          string
	BeforeSHA       string
	AfterSHA        string
	MergeRequestID  int
	MergeState      MergeState
	MergeStatus     *string
	MergeStatusDate *time.Time
	MergedByID      int
}

// IsOpen reports whether the push was notified but never submitted.
func (p Push) IsOpen() bool {
	return p.MergeRequestID == 0 && p.MergeState == MergeStateNone
}

// IsPendingReview reports whether the push was submitted and is not yet resolved.
func (p Push) IsPendingReview() bool {
	return p.MergeRequestID > 0 && p.MergeStatus == nil && p.MergeState == MergeStateNone
}

// PushKey identifies the lineage a push belongs to.
type PushKey struct {
	UserID    int
	ProjectID int
	Branch    string
}

// IsZeroSHA reports whether a commit sha consists of zeros only, which
// GitLab sends as the after sha of a branch deletion.
func IsZeroSHA(sha string) bool {
	return strings.Trim(sha, "0") == ""
}
