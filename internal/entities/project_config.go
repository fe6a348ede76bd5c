package entities

import (
	"fmt"
	"strings"
	"time"
)

// ReviewerMode selects which membership list feeds the reviewer set.
type ReviewerMode string

const (
	// ReviewerModeNone uses only configured addresses.
	ReviewerModeNone ReviewerMode = "NONE"
	// ReviewerModeGroup adds the members of the project's group.
	ReviewerModeGroup ReviewerMode = "GROUP"
	// ReviewerModeProject adds the members of the project.
	ReviewerModeProject ReviewerMode = "PROJECT"
)

// ParseReviewerMode parses a reviewer mode case-insensitively.
// Blank and unknown values are rejected.
func ParseReviewerMode(s string) (ReviewerMode, error) {
	switch mode := ReviewerMode(strings.ToUpper(strings.TrimSpace(s))); mode {
	case ReviewerModeNone, ReviewerModeGroup, ReviewerModeProject:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: invalid mail_to %q", ErrInvalidArgument, s)
	}
}

// ProjectConfig is the per-project review policy.
type ProjectConfig struct {
	ID                      int64
	CreatedAt               time.Time
	ProjectID               int
	HookID                  int
	Enabled                 bool
	BranchRegex             string
	TargetBranchRegex       string
	ReviewerMode            ReviewerMode
	AdditionalReviewers     []string
	ExcludedReviewers       []string
	IncludeDefaultReviewers bool
}

// ProjectConfigPatch carries an admin update; nil fields are left unchanged
// and empty strings clear optional values.
type ProjectConfigPatch struct {
	Enabled                 *bool
	BranchRegex             *string
	TargetBranchRegex       *string
	ReviewerMode            *string
	AdditionalReviewers     *string
	ExcludedReviewers       *string
	IncludeDefaultReviewers *bool
}

// ParseAddressList splits a comma, semicolon or whitespace separated
// address list, dropping blanks.
func ParseAddressList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) == 0 {
		return nil
	}
	res := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			res = append(res, f)
		}
	}
	return res
}

// JoinAddressList is the storage form of an address list.
func JoinAddressList(list []string) string {
	return strings.Join(list, ",")
}
