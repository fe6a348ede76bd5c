// Package entities contains core business entities and errors.
package entities

import "errors"

var (
	// ErrInvalidArgument signals failed input validation.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInvalidSignature signals a forged or malformed review link.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrProjectNotManaged signals a project without a ProjectConfig.
	ErrProjectNotManaged = errors.New("project not managed")
	// ErrPushNotFound signals a missing push record.
	ErrPushNotFound = errors.New("push not found")
	// ErrRemoteNotFound signals a project, user, branch or merge request missing on GitLab.
	ErrRemoteNotFound = errors.New("remote object not found")

	// ErrProjectExists signals a duplicate project registration.
	ErrProjectExists = errors.New("project exists")
	// ErrDuplicatePush signals an open push already recorded for the branch.
	ErrDuplicatePush = errors.New("duplicate open push")
	// ErrMergeRequestAttached signals a push that already carries a merge request.
	ErrMergeRequestAttached = errors.New("merge request already attached")
	// ErrPushResolved signals a push already resolved to a different terminal state.
	ErrPushResolved = errors.New("push already resolved")
	// ErrMergeRequestConflict signals GitLab refused the merge request (merged or branch gone).
	ErrMergeRequestConflict = errors.New("merge request conflict")
	// ErrNoAction signals a request that is valid but has nothing left to do.
	ErrNoAction = errors.New("no action")

	// ErrExternal signals a failed or timed out GitLab call.
	ErrExternal = errors.New("external service error")
)
