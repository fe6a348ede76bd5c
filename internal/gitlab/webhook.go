package gitlab

import (
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/gmessner/simple-cr/internal/entities"

	gl "github.com/xanzy/go-gitlab"
)

const (
	// EventHeader carries the hook kind.
	EventHeader = "X-Gitlab-Event"
	// TokenHeader carries the secret registered with the hook.
	TokenHeader = "X-Gitlab-Token"

	branchRefPrefix = "refs/heads/"
)

// hookTimeLayouts are the timestamp forms found in hook payloads: the
// legacy "2006-01-02 15:04:05 UTC" form and ISO 8601.
var hookTimeLayouts = []string{
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05 -0700",
	time.RFC3339,
}

// Hook kinds as sent in EventHeader.
const (
	EventPush         = string(gl.EventTypePush)
	EventMergeRequest = string(gl.EventTypeMergeRequest)
)

// Event is a decoded webhook. Exactly one of Push and MergeRequest is set
// for a tracked kind; both are nil for kinds the service ignores.
type Event struct {
	Kind         string
	Push         *entities.PushEvent
	MergeRequest *entities.MergeRequestEvent
}

// Ignored reports whether the hook carries nothing to act on.
func (e Event) Ignored() bool {
	return e.Push == nil && e.MergeRequest == nil
}

// WebhookParser validates and decodes GitLab hook deliveries.
type WebhookParser struct {
	secret []byte
}

// NewWebhookParser returns a parser checking deliveries against secret.
// An empty secret disables the check.
func NewWebhookParser(secret string) *WebhookParser {
	return &WebhookParser{secret: []byte(secret)}
}

// Parse checks token and decodes payload according to eventType.
func (w *WebhookParser) Parse(eventType, token string, payload []byte) (Event, error) {
	if len(w.secret) > 0 && subtle.ConstantTimeCompare([]byte(token), w.secret) != 1 {
		return Event{}, fmt.Errorf("%w: %s does not match", entities.ErrInvalidSignature, TokenHeader)
	}

	ev := Event{Kind: eventType}
	switch eventType {
	case EventPush, EventMergeRequest:
	default:
		return ev, nil
	}

	raw, err := gl.ParseWebhook(gl.EventType(eventType), payload)
	if err != nil {
		return Event{}, fmt.Errorf("%w: decode %s: %v", entities.ErrInvalidArgument, eventType, err)
	}

	switch e := raw.(type) {
	case *gl.PushEvent:
		ev.Push = toPushEvent(e)
	case *gl.MergeEvent:
		ev.MergeRequest = toMergeRequestEvent(e)
	}
	return ev, nil
}

// BranchFromRef strips the branch prefix from a push ref. Tags and other
// refs yield an empty branch.
func BranchFromRef(ref string) string {
	if !strings.HasPrefix(ref, branchRefPrefix) {
		return ""
	}
	return strings.TrimPrefix(ref, branchRefPrefix)
}

func toPushEvent(e *gl.PushEvent) *entities.PushEvent {
	return &entities.PushEvent{
		UserID:    e.UserID,
		UserEmail: e.UserEmail,
		ProjectID: e.ProjectID,
		Branch:    BranchFromRef(e.Ref),
		Ref:       e.Ref,
		BeforeSHA: e.Before,
		AfterSHA:  e.After,
	}
}

func toMergeRequestEvent(e *gl.MergeEvent) *entities.MergeRequestEvent {
	attrs := e.ObjectAttributes
	res := &entities.MergeRequestEvent{
		SourceBranch:    attrs.SourceBranch,
		AuthorID:        attrs.AuthorID,
		TargetProjectID: attrs.TargetProjectID,
		MergeRequestID:  attrs.ID,
		MergeRequestIID: attrs.IID,
		State:           attrs.State,
		MergeStatus:     attrs.MergeStatus,
		UpdatedAt:       time.Now().UTC(),
	}
	if at, ok := parseHookTime(attrs.UpdatedAt); ok {
		res.UpdatedAt = at
	}
	if e.User != nil {
		res.User = entities.EventUser{ID: e.User.ID, Username: e.User.Username}
	}
	return res
}

func parseHookTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range hookTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
