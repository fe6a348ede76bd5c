package gitlab

import (
	"strings"
	"testing"
	"time"

	"github.com/gmessner/simple-cr/internal/entities"

	"github.com/stretchr/testify/require"
)

const pushPayload = `{
  "object_kind": "push",
  "before": "a1",
  "after": "b2",
  "ref": "refs/heads/team/feature-x",
  "user_id": 7,
  "user_name": "Jane",
  "user_email": "jane@example.com",
  "project_id": 42
}`

const mergePayload = `{
  "object_kind": "merge_request",
  "user": {"id": 3, "name": "Max", "username": "max"},
  "object_attributes": {
    "id": 901,
    "iid": 11,
    "source_branch": "feature-x",
    "target_branch": "master",
    "author_id": 7,
    "target_project_id": 42,
    "state": "merged",
    "merge_status": "can_be_merged",
    "updated_at": "2024-03-01T12:00:00Z"
  }
}`

func TestParsePush(t *testing.T) {
	p := NewWebhookParser("s3cret")

	ev, err := p.Parse(EventPush, "s3cret", []byte(pushPayload))
	require.NoError(t, err)
	require.False(t, ev.Ignored())
	require.Nil(t, ev.MergeRequest)
	require.Equal(t, &entities.PushEvent{
		UserID:    7,
		UserEmail: "jane@example.com",
		ProjectID: 42,
		Branch:    "team/feature-x",
		Ref:       "refs/heads/team/feature-x",
		BeforeSHA: "a1",
		AfterSHA:  "b2",
	}, ev.Push)
}

func TestParseMergeRequest(t *testing.T) {
	p := NewWebhookParser("")

	ev, err := p.Parse(EventMergeRequest, "", []byte(mergePayload))
	require.NoError(t, err)
	require.NotNil(t, ev.MergeRequest)

	mr := ev.MergeRequest
	require.Equal(t, "feature-x", mr.SourceBranch)
	require.Equal(t, 7, mr.AuthorID)
	require.Equal(t, 42, mr.TargetProjectID)
	require.Equal(t, 901, mr.MergeRequestID)
	require.Equal(t, 11, mr.MergeRequestIID)
	require.Equal(t, "merged", mr.State)
	require.Equal(t, "can_be_merged", mr.MergeStatus)
	require.True(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Equal(mr.UpdatedAt))
	require.Equal(t, entities.EventUser{ID: 3, Username: "max"}, mr.User)
}

func TestParseRejectsBadToken(t *testing.T) {
	p := NewWebhookParser("s3cret")

	_, err := p.Parse(EventPush, "guess", []byte(pushPayload))
	require.ErrorIs(t, err, entities.ErrInvalidSignature)

	_, err = p.Parse(EventPush, "", []byte(pushPayload))
	require.ErrorIs(t, err, entities.ErrInvalidSignature)
}

func TestParseIgnoresOtherKinds(t *testing.T) {
	p := NewWebhookParser("")

	ev, err := p.Parse("Note Hook", "", []byte(`{"object_kind":"note"}`))
	require.NoError(t, err)
	require.True(t, ev.Ignored())
	require.Equal(t, "Note Hook", ev.Kind)
}

func TestParseMalformedPayload(t *testing.T) {
	p := NewWebhookParser("")

	_, err := p.Parse(EventPush, "", []byte(`{"ref":`))
	require.ErrorIs(t, err, entities.ErrInvalidArgument)
}

func TestBranchFromRef(t *testing.T) {
	require.Equal(t, "main", BranchFromRef("refs/heads/main"))
	require.Equal(t, "a/b", BranchFromRef("refs/heads/a/b"))
	require.Empty(t, BranchFromRef("refs/tags/v1.0"))
	require.Empty(t, BranchFromRef(""))
}

func TestParseMergeRequestUpdatedAt(t *testing.T) {
	tests := []struct {
		name      string
		updatedAt string
		want      time.Time
	}{
		{
			name:      "hook_layout",
			updatedAt: "2024-03-01 12:00:00 UTC",
			want:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		{
			name:      "rfc3339_with_offset",
			updatedAt: "2024-03-01T14:00:00+02:00",
			want:      time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			payload := strings.Replace(mergePayload, "2024-03-01T12:00:00Z", tt.updatedAt, 1)

			ev, err := NewWebhookParser("").Parse(EventMergeRequest, "", []byte(payload))
			require.NoError(t, err)
			require.True(t, tt.want.Equal(ev.MergeRequest.UpdatedAt), ev.MergeRequest.UpdatedAt)
			require.Equal(t, time.UTC, ev.MergeRequest.UpdatedAt.Location())
		})
	}
}

func TestParseMergeRequestUnreadableUpdatedAt(t *testing.T) {
	payload := strings.Replace(mergePayload, "2024-03-01T12:00:00Z", "yesterday", 1)
	before := time.Now().UTC().Add(-time.Second)

	ev, err := NewWebhookParser("").Parse(EventMergeRequest, "", []byte(payload))
	require.NoError(t, err)
	require.True(t, ev.MergeRequest.UpdatedAt.After(before))
}
