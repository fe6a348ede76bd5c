package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/gmessner/simple-cr/config"
	"github.com/gmessner/simple-cr/internal/entities"

	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

type captureSender struct {
	sent []*mail.Msg
	err  error
}

func (c *captureSender) DialAndSendWithContext(_ context.Context, messages ...*mail.Msg) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, messages...)
	return nil
}

func testConfig() config.SMTPConfig {
	return config.SMTPConfig{Host: "localhost", Port: 25, FromEmail: "noreply@example.com", FromName: "GitLab Code Review"}
}

func project() entities.Project {
	return entities.Project{ID: 42, Name: "widgets", NamespaceName: "team", WebURL: "https://gitlab.example.com/team/widgets"}
}

func TestSendCodeReview(t *testing.T) {
	sender := &captureSender{}
	m, err := NewWithSender(zap.NewNop().Sugar(), testConfig(), sender)
	require.NoError(t, err)

	n := entities.Notification{
		Kind: entities.NotificationCodeReview,
		To:   []entities.Recipient{{Email: "jane@example.com", Name: "Jane"}},
		Data: entities.NotificationData{
			Project:      project(),
			Branch:       "feature-x",
			User:         &entities.User{ID: 7, Name: "Jane", Email: "jane@example.com"},
			ReviewLink:   "https://cr.example.com/42/feature-x/7/abc",
			GitLabWebURL: "https://gitlab.example.com",
		},
	}

	body, err := m.render(n)
	require.NoError(t, err)
	require.Contains(t, body, "Hi Jane")
	require.Contains(t, body, "https://cr.example.com/42/feature-x/7/abc")
	require.Contains(t, body, "team/widgets")

	require.NoError(t, m.Send(context.Background(), n))
	require.Len(t, sender.sent, 1)

	to, err := sender.sent[0].GetRecipients()
	require.NoError(t, err)
	require.Equal(t, []string{"jane@example.com"}, to)
	require.Equal(t, []string{"Your Branch Push"}, sender.sent[0].GetGenHeader(mail.HeaderSubject))
}

func TestRenderMergeRequestMarkdown(t *testing.T) {
	m, err := NewWithSender(zap.NewNop().Sugar(), testConfig(), &captureSender{})
	require.NoError(t, err)

	body, err := m.render(entities.Notification{
		Kind: entities.NotificationMergeRequest,
		To:   []entities.Recipient{{Email: "a@example.com"}},
		Data: entities.NotificationData{
			Project: project(),
			Branch:  "feature-x",
			MergeRequest: &entities.MergeRequest{
				IID:          11,
				Title:        "Add <x>",
				Description:  "Fixes **everything**\n\n<script>alert(1)</script>",
				SourceBranch: "feature-x",
				TargetBranch: "master",
				AuthorName:   "Jane",
			},
			MergeRequestLink: "https://gitlab.example.com/team/widgets/merge_requests/11",
		},
	})
	require.NoError(t, err)
	require.Contains(t, body, "Jane asks for a code review")
	require.Contains(t, body, "<strong>everything</strong>")
	require.Contains(t, body, "Add &lt;x&gt;")
	require.NotContains(t, body, "<script>")
}

func TestSendDisabled(t *testing.T) {
	m, err := New(zap.NewNop().Sugar(), config.SMTPConfig{})
	require.NoError(t, err)

	require.NoError(t, m.Send(context.Background(), entities.Notification{Kind: entities.NotificationCodeReview}))
}

func TestSendFailures(t *testing.T) {
	sender := &captureSender{err: errors.New("connection refused")}
	m, err := NewWithSender(zap.NewNop().Sugar(), testConfig(), sender)
	require.NoError(t, err)

	err = m.Send(context.Background(), entities.Notification{Kind: entities.NotificationMergeRequest})
	require.ErrorIs(t, err, entities.ErrInvalidArgument)

	err = m.Send(context.Background(), entities.Notification{
		Kind: entities.NotificationCodeReview,
		To:   []entities.Recipient{{Email: "jane@example.com"}},
		Data: entities.NotificationData{Project: project(), User: &entities.User{Name: "Jane"}},
	})
	require.ErrorIs(t, err, entities.ErrExternal)
}
