// Package mailer delivers lifecycle notifications over SMTP.
package mailer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/gmessner/simple-cr/config"
	"github.com/gmessner/simple-cr/internal/entities"

	"github.com/wneessen/go-mail"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var subjects = map[entities.NotificationKind]string{
	entities.NotificationCodeReview:   "Your Branch Push",
	entities.NotificationMergeRequest: "Code Review/Merge Request",
}

// Sender delivers composed messages. *mail.Client implements it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer renders notifications and hands them to a Sender.
type Mailer struct {
	log       *zap.SugaredLogger
	cfg       config.SMTPConfig
	sender    Sender
	templates map[entities.NotificationKind]*template.Template
	markdown  goldmark.Markdown
}

// New builds a Mailer for cfg. When SMTP is not configured the Mailer
// logs and drops every notification.
func New(log *zap.SugaredLogger, cfg config.SMTPConfig) (*Mailer, error) {
	var sender Sender
	if cfg.Enabled() {
		client, err := newClient(cfg)
		if err != nil {
			return nil, err
		}
		sender = client
	}
	return NewWithSender(log, cfg, sender)
}

// NewWithSender builds a Mailer delivering through sender.
func NewWithSender(log *zap.SugaredLogger, cfg config.SMTPConfig, sender Sender) (*Mailer, error) {
	m := &Mailer{
		log:       log.Named("mailer"),
		cfg:       cfg,
		sender:    sender,
		templates: make(map[entities.NotificationKind]*template.Template, len(subjects)),
		markdown:  goldmark.New(),
	}
	for kind := range subjects {
		tpl, err := template.ParseFS(templateFS, "templates/"+string(kind)+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", kind, err)
		}
		m.templates[kind] = tpl
	}
	return m, nil
}

func newClient(cfg config.SMTPConfig) (*mail.Client, error) {
	policy := mail.NoTLS
	if cfg.StartTLS {
		policy = mail.TLSMandatory
	}
	opts := []mail.Option{mail.WithPort(cfg.Port), mail.WithTLSPolicy(policy)}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return client, nil
}

// Send renders n and delivers it. Nothing is retried.
func (m *Mailer) Send(ctx context.Context, n entities.Notification) error {
	if m.sender == nil {
		m.log.Infow("smtp disabled, notification dropped", "kind", n.Kind, "recipients", len(n.To))
		return nil
	}
	if len(n.To) == 0 {
		return fmt.Errorf("%w: notification without recipients", entities.ErrInvalidArgument)
	}

	msg, err := m.compose(n)
	if err != nil {
		return err
	}
	if err := m.sender.DialAndSendWithContext(ctx, msg); err != nil {
		m.log.Errorw("failed to send notification", "kind", n.Kind, "error", err)
		return fmt.Errorf("%w: send mail: %w", entities.ErrExternal, err)
	}

	m.log.Infow("notification sent", "kind", n.Kind, "recipients", len(n.To))
	return nil
}

func (m *Mailer) compose(n entities.Notification) (*mail.Msg, error) {
	body, err := m.render(n)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.FromEmail); err != nil {
		return nil, fmt.Errorf("%w: from address: %w", entities.ErrInvalidArgument, err)
	}
	for _, r := range n.To {
		if err := msg.AddToFormat(r.Name, r.Email); err != nil {
			return nil, fmt.Errorf("%w: recipient %q: %w", entities.ErrInvalidArgument, r.Email, err)
		}
	}
	msg.Subject(subjects[n.Kind])
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

// mergeRequestView adds the rendered description to the template data.
type mergeRequestView struct {
	entities.NotificationData
	Author      string
	Description template.HTML
}

func (m *Mailer) render(n entities.Notification) (string, error) {
	tpl, ok := m.templates[n.Kind]
	if !ok {
		return "", fmt.Errorf("%w: notification kind %q", entities.ErrInvalidArgument, n.Kind)
	}

	var data any = n.Data
	if n.Kind == entities.NotificationMergeRequest {
		view := mergeRequestView{NotificationData: n.Data}
		if mr := n.Data.MergeRequest; mr != nil {
			view.Author = mr.AuthorName
			if n.Data.User != nil && n.Data.User.Name != "" {
				view.Author = n.Data.User.Name
			}
			var desc bytes.Buffer
			if err := m.markdown.Convert([]byte(mr.Description), &desc); err != nil {
				return "", fmt.Errorf("render description: %w", err)
			}
			// goldmark drops raw HTML unless configured otherwise
			view.Description = template.HTML(desc.String())
		}
		data = view
	}

	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute %s template: %w", n.Kind, err)
	}
	return buf.String(), nil
}
